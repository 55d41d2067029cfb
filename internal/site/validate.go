// internal/site/validate.go
//

package site

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Validate checks doc against the section schema and the cross-field
// invariants. It never stops at the first defect: on failure the returned
// error is a ValidationErrors holding every problem found. On success the
// ValidDocument holds a private deep copy of doc.
func Validate(doc *Document) (*ValidDocument, error) {
	if errs := Check(doc); len(errs) > 0 {
		return nil, errs
	}
	return &ValidDocument{doc: doc.Clone()}, nil
}

// Check returns every defect in doc, or nil. It does not modify doc.
func Check(doc *Document) ValidationErrors {
	c := &collector{}
	if doc == nil {
		c.structural("", "document is nil")
		return c.errs
	}

	// top-level fields
	c.required("title", doc.Title)
	c.required("description", doc.Description)
	c.required("brandName", doc.BrandName)
	if c.required("repoUrl", doc.RepoURL) && !isAbsoluteURL(doc.RepoURL) {
		c.structural("repoUrl", "must be an absolute URL (got %q)", doc.RepoURL)
	}
	if doc.Hero == nil {
		c.structural("hero", "is required")
	} else {
		checkHero(c, doc.Hero)
	}

	// sections: shape per kind, then id uniqueness across the document
	if len(doc.Sections) == 0 {
		c.structural("sections", "at least one section is required")
	}
	ids := make(map[string]int, len(doc.Sections))
	for i, s := range doc.Sections {
		path := fmt.Sprintf("sections[%d]", i)
		if !checkSection(c, path, s) {
			continue
		}
		id := s.SectionID()
		if id == "" {
			continue
		}
		if first, dup := ids[id]; dup {
			c.consistency(path+".id", "duplicate section id %q (first declared at sections[%d])", id, first)
			continue
		}
		ids[id] = i
	}

	// anchor closure
	if doc.Hero != nil {
		checkAnchor(c, "hero.primaryCta.href", doc.Hero.PrimaryCTA.Href, ids)
		checkAnchor(c, "hero.secondaryCta.href", doc.Hero.SecondaryCTA.Href, ids)
	}
	for _, href := range footerAnchors(doc.FooterText) {
		checkAnchor(c, "footerText", href, ids)
	}

	return c.errs
}

func checkHero(c *collector, h *Hero) {
	c.required("hero.headline", h.Headline)
	checkCTA(c, "hero.primaryCta", h.PrimaryCTA)
	checkCTA(c, "hero.secondaryCta", h.SecondaryCTA)
	for i, p := range h.Previews {
		path := fmt.Sprintf("hero.previews[%d]", i)
		c.required(path+".label", p.Label)
		c.required(path+".code", p.Code)
	}
}

func checkCTA(c *collector, path string, cta CTA) {
	c.required(path+".label", cta.Label)
	if !c.required(path+".href", cta.Href) {
		return
	}
	if id, ok := cta.Anchor(); ok {
		if id == "" {
			c.structural(path+".href", "anchor %q names no section id", cta.Href)
		}
		return
	}
	if !isAbsoluteURL(cta.Href) {
		c.structural(path+".href", "must be a same-page anchor (#id) or an absolute URL (got %q)", cta.Href)
	}
}

// checkSection validates one section against the field set of its kind. It
// returns false when the section is absent, meaning it carries no id.
func checkSection(c *collector, path string, s Section) bool {
	switch v := s.(type) {
	case nil:
		c.structural(path, "section is null")
		return false
	case *FeaturesSection:
		if v == nil {
			c.structural(path, "section is null")
			return false
		}
		checkHeader(c, path, v.ID, v.Title)
		c.required(path+".subtitle", v.Subtitle)
		if len(v.Features) == 0 {
			c.structural(path+".features", "at least one feature is required")
		}
		for i, f := range v.Features {
			fp := fmt.Sprintf("%s.features[%d]", path, i)
			c.required(fp+".title", f.Title)
			c.required(fp+".desc", f.Desc)
		}
	case *CodeCardsSection:
		if v == nil {
			c.structural(path, "section is null")
			return false
		}
		checkHeader(c, path, v.ID, v.Title)
		if len(v.Cards) == 0 {
			c.structural(path+".cards", "at least one card is required")
		}
		for i, card := range v.Cards {
			cp := fmt.Sprintf("%s.cards[%d]", path, i)
			c.required(cp+".title", card.Title)
			c.required(cp+".code", card.Code)
		}
	case *DataTableSection:
		if v == nil {
			c.structural(path, "section is null")
			return false
		}
		checkHeader(c, path, v.ID, v.Title)
		c.required(path+".subtitle", v.Subtitle)
		if len(v.Columns) == 0 {
			c.structural(path+".columns", "at least one column is required")
		}
		for i, col := range v.Columns {
			c.required(fmt.Sprintf("%s.columns[%d]", path, i), col)
		}
		// a table without columns has no width to compare rows against
		if len(v.Columns) > 0 {
			for i, row := range v.Rows {
				if len(row) != len(v.Columns) {
					c.consistency(fmt.Sprintf("%s.rows[%d]", path, i),
						"row %d has %d cells, expected %d (one per column)", i, len(row), len(v.Columns))
				}
			}
		}
	case *UnknownSection:
		if v == nil {
			c.structural(path, "section is null")
			return false
		}
		if v.Name == "" {
			c.structural(path+".kind", "is required (one of %s)", kindList())
		} else {
			c.unknownVariant(path+".kind", "unknown section kind %q (expected one of %s)", v.Name, kindList())
		}
	default:
		// only reachable if a new variant is added without a case here
		c.unknownVariant(path+".kind", "unhandled section type %T with kind %q", s, s.Kind())
		return false
	}
	return true
}

func checkHeader(c *collector, path, id, title string) {
	if c.required(path+".id", id) && !validAnchorID(id) {
		c.structural(path+".id", "%q cannot be used as an anchor (no whitespace or '#')", id)
	}
	c.required(path+".title", title)
}

func checkAnchor(c *collector, path, href string, ids map[string]int) {
	id, ok := anchorTarget(href)
	if !ok || id == "" {
		return
	}
	if _, exists := ids[id]; !exists {
		c.consistency(path, "anchor %q does not match any section id", href)
	}
}

var footerHrefRE = regexp.MustCompile(`href\s*=\s*["'](#[^"']*)["']`)

// footerAnchors extracts same-page hrefs from the footer markup. The footer is
// otherwise opaque.
func footerAnchors(footer string) []string {
	var out []string
	for _, m := range footerHrefRE.FindAllStringSubmatch(footer, -1) {
		out = append(out, m[1])
	}
	return out
}

func validAnchorID(id string) bool {
	return !strings.ContainsAny(id, " \t\r\n#")
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func kindList() string {
	ks := Kinds()
	names := make([]string, len(ks))
	for i, k := range ks {
		names[i] = string(k)
	}
	return strings.Join(names, "|")
}

type collector struct {
	errs ValidationErrors
}

func (c *collector) add(kind ErrorKind, path, format string, args ...any) {
	c.errs = append(c.errs, &ValidationError{
		Kind:    kind,
		Path:    path,
		Message: fmt.Sprintf(format, args...),
	})
}

func (c *collector) structural(path, format string, args ...any) {
	c.add(StructuralError, path, format, args...)
}

func (c *collector) consistency(path, format string, args ...any) {
	c.add(ConsistencyError, path, format, args...)
}

func (c *collector) unknownVariant(path, format string, args ...any) {
	c.add(UnknownVariant, path, format, args...)
}

// required records a structural error for blank values and reports whether
// the value was present.
func (c *collector) required(path, value string) bool {
	if strings.TrimSpace(value) == "" {
		c.structural(path, "is required")
		return false
	}
	return true
}
