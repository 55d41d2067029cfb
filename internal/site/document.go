package site

// Document is the full content declaration for one landing page.
type Document struct {
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	LogoBadge   string   `json:"logoBadge,omitempty" yaml:"logoBadge,omitempty"`
	BrandName   string   `json:"brandName" yaml:"brandName"`
	RepoURL     string   `json:"repoUrl" yaml:"repoUrl"`
	FooterText  string   `json:"footerText,omitempty" yaml:"footerText,omitempty"`
	Hero        *Hero    `json:"hero" yaml:"hero"`
	Sections    Sections `json:"sections" yaml:"sections"`
}

// Hero is the top banner block.
type Hero struct {
	Badge          string    `json:"badge,omitempty" yaml:"badge,omitempty"`
	Headline       string    `json:"headline" yaml:"headline"`
	HeadlineAccent string    `json:"headlineAccent,omitempty" yaml:"headlineAccent,omitempty"`
	Description    string    `json:"description,omitempty" yaml:"description,omitempty"`
	PrimaryCTA     CTA       `json:"primaryCta" yaml:"primaryCta"`
	SecondaryCTA   CTA       `json:"secondaryCta" yaml:"secondaryCta"`
	Previews       []Preview `json:"previews,omitempty" yaml:"previews,omitempty"`
}

// CTA is a call to action rendered as a link or button. Href is either a
// same-page anchor ("#install") or an absolute URL.
type CTA struct {
	Href  string `json:"href" yaml:"href"`
	Label string `json:"label" yaml:"label"`
}

// Anchor returns the section id an in-page href points at.
func (c CTA) Anchor() (string, bool) {
	return anchorTarget(c.Href)
}

// Preview is one terminal transcript shown in the hero. Code is opaque.
type Preview struct {
	Label string `json:"label" yaml:"label"`
	Code  string `json:"code" yaml:"code"`
}

// Clone returns a deep copy of d. Sections are copied element by element so
// the copy shares no slices with d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	cp := *d
	if d.Hero != nil {
		h := d.Hero.clone()
		cp.Hero = &h
	}
	cp.Sections = d.Sections.Clone()
	return &cp
}

func (h Hero) clone() Hero {
	h.Previews = append([]Preview(nil), h.Previews...)
	return h
}

// SectionIDs returns the ids of all sections in declared order, including
// blanks and duplicates.
func (d *Document) SectionIDs() []string {
	if d == nil {
		return nil
	}
	out := make([]string, 0, len(d.Sections))
	for _, s := range d.Sections {
		if isNil(s) {
			out = append(out, "")
			continue
		}
		out = append(out, s.SectionID())
	}
	return out
}

func anchorTarget(href string) (string, bool) {
	if len(href) == 0 || href[0] != '#' {
		return "", false
	}
	return href[1:], true
}
