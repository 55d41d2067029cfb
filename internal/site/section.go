package site

// Kind discriminates the Section union. The value is what appears in the
// "kind" key of the serialized document.
type Kind string

const (
	KindFeatures  Kind = "features"
	KindCodeCards Kind = "code-cards"
	KindDataTable Kind = "data-table"
)

// Kinds returns the closed set of section kinds in declaration order.
func Kinds() []Kind {
	return []Kind{KindFeatures, KindCodeCards, KindDataTable}
}

// Known reports whether k is one of the section kinds this package models.
func (k Kind) Known() bool {
	switch k {
	case KindFeatures, KindCodeCards, KindDataTable:
		return true
	}
	return false
}

func (k Kind) String() string { return string(k) }

// Section is one content block of the page. The set of implementations is
// closed: FeaturesSection, CodeCardsSection, DataTableSection, and
// UnknownSection for decoded input whose kind is not recognised.
type Section interface {
	Kind() Kind
	SectionID() string
	SectionTitle() string

	cloneSection() Section
}

// Sections is the ordered section list. Order is render order.
type Sections []Section

// Clone deep-copies every section, keeping order.
func (ss Sections) Clone() Sections {
	if ss == nil {
		return nil
	}
	out := make(Sections, len(ss))
	for i, s := range ss {
		if s != nil {
			out[i] = s.cloneSection()
		}
	}
	return out
}

// isNil reports whether s is absent, including a typed nil variant pointer.
func isNil(s Section) bool {
	switch v := s.(type) {
	case nil:
		return true
	case *FeaturesSection:
		return v == nil
	case *CodeCardsSection:
		return v == nil
	case *DataTableSection:
		return v == nil
	case *UnknownSection:
		return v == nil
	}
	return false
}

// Feature is one entry of a features grid.
type Feature struct {
	Title string `json:"title" yaml:"title"`
	Desc  string `json:"desc" yaml:"desc"`
}

// FeaturesSection is a titled grid of feature entries.
type FeaturesSection struct {
	ID       string    `json:"id" yaml:"id"`
	Title    string    `json:"title" yaml:"title"`
	Subtitle string    `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Features []Feature `json:"features" yaml:"features"`
}

func (*FeaturesSection) Kind() Kind             { return KindFeatures }
func (s *FeaturesSection) SectionID() string    { return s.ID }
func (s *FeaturesSection) SectionTitle() string { return s.Title }
func (s *FeaturesSection) cloneSection() Section {
	if s == nil {
		return (*FeaturesSection)(nil)
	}
	cp := *s
	cp.Features = append([]Feature(nil), s.Features...)
	return &cp
}

// Card is one code sample. Code is opaque multi-line text.
type Card struct {
	Title string `json:"title" yaml:"title"`
	Code  string `json:"code" yaml:"code"`
}

// CodeCardsSection is a row of code sample cards.
type CodeCardsSection struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
	Cards []Card `json:"cards" yaml:"cards"`
}

func (*CodeCardsSection) Kind() Kind             { return KindCodeCards }
func (s *CodeCardsSection) SectionID() string    { return s.ID }
func (s *CodeCardsSection) SectionTitle() string { return s.Title }
func (s *CodeCardsSection) cloneSection() Section {
	if s == nil {
		return (*CodeCardsSection)(nil)
	}
	cp := *s
	cp.Cards = append([]Card(nil), s.Cards...)
	return &cp
}

// DataTableSection is a table with a header row. Every row must have exactly
// len(Columns) cells.
type DataTableSection struct {
	ID       string     `json:"id" yaml:"id"`
	Title    string     `json:"title" yaml:"title"`
	Subtitle string     `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Columns  []string   `json:"columns" yaml:"columns"`
	Rows     [][]string `json:"rows" yaml:"rows"`
}

func (*DataTableSection) Kind() Kind             { return KindDataTable }
func (s *DataTableSection) SectionID() string    { return s.ID }
func (s *DataTableSection) SectionTitle() string { return s.Title }
func (s *DataTableSection) cloneSection() Section {
	if s == nil {
		return (*DataTableSection)(nil)
	}
	cp := *s
	cp.Columns = append([]string(nil), s.Columns...)
	if s.Rows != nil {
		cp.Rows = make([][]string, len(s.Rows))
		for i, r := range s.Rows {
			cp.Rows[i] = append([]string(nil), r...)
		}
	}
	return &cp
}

// UnknownSection holds a decoded section whose kind is outside the modelled
// set. It exists so the discriminator stays inspectable; Validate always
// reports it and Render refuses it.
type UnknownSection struct {
	Name   string
	ID     string
	Title  string
	Fields map[string]any
}

func (s *UnknownSection) Kind() Kind {
	if s == nil {
		return ""
	}
	return Kind(s.Name)
}

func (s *UnknownSection) SectionID() string    { return s.ID }
func (s *UnknownSection) SectionTitle() string { return s.Title }
func (s *UnknownSection) cloneSection() Section {
	if s == nil {
		return (*UnknownSection)(nil)
	}
	cp := *s
	if s.Fields != nil {
		cp.Fields = make(map[string]any, len(s.Fields))
		for k, v := range s.Fields {
			cp.Fields[k] = v
		}
	}
	return &cp
}
