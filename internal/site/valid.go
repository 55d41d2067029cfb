package site

// ValidDocument is a Document that passed Validate. It owns a private copy
// and hands out copies, so nothing downstream can change what was checked.
// Safe for concurrent readers.
//
// Only Validate produces a usable value. A zero or nil ValidDocument reads as
// empty and Render rejects it with ErrNotValidated.
type ValidDocument struct {
	doc *Document
}

func (v *ValidDocument) ok() bool { return v != nil && v.doc != nil }

// Document returns a deep copy of the validated document, or nil for a zero
// ValidDocument.
func (v *ValidDocument) Document() *Document {
	if !v.ok() {
		return nil
	}
	return v.doc.Clone()
}

// Title is the page title.
func (v *ValidDocument) Title() string {
	if !v.ok() {
		return ""
	}
	return v.doc.Title
}

// BrandName is the stable identifier used in external links and badges.
func (v *ValidDocument) BrandName() string {
	if !v.ok() {
		return ""
	}
	return v.doc.BrandName
}

// Len returns the number of sections.
func (v *ValidDocument) Len() int {
	if !v.ok() {
		return 0
	}
	return len(v.doc.Sections)
}

// Section returns a copy of the section with the given anchor id.
func (v *ValidDocument) Section(id string) (Section, bool) {
	if !v.ok() {
		return nil, false
	}
	for _, s := range v.doc.Sections {
		if s.SectionID() == id {
			return s.cloneSection(), true
		}
	}
	return nil, false
}

// Anchors returns the section ids in render order.
func (v *ValidDocument) Anchors() []string {
	if !v.ok() {
		return nil
	}
	return v.doc.SectionIDs()
}

// KindCounts tallies sections per kind.
func (v *ValidDocument) KindCounts() map[Kind]int {
	out := make(map[Kind]int, len(Kinds()))
	if !v.ok() {
		return out
	}
	for _, s := range v.doc.Sections {
		out[s.Kind()]++
	}
	return out
}
