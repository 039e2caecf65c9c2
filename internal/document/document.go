// Package document models job descriptions and résumés as ordered sections
// of heterogeneous content and flattens them into plain text.
package document

const (
	// ContentSection is the section a bare string is wrapped into.
	ContentSection = "content"
	// PDFSection receives text extracted from an uploaded résumé file.
	PDFSection = "content_pdf_file"
)

// Section is a named piece of a Document.
type Section struct {
	Name    string
	Content Content
}

// Document is an ordered set of sections. Order follows the input payload.
type Document struct {
	sections []Section
}

// New creates a Document from sections in the given order.
func New(sections ...Section) *Document {
	return &Document{sections: append([]Section(nil), sections...)}
}

// FromText wraps a bare string into a single "content" section.
func FromText(s string) *Document {
	return New(Section{Name: ContentSection, Content: Text(s)})
}

// Set replaces the content of an existing section in place or appends a new one.
func (d *Document) Set(name string, c Content) {
	for i := range d.sections {
		if d.sections[i].Name == name {
			d.sections[i].Content = c
			return
		}
	}
	d.sections = append(d.sections, Section{Name: name, Content: c})
}

// Get returns the content of the first section with the given name.
func (d *Document) Get(name string) (Content, bool) {
	if d == nil {
		return Content{}, false
	}
	for _, s := range d.sections {
		if s.Name == name {
			return s.Content, true
		}
	}
	return Content{}, false
}

// Sections returns a copy of the sections in order.
func (d *Document) Sections() []Section {
	if d == nil {
		return nil
	}
	return append([]Section(nil), d.sections...)
}

func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.sections)
}

// IsEmpty reports whether the document has no sections at all.
func (d *Document) IsEmpty() bool {
	return d.Len() == 0
}

// Unsupported returns the names of sections that will be dropped by Flatten.
func (d *Document) Unsupported() []string {
	var names []string
	for _, s := range d.Sections() {
		if s.Content.Kind() == KindUnsupported {
			names = append(names, s.Name)
		}
	}
	return names
}
