package document

import "strings"

// Flatten renders the document as plain text. Every section contributes one
// line; unsupported sections contribute nothing. The result is trimmed.
func Flatten(d *Document) string {
	var b strings.Builder

	for _, s := range d.Sections() {
		switch s.Content.Kind() {
		case KindText:
			b.WriteString(s.Content.text)
		case KindList:
			b.WriteString(strings.Join(s.Content.items, " "))
		case KindMapping:
			values := make([]string, 0, len(s.Content.fields))
			for _, f := range s.Content.fields {
				values = append(values, f.Value)
			}
			b.WriteString(strings.Join(values, " "))
		case KindUnsupported:
			continue
		}
		b.WriteByte('\n')
	}

	return strings.TrimSpace(b.String())
}
