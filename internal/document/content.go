package document

// Kind identifies the shape of a section's content.
type Kind int

const (
	// KindUnsupported covers section values that carry no text: numbers,
	// booleans and nulls at section level. They are dropped when flattening.
	KindUnsupported Kind = iota
	KindText
	KindList
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindList:
		return "list"
	case KindMapping:
		return "mapping"
	default:
		return "unsupported"
	}
}

// Field is a single key/value pair of a mapping section. Value is already
// coerced to its text form.
type Field struct {
	Key   string
	Value string
}

// Content is the value of a section. Only the members matching Kind are set.
type Content struct {
	kind   Kind
	text   string
	items  []string
	fields []Field
	raw    string
}

// Text builds a plain string section value.
func Text(s string) Content {
	return Content{kind: KindText, text: s}
}

// List builds a sequence section value.
func List(items ...string) Content {
	return Content{kind: KindList, items: append([]string(nil), items...)}
}

// Mapping builds a nested mapping section value. Field order is kept.
func Mapping(fields ...Field) Content {
	return Content{kind: KindMapping, fields: append([]Field(nil), fields...)}
}

// Unsupported wraps a value that cannot contribute text. raw is kept for logging.
func Unsupported(raw string) Content {
	return Content{kind: KindUnsupported, raw: raw}
}

func (c Content) Kind() Kind { return c.kind }

// Raw returns the original literal of an unsupported value.
func (c Content) Raw() string { return c.raw }

// Items returns a copy of the list elements.
func (c Content) Items() []string { return append([]string(nil), c.items...) }

// Fields returns a copy of the mapping fields.
func (c Content) Fields() []Field { return append([]Field(nil), c.fields...) }
