package dtext

// Style is a bitmask of inline formatting.
type Style uint16

const (
	Bold Style = 1 << iota
	Italic
	Underline
	Strike
	Superscript
	Subscript
	Spoiler
	Code
)

// Has reports whether every bit of flag is set.
func (s Style) Has(flag Style) bool {
	return s&flag == flag
}

// Span is a run of text sharing one style, link, and color.
type Span struct {
	Text  string
	Style Style
	Href  string
	Color string
}

// BlockKind identifies a block element.
type BlockKind int

const (
	Paragraph BlockKind = iota
	Heading
	ListItem
	Quote
	CodeBlock
	Section
	Rule
)

func (k BlockKind) String() string {
	switch k {
	case Heading:
		return "heading"
	case ListItem:
		return "list"
	case Quote:
		return "quote"
	case CodeBlock:
		return "code"
	case Section:
		return "section"
	case Rule:
		return "rule"
	}
	return "paragraph"
}

// Block is one block element. Level is the heading level or list depth.
// Quote and Section blocks carry their content in Children; CodeBlock keeps
// its verbatim content in Text.
type Block struct {
	Kind     BlockKind
	Level    int
	Title    string
	Anchor   string
	Expanded bool
	Text     string
	Spans    []Span
	Children []Block
}

// Document is a parsed DText body.
type Document struct {
	Blocks []Block
}

// PlainText concatenates span text without formatting.
func PlainText(spans []Span) string {
	n := 0
	for _, s := range spans {
		n += len(s.Text)
	}
	buf := make([]byte, 0, n)
	for _, s := range spans {
		buf = append(buf, s.Text...)
	}
	return string(buf)
}
