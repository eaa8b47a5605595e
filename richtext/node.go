// Package richtext models the rich-text documents authored in the CMS editor
// and serializes them to HTML.
package richtext

import "strconv"

// Kind names a node type as it appears in the editor's JSON.
type Kind string

const (
	KindRoot      Kind = "root"
	KindParagraph Kind = "paragraph"
	KindHeading   Kind = "heading"
	KindList      Kind = "list"
	KindListItem  Kind = "listitem"
	KindText      Kind = "text"
	KindLink      Kind = "link"
	KindQuote     Kind = "quote"
	KindCode      Kind = "code"
)

// ListType selects between ordered and unordered lists.
type ListType string

const (
	ListBullet ListType = "bullet"
	ListNumber ListType = "number"
)

// Node is one element of a rich-text tree. The set of implementations is
// closed: Root, Paragraph, Heading, List, ListItem, Text, Link, Quote,
// CodeBlock and Unknown.
type Node interface {
	Kind() Kind
	Children() []Node
	node()
}

// Document is a decoded rich-text field.
type Document struct {
	Root *Root
}

type Root struct {
	Nodes []Node
}

type Paragraph struct {
	Nodes []Node
}

// Heading holds the editor's tag ("h1" … "h6").
type Heading struct {
	Tag   string
	Nodes []Node
}

// Level returns the heading level encoded in Tag, or 0 if Tag is not h1-h6.
func (h *Heading) Level() int {
	if len(h.Tag) != 2 || h.Tag[0] != 'h' {
		return 0
	}
	n, err := strconv.Atoi(h.Tag[1:])
	if err != nil || n < 1 || n > 6 {
		return 0
	}
	return n
}

// List is a bullet or numbered list. Start is the first ordinal; values
// below 2 mean the default.
type List struct {
	ListType ListType
	Start    int
	Items    []Node
}

// ListItem carries an optional explicit ordinal in Value.
type ListItem struct {
	Value int
	Nodes []Node
}

// Text is the only node carrying literal text.
type Text struct {
	Text   string
	Format Format
}

type Link struct {
	URL    string
	NewTab bool
	Nodes  []Node
}

type Quote struct {
	Nodes []Node
}

// CodeBlock is the block-level "code" node, not the inline code format.
type CodeBlock struct {
	Nodes []Node
}

// Unknown keeps nodes of a kind the serializer does not know about so
// their children still render.
type Unknown struct {
	Type  string
	Nodes []Node
}

func (*Root) Kind() Kind      { return KindRoot }
func (*Paragraph) Kind() Kind { return KindParagraph }
func (*Heading) Kind() Kind   { return KindHeading }
func (*List) Kind() Kind      { return KindList }
func (*ListItem) Kind() Kind  { return KindListItem }
func (*Text) Kind() Kind      { return KindText }
func (*Link) Kind() Kind      { return KindLink }
func (*Quote) Kind() Kind     { return KindQuote }
func (*CodeBlock) Kind() Kind { return KindCode }
func (u *Unknown) Kind() Kind { return Kind(u.Type) }

func (n *Root) Children() []Node      { return n.Nodes }
func (n *Paragraph) Children() []Node { return n.Nodes }
func (n *Heading) Children() []Node   { return n.Nodes }
func (n *List) Children() []Node      { return n.Items }
func (n *ListItem) Children() []Node  { return n.Nodes }
func (*Text) Children() []Node        { return nil }
func (n *Link) Children() []Node      { return n.Nodes }
func (n *Quote) Children() []Node     { return n.Nodes }
func (n *CodeBlock) Children() []Node { return n.Nodes }
func (n *Unknown) Children() []Node   { return n.Nodes }

func (*Root) node()      {}
func (*Paragraph) node() {}
func (*Heading) node()   {}
func (*List) node()      {}
func (*ListItem) node()  {}
func (*Text) node()      {}
func (*Link) node()      {}
func (*Quote) node()     {}
func (*CodeBlock) node() {}
func (*Unknown) node()   {}

// Ordered reports whether l renders as <ol>.
func (l *List) Ordered() bool {
	return l.ListType == ListNumber
}
