package richtext

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// headingClasses are fixed per level and independent of document styling.
var headingClasses = [7]string{
	1: "text-4xl font-bold tracking-tight mb-6",
	2: "text-3xl font-bold mb-5",
	3: "text-2xl font-semibold mb-4",
	4: "text-xl font-semibold mb-3",
	5: "text-lg font-medium mb-2",
	6: "text-base font-medium mb-2",
}

// HeadingClass returns the class attribute used for a heading level.
func HeadingClass(level int) string {
	if level < 1 || level > 6 {
		return ""
	}
	return headingClasses[level]
}

// Serialize renders a rich-text value as HTML. It accepts a *Document, a
// Node, decoded JSON (map[string]any), raw JSON ([]byte or
// json.RawMessage) or a string. Empty input and any JSON without the
// root.children shape yield "", whatever form it arrives in. Only a string
// that is not valid JSON is returned unchanged. Serialize never panics on
// well-typed input.
func Serialize(input any) string {
	switch v := input.(type) {
	case nil:
		return ""
	case string:
		return serializeString(v)
	case []byte:
		return serializeJSON(v)
	case json.RawMessage:
		return serializeJSON(v)
	case map[string]any:
		doc, err := FromMap(v)
		if err != nil {
			return ""
		}
		return doc.HTML()
	case *Document:
		return v.HTML()
	case Document:
		return v.HTML()
	case Node:
		var b strings.Builder
		writeNodes(&b, []Node{v})
		return b.String()
	}
	return ""
}

func serializeString(s string) string {
	t := strings.TrimSpace(s)
	if t == "" {
		return ""
	}
	if !strings.HasPrefix(t, "{") || !json.Valid([]byte(t)) {
		return s
	}
	return serializeJSON([]byte(t))
}

func serializeJSON(data []byte) string {
	if len(bytes.TrimSpace(data)) == 0 {
		return ""
	}
	doc, err := Decode(data)
	if err != nil {
		return ""
	}
	return doc.HTML()
}

// HTML renders the document. A nil document renders as "".
func (d *Document) HTML() string {
	if d == nil || d.Root == nil {
		return ""
	}
	var b strings.Builder
	writeNodes(&b, d.Root.Nodes)
	return b.String()
}

func writeNodes(b *strings.Builder, nodes []Node) {
	for _, n := range mergeLists(nodes) {
		writeNode(b, n)
	}
}

func writeNode(b *strings.Builder, n Node) {
	if isNil(n) {
		return
	}
	switch n := n.(type) {
	case *Text:
		writeText(b, n)
	case *Paragraph:
		b.WriteString("<p>")
		writeNodes(b, n.Nodes)
		b.WriteString("</p>")
	case *Heading:
		level := n.Level()
		if level == 0 {
			writeNodes(b, n.Nodes)
			return
		}
		tag := "h" + strconv.Itoa(level)
		b.WriteString("<" + tag + ` class="` + headingClasses[level] + `">`)
		writeNodes(b, n.Nodes)
		b.WriteString("</" + tag + ">")
	case *List:
		writeList(b, n)
	case *ListItem:
		b.WriteString("<li")
		if n.Value > 1 {
			b.WriteString(` value="` + strconv.Itoa(n.Value) + `"`)
		}
		b.WriteString(">")
		writeNodes(b, n.Nodes)
		b.WriteString("</li>")
	case *Link:
		b.WriteString(`<a href="` + html.EscapeString(safeURL(n.URL)) + `"`)
		if n.NewTab {
			b.WriteString(` target="_blank" rel="noopener noreferrer"`)
		}
		b.WriteString(">")
		writeNodes(b, n.Nodes)
		b.WriteString("</a>")
	case *Quote:
		b.WriteString("<blockquote>")
		writeNodes(b, n.Nodes)
		b.WriteString("</blockquote>")
	case *CodeBlock:
		b.WriteString("<pre><code>")
		writeNodes(b, n.Nodes)
		b.WriteString("</code></pre>")
	case *Root:
		writeNodes(b, n.Nodes)
	case *Unknown:
		writeNodes(b, n.Nodes)
	}
}

func writeList(b *strings.Builder, l *List) {
	if !l.Ordered() {
		b.WriteString("<ul>")
		writeNodes(b, l.Items)
		b.WriteString("</ul>")
		return
	}
	b.WriteString("<ol")
	if l.Start > 1 {
		b.WriteString(` start="` + strconv.Itoa(l.Start) + `"`)
	}
	b.WriteString(">")
	writeNodes(b, l.Items)
	b.WriteString("</ol>")
}

func writeText(b *strings.Builder, t *Text) {
	formats := t.Format.Formats()
	for _, f := range formats {
		b.WriteString("<" + tagOf(f) + ">")
	}
	b.WriteString(html.EscapeString(t.Text))
	for i := len(formats) - 1; i >= 0; i-- {
		b.WriteString("</" + tagOf(formats[i]) + ">")
	}
}

func tagOf(f Format) string {
	for _, ft := range formatTags {
		if ft.format == f {
			return ft.tag
		}
	}
	return ""
}

// safeURL keeps relative URLs and the http, https, mailto and tel schemes.
// Anything else becomes "#". The scheme is read the way browsers do: tab
// and newline characters are ignored and C0 controls and spaces are
// trimmed from both ends.
func safeURL(raw string) string {
	clean := strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, raw)
	clean = strings.TrimFunc(clean, func(r rune) bool { return r <= ' ' })

	i := strings.IndexAny(clean, ":/?#")
	if i < 0 || clean[i] != ':' {
		return raw
	}
	switch strings.ToLower(clean[:i]) {
	case "http", "https", "mailto", "tel":
		return raw
	}
	return "#"
}

// isNil catches typed nil pointers in hand-built trees.
func isNil(n Node) bool {
	if n == nil {
		return true
	}
	v := reflect.ValueOf(n)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
