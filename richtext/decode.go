package richtext

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed is returned when a value does not have the root.children
// shape of an editor document.
var ErrMalformed = errors.New("richtext: malformed document")

// Decode parses the editor's JSON. Individual nodes that do not look like
// nodes are dropped; only a missing root is an error.
func Decode(data []byte) (*Document, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformed)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected an object, got %T", ErrMalformed, v)
	}
	return FromMap(m)
}

// FromMap builds a Document from already decoded JSON, as returned by a
// CMS client that unmarshals into map[string]any.
func FromMap(m map[string]any) (*Document, error) {
	root, ok := m["root"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: missing root", ErrMalformed)
	}
	children, ok := root["children"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: root has no children", ErrMalformed)
	}
	return &Document{Root: &Root{Nodes: decodeNodes(children)}}, nil
}

func decodeNodes(values []any) []Node {
	nodes := make([]Node, 0, len(values))
	for _, v := range values {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		nodes = append(nodes, decodeNode(m))
	}
	return nodes
}

func decodeNode(m map[string]any) Node {
	kind, _ := m["type"].(string)
	children := func() []Node {
		values, _ := m["children"].([]any)
		return decodeNodes(values)
	}
	switch Kind(kind) {
	case KindText:
		text, _ := m["text"].(string)
		return &Text{Text: text, Format: Format(intOf(m["format"]))}
	case KindParagraph:
		return &Paragraph{Nodes: children()}
	case KindHeading:
		tag, _ := m["tag"].(string)
		return &Heading{Tag: tag, Nodes: children()}
	case KindList:
		return &List{
			ListType: listTypeOf(m["listType"]),
			Start:    intOf(m["start"]),
			Items:    children(),
		}
	case KindListItem:
		return &ListItem{Value: intOf(m["value"]), Nodes: children()}
	case KindLink:
		url, newTab := linkTarget(m)
		return &Link{URL: url, NewTab: newTab, Nodes: children()}
	case KindQuote:
		return &Quote{Nodes: children()}
	case KindCode:
		return &CodeBlock{Nodes: children()}
	case KindRoot:
		return &Root{Nodes: children()}
	default:
		return &Unknown{Type: kind, Nodes: children()}
	}
}

// linkTarget reads url/newTab either from the node itself or from the
// nested "fields" object newer editor versions write.
func linkTarget(m map[string]any) (string, bool) {
	url, _ := m["url"].(string)
	newTab, _ := m["newTab"].(bool)
	if fields, ok := m["fields"].(map[string]any); ok {
		if u, ok := fields["url"].(string); ok && url == "" {
			url = u
		}
		if nt, ok := fields["newTab"].(bool); ok {
			newTab = newTab || nt
		}
	}
	if target, _ := m["target"].(string); target == "_blank" {
		newTab = true
	}
	return url, newTab
}

func listTypeOf(v any) ListType {
	if s, _ := v.(string); ListType(s) == ListNumber {
		return ListNumber
	}
	// "check" lists and anything unexpected render as bullets.
	return ListBullet
}

func intOf(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0
		}
		return int(i)
	}
	return 0
}
