package scrape

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// selectNode supports the selector forms the site templates use:
// "#id", ".class" and a bare tag name.
func selectNode(doc *html.Node, selector string) (*html.Node, error) {
	var match func(*html.Node) bool
	switch {
	case strings.HasPrefix(selector, "#"):
		id := strings.TrimPrefix(selector, "#")
		match = func(n *html.Node) bool { return attr(n, "id") == id }
	case strings.HasPrefix(selector, "."):
		class := strings.TrimPrefix(selector, ".")
		match = func(n *html.Node) bool { return slices.Contains(strings.Fields(attr(n, "class")), class) }
	default:
		match = func(n *html.Node) bool { return n.Data == selector }
	}
	if n := findElement(doc, match); n != nil {
		return n, nil
	}
	return nil, fmt.Errorf("no element matches selector '%s'", selector)
}

// findElement returns the first element in document order for which match
// is true.
func findElement(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, match); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func extractTitle(doc *html.Node) string {
	n := findElement(doc, func(n *html.Node) bool { return n.Data == "title" })
	if n == nil || n.FirstChild == nil || n.FirstChild.Type != html.TextNode {
		return ""
	}
	return strings.TrimSpace(n.FirstChild.Data)
}

// metaContent returns the content of <meta name="name">.
func metaContent(doc *html.Node, name string) string {
	n := findElement(doc, func(n *html.Node) bool {
		return n.Data == "meta" && strings.EqualFold(attr(n, "name"), name) && attr(n, "content") != ""
	})
	if n == nil {
		return ""
	}
	return attr(n, "content")
}

func extractKeywords(doc *html.Node) []string {
	var keywords []string
	for _, keyword := range strings.Split(metaContent(doc, "keywords"), ",") {
		if trimmed := strings.TrimSpace(keyword); trimmed != "" {
			keywords = append(keywords, trimmed)
		}
	}
	return keywords
}
