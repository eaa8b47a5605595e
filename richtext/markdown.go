package richtext

import (
	"fmt"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// ToMarkdown serializes input and converts the HTML to Markdown, for
// clients that read content rather than display it.
func ToMarkdown(input any) (string, error) {
	return htmlToMarkdown(Serialize(input))
}

// ToMarkdown is the memoized variant of the package level ToMarkdown.
func (c *Cache) ToMarkdown(input any) (string, error) {
	return htmlToMarkdown(c.Serialize(input))
}

func htmlToMarkdown(h string) (string, error) {
	if h == "" {
		return "", nil
	}
	md, err := htmltomarkdown.ConvertString(h)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}
	return md, nil
}
