// Package scrape reads summaries and content from the rendered pages of the
// live site.
package scrape

import (
	"context"
	"fmt"
	"net/http"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/foomo/contentserver-richtext/service/vo"
	"golang.org/x/net/html"
)

// Summary fetches url and reads its title and meta description/keywords.
func Summary(ctx context.Context, httpClient *http.Client, url string) (*vo.ContentSummary, error) {
	doc, err := fetch(ctx, httpClient, url)
	if err != nil {
		return nil, err
	}
	return summarize(doc), nil
}

// Scrape fetches url and converts the element matched by selector to
// Markdown.
func Scrape(ctx context.Context, httpClient *http.Client, url, selector string) (*vo.ContentSummary, vo.Markdown, error) {
	doc, err := fetch(ctx, httpClient, url)
	if err != nil {
		return nil, "", err
	}

	selectedNode, err := selectNode(doc, selector)
	if err != nil {
		return nil, "", fmt.Errorf("failed to extract node with selector '%s': %w", selector, err)
	}

	markdownBytes, err := htmltomarkdown.ConvertNode(selectedNode)
	if err != nil {
		return nil, "", fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}

	return summarize(doc), vo.Markdown(markdownBytes), nil
}

func summarize(doc *html.Node) *vo.ContentSummary {
	return &vo.ContentSummary{
		Title:       extractTitle(doc),
		Description: metaContent(doc, "description"),
		Keywords:    extractKeywords(doc),
	}
}

func fetch(ctx context.Context, httpClient *http.Client, url string) (*html.Node, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download HTML: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP request failed with status: %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}
