package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/foomo/contentserver-richtext/richtext"
	"github.com/foomo/contentserver-richtext/scrape"
	"github.com/foomo/contentserver-richtext/service"
	"github.com/foomo/contentserver-richtext/service/vo"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const Version = "0.1.0"

const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

type RenderRequest struct {
	Document string `json:"document"` // Rich-text JSON or plain text
	Format   string `json:"format"`   // html (default) or markdown
}

type RenderResponse struct {
	HTML     vo.HTML     `json:"html,omitempty"`
	Markdown vo.Markdown `json:"markdown,omitempty"`
}

type ScrapeRequest struct {
	URL      string `json:"url"`      // The URL to scrape
	Selector string `json:"selector"` // CSS selector to extract content
}

type ScrapeResponse struct {
	Summary  *vo.ContentSummary `json:"summary"`
	Markdown vo.Markdown        `json:"markdown"`
}

type GetDocumentRequest struct {
	Path string `json:"path"` // The path to get the document for
}

type GetDocumentResponse struct {
	Document *vo.Document `json:"document"`
}

type RenderFieldRequest struct {
	Collection string `json:"collection"`
	Slug       string `json:"slug"`
	Field      string `json:"field"`
}

type RenderFieldResponse struct {
	Content *vo.RenderedContent `json:"content"`
}

// Config holds what the tool handlers share.
type Config struct {
	HTTPClient *http.Client
	Service    service.Service // getDocument and renderField are only added when set
	Renderer   *richtext.Cache
	// DefaultSelector is used by scrape when the request has none.
	DefaultSelector string
}

// NewServer creates a new MCP server with the rendering and site tools
func NewServer(config Config) *server.MCPServer {
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}
	if config.Renderer == nil {
		config.Renderer = richtext.NewCache(0)
	}

	s := server.NewMCPServer(
		"Practice Content MCP",
		Version,
		server.WithToolCapabilities(false),
	)

	renderTool := mcp.NewTool("renderRichText",
		mcp.WithDescription("Render a rich-text document from the CMS editor to HTML or Markdown"),
		mcp.WithString("document",
			mcp.Required(),
			mcp.Description("The editor JSON ({\"root\":{\"children\":[...]}}) or plain text"),
		),
		mcp.WithString("format",
			mcp.Description("Output format: 'html' (default) or 'markdown'"),
			mcp.Enum(FormatHTML, FormatMarkdown),
		),
	)
	s.AddTool(renderTool, mcp.NewTypedToolHandler(getRenderHandler(config.Renderer)))

	scrapeTool := mcp.NewTool("scrape",
		mcp.WithDescription("Scrape content from a page of the live site and convert it to markdown"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the webpage to scrape"),
		),
		mcp.WithString("selector",
			mcp.Description("CSS selector to extract specific content (e.g., '#content', '.article', 'main')"),
		),
	)
	s.AddTool(scrapeTool, mcp.NewTypedToolHandler(getScrapeHandler(config.HTTPClient, config.DefaultSelector)))

	if config.Service != nil {
		getDocumentTool := mcp.NewTool("getDocument",
			mcp.WithDescription("Get a page with its rendered content, breadcrumbs, siblings, and children"),
			mcp.WithString("path",
				mcp.Required(),
				mcp.Description("The site path, e.g. /treatments/implants"),
			),
		)
		s.AddTool(getDocumentTool, mcp.NewTypedToolHandler(getDocumentHandler(config.Service)))

		renderFieldTool := mcp.NewTool("renderField",
			mcp.WithDescription("Render the rich-text field of a CMS entry found by slug"),
			mcp.WithString("collection",
				mcp.Required(),
				mcp.Description("CMS collection: pages, treatments, team, faqs, pricing, careers, legal"),
			),
			mcp.WithString("slug",
				mcp.Required(),
				mcp.Description("The entry slug"),
			),
			mcp.WithString("field",
				mcp.Description("Field path; defaults to the collection's configured rich-text field"),
			),
		)
		s.AddTool(renderFieldTool, mcp.NewTypedToolHandler(getRenderFieldHandler(config.Service)))
	}

	return s
}

// render returns the response for a render request; it is shared with the
// SSE endpoint.
func render(renderer *richtext.Cache, args RenderRequest) (*RenderResponse, error) {
	switch args.Format {
	case "", FormatHTML:
		return &RenderResponse{HTML: vo.HTML(renderer.Serialize(args.Document))}, nil
	case FormatMarkdown:
		md, err := renderer.ToMarkdown(args.Document)
		if err != nil {
			return nil, err
		}
		return &RenderResponse{Markdown: vo.Markdown(md)}, nil
	}
	return nil, fmt.Errorf("unknown format %q", args.Format)
}

func getRenderHandler(renderer *richtext.Cache) func(ctx context.Context, request mcp.CallToolRequest, args RenderRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args RenderRequest) (*mcp.CallToolResult, error) {
		response, err := render(renderer, args)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to render document: %v", err)), nil
		}
		return jsonResult(response)
	}
}

func getScrapeHandler(client *http.Client, defaultSelector string) func(ctx context.Context, request mcp.CallToolRequest, args ScrapeRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args ScrapeRequest) (*mcp.CallToolResult, error) {
		if args.URL == "" {
			return mcp.NewToolResultError("url is required"), nil
		}
		if args.Selector == "" {
			args.Selector = defaultSelector
		}
		if args.Selector == "" {
			return mcp.NewToolResultError("selector is required"), nil
		}

		summary, markdown, err := scrape.Scrape(ctx, client, args.URL, args.Selector)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to scrape content: %v", err)), nil
		}
		return jsonResult(ScrapeResponse{Summary: summary, Markdown: markdown})
	}
}

func getDocumentHandler(serviceInstance service.Service) func(ctx context.Context, request mcp.CallToolRequest, args GetDocumentRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args GetDocumentRequest) (*mcp.CallToolResult, error) {
		if args.Path == "" {
			return mcp.NewToolResultError("path is required"), nil
		}

		document, err := serviceInstance.GetDocument(ctx, args.Path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to get document: %v", err)), nil
		}
		return jsonResult(GetDocumentResponse{Document: document})
	}
}

func getRenderFieldHandler(serviceInstance service.Service) func(ctx context.Context, request mcp.CallToolRequest, args RenderFieldRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args RenderFieldRequest) (*mcp.CallToolResult, error) {
		if args.Collection == "" || args.Slug == "" {
			return mcp.NewToolResultError("collection and slug are required"), nil
		}

		content, err := serviceInstance.RenderField(ctx, args.Collection, args.Slug, args.Field)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to render field: %v", err)), nil
		}
		return jsonResult(RenderFieldResponse{Content: content})
	}
}

func jsonResult(response any) (*mcp.CallToolResult, error) {
	responseBytes, err := json.Marshal(response)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseBytes)), nil
}
