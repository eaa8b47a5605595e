package vo

type (
	MimeType string
	Markdown string
	HTML     string
)

type ContentSummary struct {
	Title       string   `json:"title"`                 // Page title
	Description string   `json:"description,omitempty"` // Meta description of the live page
	Keywords    []string `json:"keywords,omitempty"`    // Meta keywords of the live page
}

type DocumentSummary struct {
	ID             string   `json:"id"`
	URL            string   `json:"url"`
	MimeType       MimeType `json:"mimeType"`
	ContentSummary `json:"contentSummary"`
}

// RenderedContent is a CMS rich-text field rendered for display and for
// text-only clients.
type RenderedContent struct {
	Collection string   `json:"collection"`
	EntryID    string   `json:"entryId"`
	Slug       string   `json:"slug,omitempty"`
	Title      string   `json:"title,omitempty"`
	Field      string   `json:"field"`
	HTML       HTML     `json:"html"`
	Markdown   Markdown `json:"markdown,omitempty"`
}

type Document struct {
	DocumentSummary DocumentSummary  `json:"summary"`
	Content         *RenderedContent `json:"content,omitempty"` // nil for pages without a CMS body

	Breadcrump   []DocumentSummary `json:"breadcrump,omitempty"`
	Children     []DocumentSummary `json:"children,omitempty"`
	PrevSiblings []DocumentSummary `json:"prev,omitempty"`
	NextSiblings []DocumentSummary `json:"next,omitempty"`
}
