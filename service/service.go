package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/foomo/contentserver-richtext/cms"
	"github.com/foomo/contentserver-richtext/richtext"
	"github.com/foomo/contentserver-richtext/scrape"
	"github.com/foomo/contentserver-richtext/service/vo"
	contentserverclient "github.com/foomo/contentserver/client"
	"github.com/foomo/contentserver/content"
	"github.com/foomo/contentserver/requests"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrNoContentServer   = errors.New("no contentserver configured")
	ErrNoCMS             = errors.New("no CMS configured")
)

type Service interface {
	GetDocument(ctx context.Context, path string) (*vo.Document, error)
	RenderField(ctx context.Context, collection, slug, field string) (*vo.RenderedContent, error)
}

// ContentServer is the part of the contentserver client the service uses
// to navigate the site tree.
type ContentServer interface {
	GetContent(ctx context.Context, request *requests.Content) (*content.SiteContent, error)
	GetNodes(ctx context.Context, env *requests.Env, nodes map[string]*requests.Node) (map[string]*content.Node, error)
}

// CMS loads content entries.
type CMS interface {
	FindByID(ctx context.Context, collection, id string) (*cms.Entry, error)
	FindBySlug(ctx context.Context, collection, slug string) (*cms.Entry, error)
}

// Collection maps a content item mime type to the CMS collection holding
// its body and the rich-text field to render.
type Collection struct {
	Name          string
	RichTextField string
}

type SiteSettings struct {
	Env              *requests.Env
	BaseURL          string
	ContentServerURL string
	MimeTypes        []vo.MimeType
	Collections      map[vo.MimeType]Collection
	// ContentSelector is the default selector of the scrape tool.
	ContentSelector string
	// ScrapeSummaries reads titles and meta tags from the live pages
	// instead of the content item names.
	ScrapeSummaries bool
	// ScrapeConcurrency bounds parallel page fetches, 4 if zero.
	ScrapeConcurrency int
}

func (siteSettings SiteSettings) mimeTypes() []string {
	mimeTypes := make([]string, len(siteSettings.MimeTypes))
	for i, mimeType := range siteSettings.MimeTypes {
		mimeTypes[i] = string(mimeType)
	}
	return mimeTypes
}

func (siteSettings SiteSettings) collection(name string) (Collection, bool) {
	for _, c := range siteSettings.Collections {
		if c.Name == name {
			return c, true
		}
	}
	return Collection{}, false
}

type service struct {
	logger        *zap.Logger
	contentServer ContentServer
	cms           CMS
	renderer      *richtext.Cache
	httpClient    *http.Client
	siteSettings  SiteSettings
}

// NewContentServerClient creates the HTTP contentserver client.
func NewContentServerClient(url string, httpClient *http.Client) *contentserverclient.Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return contentserverclient.New(
		contentserverclient.NewHTTPTransport(
			url,
			contentserverclient.HTTPTransportWithHTTPClient(httpClient),
		))
}

// NewService builds the service. contentServer may be nil when only the
// CMS is available; GetDocument then fails with ErrNoContentServer while
// RenderField keeps working.
func NewService(
	logger *zap.Logger,
	siteSettings SiteSettings,
	httpClient *http.Client,
	contentServer ContentServer,
	cmsClient CMS,
	renderer *richtext.Cache,
) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if renderer == nil {
		renderer = richtext.NewCache(0)
	}
	if siteSettings.ScrapeConcurrency <= 0 {
		siteSettings.ScrapeConcurrency = 4
	}
	return &service{
		logger:        logger,
		contentServer: contentServer,
		cms:           cmsClient,
		renderer:      renderer,
		httpClient:    httpClient,
		siteSettings:  siteSettings,
	}
}

// isValidURI checks if a URI is valid for processing
func isValidURI(uri string) bool {
	return uri != "" && strings.HasPrefix(uri, "/")
}

func (s *service) GetDocument(ctx context.Context, path string) (*vo.Document, error) {
	if s.contentServer == nil {
		return nil, ErrNoContentServer
	}
	siteContent, err := s.contentServer.GetContent(ctx, &requests.Content{
		URI:   path,
		Env:   s.siteSettings.Env,
		Nodes: map[string]*requests.Node{},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get content for %s: %w", path, err)
	}
	if siteContent == nil || siteContent.Item == nil {
		return nil, fmt.Errorf("no content item for %s", path)
	}

	doc := &vo.Document{DocumentSummary: s.summary(siteContent.Item)}

	// Path runs from the parent up to the root.
	for i := len(siteContent.Path) - 1; i >= 0; i-- {
		item := siteContent.Path[i]
		if item == nil || !isValidURI(item.URI) {
			continue
		}
		doc.Breadcrump = append(doc.Breadcrump, s.summary(item))
	}

	if len(siteContent.Path) > 0 && siteContent.Path[0] != nil {
		parent, err := s.node(ctx, siteContent.Path[0].ID)
		if err != nil {
			return nil, err
		}
		isPrevious := true
		for _, id := range parent.Index {
			if id == siteContent.Item.ID {
				isPrevious = false
				continue
			}
			sibling, ok := parent.Nodes[id]
			if !ok || sibling.Item == nil {
				return nil, errors.New("sibling node not found")
			}
			if !isValidURI(sibling.Item.URI) {
				continue
			}
			if isPrevious {
				doc.PrevSiblings = append(doc.PrevSiblings, s.summary(sibling.Item))
			} else {
				doc.NextSiblings = append(doc.NextSiblings, s.summary(sibling.Item))
			}
		}
	}

	current, err := s.node(ctx, siteContent.Item.ID)
	if err != nil {
		return nil, err
	}
	for _, id := range current.Index {
		child, ok := current.Nodes[id]
		if !ok || child.Item == nil {
			return nil, errors.New("child node not found")
		}
		doc.Children = append(doc.Children, s.summary(child.Item))
	}

	if err := s.scrapeSummaries(ctx, doc); err != nil {
		return nil, err
	}

	collection, ok := s.siteSettings.Collections[vo.MimeType(siteContent.MimeType)]
	if !ok || s.cms == nil {
		return doc, nil
	}
	entry, err := s.cms.FindByID(ctx, collection.Name, siteContent.Item.ID)
	if err != nil {
		if errors.Is(err, cms.ErrNotFound) {
			s.logger.Warn("no CMS entry for content item", zap.String("path", path), zap.String("collection", collection.Name), zap.String("id", siteContent.Item.ID))
			return doc, nil
		}
		return nil, err
	}
	doc.Content, err = s.render(entry, collection.RichTextField)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *service) RenderField(ctx context.Context, collection, slug, field string) (*vo.RenderedContent, error) {
	if field == "" {
		c, ok := s.siteSettings.collection(collection)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
		}
		field = c.RichTextField
	}
	if s.cms == nil {
		return nil, ErrNoCMS
	}
	entry, err := s.cms.FindBySlug(ctx, collection, slug)
	if err != nil {
		return nil, err
	}
	return s.render(entry, field)
}

// render never fails on bad rich text; a missing field renders as empty
// content and is logged.
func (s *service) render(entry *cms.Entry, field string) (*vo.RenderedContent, error) {
	rendered := &vo.RenderedContent{
		Collection: entry.Collection,
		EntryID:    entry.ID(),
		Slug:       entry.Slug(),
		Title:      entry.Title(),
		Field:      field,
	}
	value, err := entry.RichText(field)
	if err != nil {
		if errors.Is(err, cms.ErrFieldMissing) {
			s.logger.Warn("rich text field missing", zap.String("collection", entry.Collection), zap.String("id", rendered.EntryID), zap.String("field", field))
			return rendered, nil
		}
		return nil, err
	}
	rendered.HTML = vo.HTML(s.renderer.Serialize(value))
	markdown, err := s.renderer.ToMarkdown(value)
	if err != nil {
		s.logger.Warn("failed to convert rich text to markdown", zap.String("collection", entry.Collection), zap.String("id", rendered.EntryID), zap.Error(err))
	}
	rendered.Markdown = vo.Markdown(markdown)
	return rendered, nil
}

func (s *service) node(ctx context.Context, id string) (*content.Node, error) {
	nodes, err := s.contentServer.GetNodes(ctx, s.siteSettings.Env, map[string]*requests.Node{
		id: {
			ID:        id,
			MimeTypes: s.siteSettings.mimeTypes(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get nodes for %s: %w", id, err)
	}
	node, ok := nodes[id]
	if !ok || node == nil {
		return nil, fmt.Errorf("content node %s not found", id)
	}
	return node, nil
}

func (s *service) summary(item *content.Item) vo.DocumentSummary {
	return vo.DocumentSummary{
		ID:             item.ID,
		URL:            s.siteSettings.BaseURL + item.URI,
		MimeType:       vo.MimeType(item.MimeType),
		ContentSummary: vo.ContentSummary{Title: item.Name},
	}
}

// scrapeSummaries replaces the summaries of doc with what the live pages
// show, fetching them in parallel.
func (s *service) scrapeSummaries(ctx context.Context, doc *vo.Document) error {
	if !s.siteSettings.ScrapeSummaries {
		return nil
	}
	summaries := []*vo.DocumentSummary{&doc.DocumentSummary}
	for _, list := range [][]vo.DocumentSummary{doc.Breadcrump, doc.PrevSiblings, doc.NextSiblings, doc.Children} {
		for i := range list {
			summaries = append(summaries, &list[i])
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.siteSettings.ScrapeConcurrency)
	for _, summary := range summaries {
		g.Go(func() error {
			scraped, err := scrape.Summary(ctx, s.httpClient, summary.URL)
			if err != nil {
				return fmt.Errorf("failed to scrape %s: %w", summary.URL, err)
			}
			if scraped.Title != "" {
				summary.Title = scraped.Title
			}
			summary.Description = scraped.Description
			summary.Keywords = scraped.Keywords
			return nil
		})
	}
	return g.Wait()
}
