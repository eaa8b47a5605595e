package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/foomo/contentserver-richtext/cms"
	"github.com/foomo/contentserver-richtext/richtext"
	"github.com/foomo/contentserver-richtext/service/vo"
	"github.com/foomo/contentserver/content"
	"github.com/foomo/contentserver/requests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const treatmentMime = "application/x-treatment"

// fakeContentServer serves a small site tree:
//
//	/ (home)
//	└── /treatments
//	    ├── /treatments/cleaning
//	    ├── /treatments/implants
//	    │   └── /treatments/implants/aftercare
//	    └── /treatments/whitening
type fakeContentServer struct {
	items map[string]*content.Item
	tree  map[string][]string
	err   error
}

func newFakeContentServer() *fakeContentServer {
	items := map[string]*content.Item{}
	add := func(id, name, uri, mime string) {
		items[id] = &content.Item{ID: id, Name: name, URI: uri, MimeType: mime}
	}
	add("home", "Home", "/", "application/x-page")
	add("treatments", "Treatments", "/treatments", "application/x-page")
	add("cleaning", "Cleaning", "/treatments/cleaning", treatmentMime)
	add("implants", "Implants", "/treatments/implants", treatmentMime)
	add("whitening", "Whitening", "/treatments/whitening", treatmentMime)
	add("aftercare", "Aftercare", "/treatments/implants/aftercare", "application/x-page")
	return &fakeContentServer{
		items: items,
		tree: map[string][]string{
			"home":       {"treatments"},
			"treatments": {"cleaning", "implants", "whitening"},
			"implants":   {"aftercare"},
		},
	}
}

func (f *fakeContentServer) GetContent(ctx context.Context, request *requests.Content) (*content.SiteContent, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, item := range f.items {
		if item.URI != request.URI {
			continue
		}
		sc := &content.SiteContent{MimeType: item.MimeType, Item: item}
		for id := item.ID; ; {
			parent := f.parentOf(id)
			if parent == "" {
				break
			}
			sc.Path = append(sc.Path, f.items[parent])
			id = parent
		}
		return sc, nil
	}
	return nil, errors.New("not found")
}

func (f *fakeContentServer) GetNodes(ctx context.Context, env *requests.Env, nodes map[string]*requests.Node) (map[string]*content.Node, error) {
	out := map[string]*content.Node{}
	for id := range nodes {
		node := &content.Node{Item: f.items[id], Nodes: map[string]*content.Node{}}
		for _, childID := range f.tree[id] {
			node.Index = append(node.Index, childID)
			node.Nodes[childID] = &content.Node{Item: f.items[childID]}
		}
		out[id] = node
	}
	return out, nil
}

func (f *fakeContentServer) parentOf(id string) string {
	for parent, children := range f.tree {
		for _, child := range children {
			if child == id {
				return parent
			}
		}
	}
	return ""
}

func newCMS(t *testing.T) *cms.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/treatments/implants":
			_, _ = w.Write([]byte(`{"id":"implants","title":"Implants","content":{"root":{"children":[
				{"type":"heading","tag":"h2","children":[{"type":"text","text":"Procedure"}]},
				{"type":"list","listType":"number","children":[{"type":"listitem","children":[{"type":"text","text":"Consultation"}]}]},
				{"type":"list","listType":"number","children":[{"type":"listitem","children":[{"type":"text","text":"Surgery"}]}]}]}}}`))
		case r.URL.Path == "/api/treatments/whitening":
			_, _ = w.Write([]byte(`{"id":"whitening","title":"Whitening"}`))
		case r.URL.Path == "/api/faqs" && r.URL.Query().Get("where[slug][equals]") == "payment":
			_, _ = w.Write([]byte(`{"docs":[{"id":"f1","slug":"payment","question":"Can I pay in installments?","answer":"Yes, ask at the front desk."}]}`))
		case r.URL.Path == "/api/faqs":
			_, _ = w.Write([]byte(`{"docs":[]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return cms.New(srv.URL, cms.WithHTTPClient(srv.Client()), cms.WithRetry(1, time.Millisecond))
}

func newTestService(t *testing.T, settings SiteSettings) Service {
	t.Helper()
	if settings.BaseURL == "" {
		settings.BaseURL = "https://praxis.example"
	}
	settings.Collections = map[vo.MimeType]Collection{
		treatmentMime: {Name: cms.CollectionTreatments, RichTextField: "content"},
		"application/x-faq": {Name: cms.CollectionFAQs, RichTextField: "answer"},
	}
	return NewService(nil, settings, nil, newFakeContentServer(), newCMS(t), richtext.NewCache(time.Minute))
}

func titles(summaries []vo.DocumentSummary) []string {
	var out []string
	for _, s := range summaries {
		out = append(out, s.Title)
	}
	return out
}

func TestGetDocument(t *testing.T) {
	s := newTestService(t, SiteSettings{})
	doc, err := s.GetDocument(context.Background(), "/treatments/implants")
	require.NoError(t, err)

	assert.Equal(t, "implants", doc.DocumentSummary.ID)
	assert.Equal(t, "https://praxis.example/treatments/implants", doc.DocumentSummary.URL)
	assert.Equal(t, vo.MimeType(treatmentMime), doc.DocumentSummary.MimeType)
	assert.Equal(t, []string{"Home", "Treatments"}, titles(doc.Breadcrump))
	assert.Equal(t, []string{"Cleaning"}, titles(doc.PrevSiblings))
	assert.Equal(t, []string{"Whitening"}, titles(doc.NextSiblings))
	assert.Equal(t, []string{"Aftercare"}, titles(doc.Children))

	require.NotNil(t, doc.Content)
	assert.Equal(t, "treatments", doc.Content.Collection)
	assert.Equal(t, "content", doc.Content.Field)
	assert.Equal(t, vo.HTML(`<h2 class="`+richtext.HeadingClass(2)+`">Procedure</h2><ol><li>Consultation</li><li>Surgery</li></ol>`), doc.Content.HTML)
	assert.Contains(t, string(doc.Content.Markdown), "## Procedure")
}

func TestGetDocumentWithoutBody(t *testing.T) {
	s := newTestService(t, SiteSettings{})

	doc, err := s.GetDocument(context.Background(), "/treatments")
	require.NoError(t, err)
	assert.Nil(t, doc.Content)
	assert.Equal(t, []string{"Home"}, titles(doc.Breadcrump))

	// mapped collection, but the entry has no content field
	doc, err = s.GetDocument(context.Background(), "/treatments/whitening")
	require.NoError(t, err)
	require.NotNil(t, doc.Content)
	assert.Empty(t, doc.Content.HTML)

	// mapped collection, entry missing in the CMS
	doc, err = s.GetDocument(context.Background(), "/treatments/cleaning")
	require.NoError(t, err)
	assert.Nil(t, doc.Content)
}

func TestGetDocumentContentServerError(t *testing.T) {
	cs := newFakeContentServer()
	cs.err = errors.New("connection refused")
	s := NewService(nil, SiteSettings{}, nil, cs, nil, nil)
	_, err := s.GetDocument(context.Background(), "/")
	assert.ErrorContains(t, err, "connection refused")
}

func TestServiceWithoutContentServer(t *testing.T) {
	s := NewService(nil, SiteSettings{
		Collections: map[vo.MimeType]Collection{
			"application/x-faq": {Name: cms.CollectionFAQs, RichTextField: "answer"},
		},
	}, nil, nil, newCMS(t), nil)

	_, err := s.GetDocument(context.Background(), "/")
	assert.ErrorIs(t, err, ErrNoContentServer)

	rendered, err := s.RenderField(context.Background(), cms.CollectionFAQs, "payment", "")
	require.NoError(t, err)
	assert.Equal(t, vo.HTML("Yes, ask at the front desk."), rendered.HTML)
}

func TestRenderFieldWithoutCMS(t *testing.T) {
	s := NewService(nil, SiteSettings{}, nil, newFakeContentServer(), nil, nil)
	_, err := s.RenderField(context.Background(), cms.CollectionFAQs, "payment", "answer")
	assert.ErrorIs(t, err, ErrNoCMS)
}

func TestGetDocumentScrapesSummaries(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.Trim(r.URL.Path, "/")
		if name == "" {
			name = "home"
		}
		_, _ = w.Write([]byte(`<html><head><title>` + name + ` | Praxis</title><meta name="description" content="about ` + name + `"></head><body></body></html>`))
	}))
	defer site.Close()

	s := newTestService(t, SiteSettings{BaseURL: site.URL, ScrapeSummaries: true, ScrapeConcurrency: 2})
	doc, err := s.GetDocument(context.Background(), "/treatments/implants")
	require.NoError(t, err)
	assert.Equal(t, "treatments/implants | Praxis", doc.DocumentSummary.Title)
	assert.Equal(t, "about treatments/implants", doc.DocumentSummary.Description)
	assert.Equal(t, []string{"home | Praxis", "treatments | Praxis"}, titles(doc.Breadcrump))
	assert.Equal(t, "about treatments/implants/aftercare", doc.Children[0].Description)
}

func TestRenderField(t *testing.T) {
	s := newTestService(t, SiteSettings{})

	rendered, err := s.RenderField(context.Background(), cms.CollectionFAQs, "payment", "")
	require.NoError(t, err)
	assert.Equal(t, "f1", rendered.EntryID)
	assert.Equal(t, "answer", rendered.Field)
	assert.Equal(t, "payment", rendered.Slug)
	assert.Equal(t, "Can I pay in installments?", rendered.Title)
	// plain text fields pass through unchanged
	assert.Equal(t, vo.HTML("Yes, ask at the front desk."), rendered.HTML)

	_, err = s.RenderField(context.Background(), cms.CollectionFAQs, "unknown", "answer")
	assert.ErrorIs(t, err, cms.ErrNotFound)

	_, err = s.RenderField(context.Background(), "careers", "dental-assistant", "")
	assert.ErrorIs(t, err, ErrUnknownCollection)
}
