package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/foomo/contentserver-richtext/richtext"
	"github.com/foomo/contentserver-richtext/service/vo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHTTPServer(t *testing.T, config Config) (*httptest.Server, *McpHTTPSSEServer) {
	t.Helper()
	if config.Renderer == nil {
		config.Renderer = richtext.NewCache(time.Minute)
	}
	h := NewMcpHTTPSSEServer(nil, NewServer(config), config, "/mcp", &SSEServerConfig{
		KeepaliveInterval: time.Hour,
		BufferSize:        10,
		ClientTimeout:     time.Minute,
	})
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		srv.Close()
		h.GetSSEServer().Close()
	})
	return srv, h
}

// readEvents parses "event:" names from an SSE body.
func readEvents(t *testing.T, body string) []string {
	t.Helper()
	var events []string
	for _, line := range strings.Split(body, "\n") {
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			events = append(events, name)
		}
	}
	return events
}

func postSSE(t *testing.T, url, body string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var b strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		b.WriteString(scanner.Text() + "\n")
	}
	return resp, b.String()
}

func TestHandleRenderSSE(t *testing.T) {
	srv, h := newTestHTTPServer(t, Config{})

	payload, err := json.Marshal(RenderRequest{Document: faqAnswer})
	require.NoError(t, err)
	resp, body := postSSE(t, srv.URL+"/mcp/sse/render", string(payload))
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, []string{"render_start", "render_result", "render_complete"}, readEvents(t, body))
	assert.Contains(t, body, `Twice a year.`)

	_, body = postSSE(t, srv.URL+"/mcp/sse/render", `{"document":"x","format":"pdf"}`)
	assert.Equal(t, []string{"render_start", "render_error"}, readEvents(t, body))

	resp, _ = postSSE(t, srv.URL+"/mcp/sse/render", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Equal(t, 1, h.GetSSEServer().renderer.Len())
}

func TestHandleGetDocumentSSE(t *testing.T) {
	srv, _ := newTestHTTPServer(t, Config{})
	resp, _ := postSSE(t, srv.URL+"/mcp/sse/document", `{"path":"/"}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	stub := &stubService{document: &vo.Document{DocumentSummary: vo.DocumentSummary{ID: "home"}}}
	srv, _ = newTestHTTPServer(t, Config{Service: stub})
	resp, _ = postSSE(t, srv.URL+"/mcp/sse/document", `{"path":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, body := postSSE(t, srv.URL+"/mcp/sse/document", `{"path":"/"}`)
	assert.Equal(t, []string{"document_start", "document_result", "document_complete"}, readEvents(t, body))
	assert.Contains(t, body, `"id":"home"`)
}

func TestSSESubscriberReceivesBroadcast(t *testing.T) {
	srv, h := newTestHTTPServer(t, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/mcp/sse", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	events := make(chan string, 10)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if name, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
				events <- name
			}
		}
		close(events)
	}()

	require.Equal(t, "connected", <-events)
	assert.Len(t, h.GetSSEServer().GetConnectedClients(), 1)

	postSSE(t, srv.URL+"/mcp/sse/render", `{"document":"hello"}`)
	select {
	case name := <-events:
		assert.Equal(t, "rendered", name)
	case <-time.After(5 * time.Second):
		t.Fatal("no broadcast event received")
	}

	statsResp, err := http.Get(srv.URL + "/mcp/sse/stats")
	require.NoError(t, err)
	defer statsResp.Body.Close()
	var stats map[string]any
	require.NoError(t, json.NewDecoder(statsResp.Body).Decode(&stats))
	assert.Equal(t, float64(1), stats["connectedClients"])
	assert.Equal(t, Version, stats["serverVersion"])
}

func TestSSEServerRenderAfterClose(t *testing.T) {
	s := NewSSEServer(nil, nil, richtext.NewCache(0), &SSEServerConfig{
		KeepaliveInterval: time.Hour,
		BufferSize:        1,
		ClientTimeout:     time.Minute,
	})
	s.Close()
	s.Close()

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/sse/render", strings.NewReader(`{"document":"hello"}`))
		require.NotPanics(t, func() { s.HandleRenderSSE(rec, req) })
		assert.Equal(t, []string{"render_start", "render_result", "render_complete"}, readEvents(t, rec.Body.String()))
	}
}
