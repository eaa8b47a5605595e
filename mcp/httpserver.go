package mcp

import (
	"encoding/json"
	"net/http"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// NewMcpHTTPServer creates a streamable MCP HTTP server without SSE endpoints
func NewMcpHTTPServer(s *server.MCPServer, endpoint string) *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s,
		server.WithEndpointPath(endpoint),
	)
}

// McpHTTPSSEServer combines MCP HTTP server with SSE capabilities
type McpHTTPSSEServer struct {
	mux       *http.ServeMux
	sseServer *SSEServer
}

// NewMcpHTTPSSEServer serves the MCP endpoint and the SSE endpoints below it:
// /sse, /sse/render, /sse/document, /sse/clients and /sse/stats.
func NewMcpHTTPSSEServer(logger *zap.Logger, s *server.MCPServer, config Config, endpoint string, sseConfig *SSEServerConfig) *McpHTTPSSEServer {
	sseServer := NewSSEServer(logger, config.Service, config.Renderer, sseConfig)

	mux := http.NewServeMux()
	mux.Handle(endpoint, NewMcpHTTPServer(s, endpoint))

	mux.HandleFunc(endpoint+"/sse", sseServer.HandleSSE)
	mux.HandleFunc(endpoint+"/sse/render", sseServer.HandleRenderSSE)
	mux.HandleFunc(endpoint+"/sse/document", sseServer.HandleGetDocumentSSE)
	mux.HandleFunc(endpoint+"/sse/clients", func(w http.ResponseWriter, r *http.Request) {
		clients := sseServer.GetConnectedClients()
		writeJSON(logger, w, map[string]any{
			"connectedClients": len(clients),
			"clients":          clients,
		})
	})
	mux.HandleFunc(endpoint+"/sse/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(logger, w, sseServer.GetStats())
	})

	return &McpHTTPSSEServer{
		mux:       mux,
		sseServer: sseServer,
	}
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if err := json.NewEncoder(w).Encode(v); err != nil && logger != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

// ServeHTTP implements http.Handler
func (s *McpHTTPSSEServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// GetSSEServer returns the underlying SSE server for direct access
func (s *McpHTTPSSEServer) GetSSEServer() *SSEServer {
	return s.sseServer
}
