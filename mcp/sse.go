package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/foomo/contentserver-richtext/richtext"
	"github.com/foomo/contentserver-richtext/service"
	"go.uber.org/zap"
)

// SSEEvent represents an SSE event structure
type SSEEvent struct {
	ID        string    `json:"id"`
	Event     string    `json:"event"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

func newEvent(name string, data any) SSEEvent {
	now := time.Now()
	return SSEEvent{
		ID:        fmt.Sprintf("%s_%d", name, now.UnixNano()),
		Event:     name,
		Data:      data,
		Timestamp: now,
	}
}

// SSEClient represents a connected SSE client
type SSEClient struct {
	ID       string
	Writer   http.ResponseWriter
	Flusher  http.Flusher
	Done     chan struct{}
	LastSeen time.Time
	mu       sync.Mutex
	closed   bool // set once the handler owning Writer has returned
}

var errClientClosed = errors.New("client closed")

// SSEServerConfig holds configuration for the SSE server
type SSEServerConfig struct {
	KeepaliveInterval time.Duration
	BufferSize        int
	ClientTimeout     time.Duration
}

// DefaultSSEServerConfig returns the default configuration for SSE server
func DefaultSSEServerConfig() *SSEServerConfig {
	return &SSEServerConfig{
		KeepaliveInterval: 30 * time.Second,
		BufferSize:        100,
		ClientTimeout:     60 * time.Second,
	}
}

// SSEServer streams render and document results. Subscribers on /sse
// receive a "rendered" event for every render done through the SSE
// endpoints.
type SSEServer struct {
	logger       *zap.Logger
	service      service.Service
	renderer     *richtext.Cache
	config       *SSEServerConfig
	clients      map[string]*SSEClient
	clientsMutex sync.RWMutex
	broadcast    chan SSEEvent
	done         chan struct{}
	closeOnce    sync.Once
	nextClientID int
}

// NewSSEServer creates the SSE server and starts its broadcast loop.
func NewSSEServer(logger *zap.Logger, serviceInstance service.Service, renderer *richtext.Cache, config *SSEServerConfig) *SSEServer {
	if config == nil {
		config = DefaultSSEServerConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = richtext.NewCache(0)
	}

	s := &SSEServer{
		logger:    logger,
		service:   serviceInstance,
		renderer:  renderer,
		config:    config,
		clients:   make(map[string]*SSEClient),
		broadcast: make(chan SSEEvent, config.BufferSize),
		done:      make(chan struct{}),
	}

	go s.broadcastLoop()

	return s
}

// Close stops the broadcast loop. Events broadcast afterwards are dropped.
func (s *SSEServer) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *SSEServer) broadcastLoop() {
	for {
		var event SSEEvent
		select {
		case <-s.done:
			return
		case event = <-s.broadcast:
		}

		s.clientsMutex.RLock()
		clients := make([]*SSEClient, 0, len(s.clients))
		for _, client := range s.clients {
			clients = append(clients, client)
		}
		s.clientsMutex.RUnlock()

		for _, client := range clients {
			select {
			case <-client.Done:
				s.removeClient(client.ID)
			default:
				if err := sendEventToClient(client, event); err != nil {
					s.logger.Error("failed to send event to client", zap.String("clientID", client.ID), zap.Error(err))
					s.removeClient(client.ID)
				}
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, event SSEEvent) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Event, eventJSON); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func sendEventToClient(client *SSEClient, event SSEEvent) error {
	client.mu.Lock()
	defer client.mu.Unlock()
	if client.closed {
		return errClientClosed
	}
	if err := writeEvent(client.Writer, client.Flusher, event); err != nil {
		return err
	}
	client.LastSeen = time.Now()
	return nil
}

func (s *SSEServer) addClient(w http.ResponseWriter, flusher http.Flusher) *SSEClient {
	s.clientsMutex.Lock()
	s.nextClientID++
	client := &SSEClient{
		ID:       fmt.Sprintf("client_%d_%d", time.Now().Unix(), s.nextClientID),
		Writer:   w,
		Flusher:  flusher,
		Done:     make(chan struct{}),
		LastSeen: time.Now(),
	}
	s.clients[client.ID] = client
	s.clientsMutex.Unlock()

	connectEvent := newEvent("connected", map[string]string{"clientID": client.ID, "message": "Connected to MCP SSE server"})
	if err := sendEventToClient(client, connectEvent); err != nil {
		s.logger.Error("failed to send connection event", zap.String("clientID", client.ID), zap.Error(err))
		s.removeClient(client.ID)
		return nil
	}

	s.logger.Info("SSE client connected", zap.String("clientID", client.ID))
	return client
}

func (s *SSEServer) removeClient(clientID string) {
	s.clientsMutex.Lock()
	defer s.clientsMutex.Unlock()

	if client, exists := s.clients[clientID]; exists {
		close(client.Done)
		delete(s.clients, clientID)
		s.logger.Info("SSE client disconnected", zap.String("clientID", clientID))
	}
}

func (s *SSEServer) broadcastEvent(event SSEEvent) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.broadcast <- event:
	default:
		s.logger.Warn("broadcast channel full, dropping event", zap.String("eventID", event.ID))
	}
}

func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

// HandleSSE subscribes a client to broadcast events until it disconnects.
func (s *SSEServer) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	setSSEHeaders(w)
	w.Header().Set("Access-Control-Allow-Headers", "Cache-Control")

	client := s.addClient(w, flusher)
	if client == nil {
		return
	}
	defer func() {
		client.mu.Lock()
		client.closed = true
		client.mu.Unlock()
	}()

	ticker := time.NewTicker(s.config.KeepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			s.removeClient(client.ID)
			return
		case <-client.Done:
			return
		case <-ticker.C:
			keepalive := newEvent("keepalive", map[string]any{"timestamp": time.Now()})
			if err := sendEventToClient(client, keepalive); err != nil {
				s.removeClient(client.ID)
				return
			}
		}
	}
}

// HandleRenderSSE renders a posted RenderRequest and streams the result.
func (s *SSEServer) HandleRenderSSE(w http.ResponseWriter, r *http.Request) {
	var request RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	s.stream(w, "render", map[string]string{"format": request.Format}, func() (any, error) {
		response, err := render(s.renderer, request)
		if err != nil {
			return nil, err
		}
		return response, nil
	})
}

// HandleGetDocumentSSE handles getDocument requests via SSE
func (s *SSEServer) HandleGetDocumentSSE(w http.ResponseWriter, r *http.Request) {
	if s.service == nil {
		http.Error(w, "Document service not available", http.StatusServiceUnavailable)
		return
	}

	var request GetDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if request.Path == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}

	s.stream(w, "document", map[string]string{"path": request.Path}, func() (any, error) {
		document, err := s.service.GetDocument(r.Context(), request.Path)
		if err != nil {
			return nil, err
		}
		return GetDocumentResponse{Document: document}, nil
	})
}

// stream writes <name>_start, then <name>_result or <name>_error, then
// <name>_complete. Successful results are also broadcast to subscribers.
func (s *SSEServer) stream(w http.ResponseWriter, name string, start any, run func() (any, error)) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	setSSEHeaders(w)

	if err := writeEvent(w, flusher, newEvent(name+"_start", start)); err != nil {
		s.logger.Error("failed to write event", zap.String("event", name+"_start"), zap.Error(err))
		return
	}

	result, err := run()
	if err != nil {
		_ = writeEvent(w, flusher, newEvent(name+"_error", map[string]string{"error": err.Error()}))
		return
	}
	if err := writeEvent(w, flusher, newEvent(name+"_result", result)); err != nil {
		s.logger.Error("failed to write event", zap.String("event", name+"_result"), zap.Error(err))
		return
	}
	_ = writeEvent(w, flusher, newEvent(name+"_complete", map[string]string{"status": "completed"}))

	s.broadcastEvent(newEvent("rendered", map[string]any{"source": name, "start": start}))
}

// GetConnectedClients returns information about connected clients
func (s *SSEServer) GetConnectedClients() []map[string]any {
	s.clientsMutex.RLock()
	defer s.clientsMutex.RUnlock()

	clients := make([]map[string]any, 0, len(s.clients))
	for _, client := range s.clients {
		client.mu.Lock()
		lastSeen := client.LastSeen
		client.mu.Unlock()
		clients = append(clients, map[string]any{
			"id":        client.ID,
			"lastSeen":  lastSeen,
			"connected": time.Since(lastSeen) < s.config.ClientTimeout,
		})
	}
	return clients
}

// GetStats returns server statistics
func (s *SSEServer) GetStats() map[string]any {
	s.clientsMutex.RLock()
	defer s.clientsMutex.RUnlock()

	return map[string]any{
		"connectedClients": len(s.clients),
		"bufferSize":       len(s.broadcast),
		"cachedRenders":    s.renderer.Len(),
		"serverVersion":    Version,
	}
}
