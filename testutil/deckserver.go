package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// Response is a canned HTTP reply of the fake deck server
type Response struct {
	Status int
	Body   string
}

// Request is a request captured by the fake deck server
type Request struct {
	Method string
	Path   string
	Body   []byte
}

// DecodeBody unmarshals the captured body into v
func (r Request) DecodeBody(t *testing.T, v interface{}) {
	t.Helper()
	JSONUnmarshal(t, r.Body, v)
}

// DeckServer is an in-process stand-in for the deck backend. It serves the chat,
// approval and integration endpoints plus the push WebSocket at /ws.
type DeckServer struct {
	*httptest.Server

	mu        sync.Mutex
	responses map[string]Response
	requests  []Request
	conns     []*websocket.Conn
	accepts   int
	reject    bool

	connected chan struct{}
	upgrader  websocket.Upgrader
}

// NewDeckServer starts a fake deck server. It is closed when the test ends.
func NewDeckServer(t *testing.T) *DeckServer {
	t.Helper()
	s := &DeckServer{
		responses: make(map[string]Response),
		connected: make(chan struct{}, 16),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/", s.serveAPI)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// Close drops every push connection and shuts the server down
func (s *DeckServer) Close() {
	s.DropConnections()
	s.Server.Close()
}

// PushURL returns the ws:// URL of the push endpoint
func (s *DeckServer) PushURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
}

// Respond sets the reply for path. Unconfigured API paths answer 404.
func (s *DeckServer) Respond(path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[path] = Response{Status: status, Body: body}
}

// Requests returns every API request received so far
func (s *DeckServer) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// RejectPush makes the push endpoint refuse the handshake
func (s *DeckServer) RejectPush(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reject = reject
}

// Accepts returns the number of push handshakes accepted
func (s *DeckServer) Accepts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepts
}

// WaitConnected blocks until a push client has connected
func (s *DeckServer) WaitConnected(t *testing.T, timeout time.Duration) {
	t.Helper()
	select {
	case <-s.connected:
	case <-time.After(timeout):
		t.Fatalf("no push connection within %s", timeout)
	}
}

// Push sends a text frame to every connected push client
func (s *DeckServer) Push(t *testing.T, frame string) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		if err := c.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			t.Fatalf("push failed: %v", err)
		}
	}
}

// DropConnections closes every push connection without a close handshake
func (s *DeckServer) DropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		_ = c.Close()
	}
	s.conns = nil
}

func (s *DeckServer) serveAPI(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Body: body})
	resp, ok := s.responses[r.URL.Path]
	s.mu.Unlock()

	if !ok {
		if r.URL.Path == "/" {
			resp = Response{Status: http.StatusOK, Body: `{"status":"ok"}`}
		} else {
			resp = Response{Status: http.StatusNotFound, Body: `{"detail":"Not Found"}`}
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	_, _ = io.WriteString(w, resp.Body)
}

func (s *DeckServer) serveWS(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	reject := s.reject
	s.mu.Unlock()
	if reject {
		http.Error(w, "push disabled", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.accepts++
	s.mu.Unlock()

	select {
	case s.connected <- struct{}{}:
	default:
	}

	// drain client frames so close handshakes complete
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				_ = conn.Close()
				return
			}
		}
	}()
}

// ChatReply builds a successful chat response body
func ChatReply(markup string) string {
	data, _ := json.Marshal(map[string]string{"response": markup})
	return string(data)
}
