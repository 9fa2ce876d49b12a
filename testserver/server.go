// Package testserver provides a local WebSocket server that records the
// frames it receives, for exercising wsprobe end to end.
package testserver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"wsprobe/internal/logging"
)

// Message is one text frame received by the server.
type Message struct {
	ConnID   int64     `json:"connId"`
	Data     string    `json:"data"`
	Received time.Time `json:"received"`
}

// Server is a recording WebSocket test server.
type Server struct {
	mux      *http.ServeMux
	upgrader websocket.Upgrader
	connID   atomic.Int64
	open     atomic.Int64
	logger   *slog.Logger

	mu       sync.Mutex
	messages []Message
	notify   chan struct{}
}

// NewServer creates a new test server with all endpoints configured.
func NewServer() *Server {
	s := &Server{
		mux: http.NewServeMux(),
		upgrader: websocket.Upgrader{
			// Local test tool: accept any origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		notify: make(chan struct{}),
		logger: logging.Nop(),
	}
	s.registerHandlers()
	return s
}

// WithLogger logs connections and received frames to logger.
func (s *Server) WithLogger(logger *slog.Logger) *Server {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerHandlers() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/stats", s.handleStats)
	s.mux.HandleFunc("/{$}", s.handleRecord)
	s.mux.HandleFunc("/ws", s.handleRecord)
	s.mux.HandleFunc("/ws/close", s.handleClose)
	s.mux.HandleFunc("/ws/reject", s.handleReject)
	s.mux.HandleFunc("/ws/slow", s.handleSlow)
}

// Messages returns a copy of every frame received so far, in arrival order.
func (s *Server) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

// Payloads returns the data of every received frame.
func (s *Server) Payloads() []string {
	msgs := s.Messages()
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Data
	}
	return out
}

// Connections returns how many WebSocket connections were accepted.
func (s *Server) Connections() int64 {
	return s.connID.Load()
}

// OpenConnections returns how many accepted connections are still open.
func (s *Server) OpenConnections() int64 {
	return s.open.Load()
}

// WaitForMessages blocks until at least n frames arrived or timeout elapses.
func (s *Server) WaitForMessages(n int, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		s.mu.Lock()
		got, ch := len(s.messages), s.notify
		s.mu.Unlock()
		if got >= n {
			return true
		}
		select {
		case <-ch:
		case <-deadline.C:
			return false
		}
	}
}

func (s *Server) record(connID int64, data []byte) {
	s.mu.Lock()
	s.messages = append(s.messages, Message{ConnID: connID, Data: string(data), Received: time.Now()})
	close(s.notify)
	s.notify = make(chan struct{})
	s.mu.Unlock()
	s.logger.Debug("frame received", "conn", connID, "bytes", len(data), "data", string(data))
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"ok"}`)
}

// handleStats reports connection and frame counts as JSON.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"connections": s.Connections(),
		"open":        s.OpenConnections(),
		"messages":    len(s.Messages()),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// handleRecord accepts a connection and records every frame until the client closes.
// With ?echo=true each text frame is also written back.
func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	echo, _ := strconv.ParseBool(r.URL.Query().Get("echo"))

	conn, id, ok := s.accept(w, r)
	if !ok {
		return
	}
	defer s.release(conn)

	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if typ != websocket.TextMessage {
			continue
		}
		s.record(id, data)
		if echo {
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

// handleClose accepts a connection, then closes it from the server side.
// Example: /ws/close?after=50 closes 50ms after the handshake.
func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	after, err := strconv.Atoi(r.URL.Query().Get("after"))
	if err != nil || after < 0 {
		after = 0
	}

	conn, _, ok := s.accept(w, r)
	if !ok {
		return
	}
	defer s.release(conn)

	time.Sleep(time.Duration(after) * time.Millisecond)
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

// handleReject fails the handshake with 403 Forbidden.
func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "websocket upgrade rejected", http.StatusForbidden)
}

// handleSlow delays the handshake, then records like /ws.
// Example: /ws/slow?ms=500
func (s *Server) handleSlow(w http.ResponseWriter, r *http.Request) {
	ms, err := strconv.Atoi(r.URL.Query().Get("ms"))
	if err != nil || ms < 0 {
		http.Error(w, "invalid delay", http.StatusBadRequest)
		return
	}
	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
	case <-r.Context().Done():
		return
	}
	s.handleRecord(w, r)
}

func (s *Server) accept(w http.ResponseWriter, r *http.Request) (*websocket.Conn, int64, bool) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		return nil, 0, false
	}
	s.open.Add(1)
	id := s.connID.Add(1)
	s.logger.Info("connection accepted", "conn", id, "path", r.URL.Path, "remote", r.RemoteAddr)
	return conn, id, true
}

func (s *Server) release(conn *websocket.Conn) {
	conn.Close()
	s.open.Add(-1)
	s.logger.Info("connection released", "remote", conn.RemoteAddr().String())
}
