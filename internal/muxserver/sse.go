package muxserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/spike-land/spike/internal/protocol"
)

const sseKeepaliveInterval = 25 * time.Second

// handleStreamAttach serves GET /mcp: it attaches an event-stream to an
// already-initialized HTTP-streaming session and holds the connection
// open until the client disconnects or the session is deleted.
func (s *Server) handleStreamAttach(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("MCP-Session-Id")
	if s.cfg.SessionMgr != nil {
		if sessionID == "" {
			http.Error(w, "MCP-Session-Id header required", http.StatusBadRequest)
			return
		}
		valid, err := s.cfg.SessionMgr.ValidateSession(r.Context(), sessionID)
		if err != nil || !valid {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
	}
	s.streamEvents(w, r, sessionID, "")
}

// HandleSSE serves GET /sse, the legacy transport's entry point: it mints
// a new session, announces it in the stream prelude, and registers the
// session so a matching POST /messages?sessionId=<id> can be routed.
func (s *Server) HandleSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		s.writeCORSHeaders(w)
		w.WriteHeader(http.StatusOK)
		return
	}
	s.writeCORSHeaders(w)
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET, OPTIONS")
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	sessionID, err := s.newSSESessionID(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to create session: %v", err), http.StatusInternalServerError)
		return
	}
	s.streamEvents(w, r, sessionID, fmt.Sprintf("/messages?sessionId=%s", sessionID))
}

// streamEvents writes the SSE response headers, an optional prelude
// event carrying prelude (the session endpoint, for the legacy
// transport), registers sessionID against a done channel, and blocks on
// a keepalive loop until the client disconnects or the session closes.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request, sessionID, prelude string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if prelude != "" {
		fmt.Fprintf(w, "event: endpoint\ndata: %s\n\n", prelude)
	} else {
		fmt.Fprintf(w, "event: session\ndata: {\"sessionId\":%q}\n\n", sessionID)
	}
	flusher.Flush()

	done := s.registerSession(sessionID)
	defer s.closeSSESession(sessionID)

	ticker := time.NewTicker(sseKeepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-done:
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

// HandleMessages serves POST /messages?sessionId=<id>, the legacy
// transport's message-delivery endpoint.
func (s *Server) HandleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		s.writeCORSHeaders(w)
		w.WriteHeader(http.StatusOK)
		return
	}
	s.writeCORSHeaders(w)
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST, OPTIONS")
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		s.writeJSONError(w, http.StatusBadRequest, "sessionId query parameter required")
		return
	}
	if !s.sessionKnown(sessionID) {
		s.writeJSONError(w, http.StatusNotFound, "unknown session")
		return
	}

	var req protocol.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid JSON-RPC request")
		return
	}
	if req.ID == nil {
		req.ID = ""
	}

	resp := s.dispatchMethod(r.Context(), &req)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) newSSESessionID(ctx context.Context) (string, error) {
	if s.cfg.SessionMgr != nil {
		return s.cfg.SessionMgr.CreateSession(ctx, protocol.ProtocolVersionLatest)
	}
	return randomSessionID()
}

// randomSessionID mints a session id for the no-SessionManager fallback
// path (production wiring always configures a SessionManager). A time-ordered UUIDv7 keeps ids roughly sortable by
// mint time without needing a separate sequence counter.
func randomSessionID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// registerSession tracks id against a done channel a matching
// /messages POST or DELETE can close to unblock the stream's keepalive
// loop. A blank id (no session manager configured) is not tracked.
func (s *Server) registerSession(id string) chan struct{} {
	done := make(chan struct{})
	if id == "" {
		return done
	}
	s.sseMu.Lock()
	s.sessions[id] = done
	s.sseMu.Unlock()
	return done
}

func (s *Server) sessionKnown(id string) bool {
	s.sseMu.Lock()
	defer s.sseMu.Unlock()
	_, ok := s.sessions[id]
	return ok
}

// closeSSESession unblocks and forgets any stream registered under id.
// Safe to call for an id with no attached stream.
func (s *Server) closeSSESession(id string) {
	if id == "" {
		return
	}
	s.sseMu.Lock()
	done, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.sseMu.Unlock()
	if ok {
		close(done)
	}
}
