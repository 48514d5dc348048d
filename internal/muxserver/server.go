// Package muxserver implements the Downstream Multiplexer Server: the
// single MCP endpoint through which a client sees every upstream's tools
// as one namespaced catalog. Same JSON-RPC envelope, CORS, protocol
// version negotiation, and session header handling as a plain MCP
// server, generalized to delegate tool state to a Fleet Manager instead
// of an in-process map.
package muxserver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/spike-land/spike/internal/protocol"
)

// ToolProvider is the subset of internal/fleet.Manager the downstream
// server needs: the aggregated catalog and call dispatch.
type ToolProvider interface {
	GetAllTools() []protocol.Tool
	CallTool(ctx context.Context, wireName string, args map[string]interface{}) (protocol.CallResult, error)
}

// Config controls the downstream endpoint's auth and identity.
type Config struct {
	Name       string
	Version    string
	APIKey     string // empty disables X-Api-Key auth
	SessionMgr protocol.SessionManager
}

// Server is the downstream-facing MCP endpoint.
type Server struct {
	cfg    Config
	fleet  ToolProvider
	logger *slog.Logger
	instr  string

	sseMu    sync.Mutex
	sessions map[string]chan struct{}
}

// New constructs a downstream Server over fleet.
func New(cfg Config, fleet ToolProvider, logger *slog.Logger) *Server {
	return &Server{cfg: cfg, fleet: fleet, logger: logger, sessions: make(map[string]chan struct{})}
}

// SetInstructions sets the text returned in InitializeResult.Instructions.
func (s *Server) SetInstructions(instructions string) { s.instr = instructions }

// HandleRequest is the HTTP entry point for HTTP-streaming downstream
// clients (the /mcp endpoint). SSE clients are served by HandleSSE and
// HandleMessages, and stdio clients by RunStdio.
func (s *Server) HandleRequest(w http.ResponseWriter, r *http.Request) {
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

	if r.Method == http.MethodDelete {
		s.handleDelete(w, r)
		return
	}
	if r.Method == http.MethodGet {
		s.handleStreamAttach(w, r)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET, POST, DELETE, OPTIONS")
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType != "application/json" && !strings.HasPrefix(contentType, "application/json;") {
		http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
		return
	}

	var req protocol.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, nil, protocol.ErrorCodeParseError, "parse error", err.Error())
		return
	}
	if req.JSONRPC != "2.0" {
		s.sendError(w, req.ID, protocol.ErrorCodeInvalidRequest, "jsonrpc field must be 2.0", nil)
		return
	}
	if req.ID == nil {
		req.ID = ""
	}

	if req.Method != "initialize" {
		if !s.checkProtocolVersion(w, r) {
			return
		}
		if !s.checkSession(w, r) {
			return
		}
	}

	switch req.Method {
	case "initialize":
		s.handleInitialize(w, r, &req)
	case "ping":
		s.sendResult(w, req.ID, map[string]interface{}{})
	case "tools/list":
		s.handleToolsList(w, req.ID)
	case "tools/call":
		s.handleToolsCall(w, r, &req)
	default:
		s.sendError(w, req.ID, protocol.ErrorCodeMethodNotFound, "method not found", map[string]interface{}{"method": req.Method})
	}
}

func (s *Server) writeCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Api-Key, MCP-Protocol-Version, MCP-Session-Id")
	w.Header().Set("Access-Control-Max-Age", "86400")
}

// writeJSONError writes a JSON-shaped {error: message} body, the wire
// shape used by the unknown-path and unsupported-method responses.
func (s *Server) writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// authorize checks the X-Api-Key header against the configured key. A
// header of a different length is rejected at once; one of equal length
// is compared in constant time, so the key's content is not leaked via
// response timing. A request with no configured key always passes.
func (s *Server) authorize(r *http.Request) bool {
	if s.cfg.APIKey == "" {
		return true
	}
	presented := r.Header.Get("X-Api-Key")
	if len(presented) != len(s.cfg.APIKey) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(s.cfg.APIKey)) == 1
}

func (s *Server) checkProtocolVersion(w http.ResponseWriter, r *http.Request) bool {
	version := r.Header.Get("MCP-Protocol-Version")
	if version == "" {
		version = protocol.ProtocolVersionMin
	}
	if !protocol.IsSupportedProtocolVersion(version) {
		http.Error(w, fmt.Sprintf("unsupported MCP-Protocol-Version: %s", version), http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) checkSession(w http.ResponseWriter, r *http.Request) bool {
	if s.cfg.SessionMgr == nil {
		return true
	}
	sessionID := r.Header.Get("MCP-Session-Id")
	if sessionID == "" {
		http.Error(w, "MCP-Session-Id header required", http.StatusBadRequest)
		return false
	}
	valid, err := s.cfg.SessionMgr.ValidateSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, fmt.Sprintf("session validation error: %v", err), http.StatusInternalServerError)
		return false
	}
	if !valid {
		http.Error(w, "session not found", http.StatusNotFound)
		return false
	}
	return true
}

// handleDelete closes a session. It is tolerant of a missing session
// manager, a missing session id, and an unknown or already-closed
// session: DELETE is idempotent from the client's point of view, so
// none of those are reported as an error.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if s.cfg.SessionMgr != nil {
		if sessionID := r.Header.Get("MCP-Session-Id"); sessionID != "" {
			if err := s.cfg.SessionMgr.DeleteSession(r.Context(), sessionID); err != nil {
				s.logger.Warn("failed to delete session", "session", sessionID, "error", err)
			}
		}
	}
	s.closeSSESession(r.Header.Get("MCP-Session-Id"))
	w.WriteHeader(http.StatusOK)
}

// initializeResult negotiates a protocol version and builds the
// InitializeResult shared by every transport's initialize handling.
func (s *Server) initializeResult(protocolVersion string) protocol.InitializeResult {
	version := protocolVersion
	if !protocol.IsSupportedProtocolVersion(version) {
		version = protocol.ProtocolVersionLatest
	}
	return protocol.InitializeResult{
		ProtocolVersion: version,
		Capabilities:    protocol.Capabilities{Tools: map[string]interface{}{"listChanged": true}},
		ServerInfo:      protocol.ServerInfo{Name: s.cfg.Name, Version: s.cfg.Version},
		Instructions:    s.instr,
	}
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request, req *protocol.Request) {
	var params protocol.InitializeParams
	if err := decodeParams(req, &params); err != nil {
		s.sendError(w, req.ID, protocol.ErrorCodeInvalidParams, "invalid params", nil)
		return
	}

	result := s.initializeResult(params.ProtocolVersion)

	if s.cfg.SessionMgr != nil {
		sessionID, err := s.cfg.SessionMgr.CreateSession(r.Context(), result.ProtocolVersion)
		if err != nil {
			s.sendError(w, req.ID, protocol.ErrorCodeInternalError, "failed to create session", nil)
			return
		}
		w.Header().Set("MCP-Session-Id", sessionID)
	}

	s.sendResult(w, req.ID, result)
}

func (s *Server) handleToolsList(w http.ResponseWriter, id interface{}) {
	s.sendResult(w, id, map[string]interface{}{"tools": s.fleet.GetAllTools()})
}

func (s *Server) handleToolsCall(w http.ResponseWriter, r *http.Request, req *protocol.Request) {
	var params protocol.ToolCallParams
	if err := decodeParams(req, &params); err != nil {
		s.sendError(w, req.ID, protocol.ErrorCodeInvalidParams, "invalid params", nil)
		return
	}
	resp := s.dispatchToolsCall(r.Context(), req.ID, params)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// dispatchToolsCall invokes a tool through the fleet and wraps any
// dispatch error into an isError result rather than a JSON-RPC error,
// matching tools/call's own error-reporting convention. Shared by every
// transport.
func (s *Server) dispatchToolsCall(ctx context.Context, id interface{}, params protocol.ToolCallParams) protocol.Response {
	start := time.Now()
	result, err := s.fleet.CallTool(ctx, params.Name, params.Arguments)
	s.logger.Debug("downstream tool call", "tool", params.Name, "duration", time.Since(start))
	if err != nil {
		result = protocol.CallResult{
			Content: []protocol.ContentBlock{{Type: "text", Text: err.Error()}},
			IsError: true,
		}
	}
	return protocol.Response{JSONRPC: "2.0", ID: id, Result: result}
}

// dispatchMethod runs one JSON-RPC method against the fleet/session
// state with no HTTP-header-specific behaviour, the shape the stdio
// loop and the SSE /messages handler both need (unlike HandleRequest's
// POST path, neither has an HTTP response to attach a session id to on
// initialize).
func (s *Server) dispatchMethod(ctx context.Context, req *protocol.Request) protocol.Response {
	switch req.Method {
	case "initialize":
		var params protocol.InitializeParams
		if err := decodeParams(req, &params); err != nil {
			return errorResponse(req.ID, protocol.ErrorCodeInvalidParams, "invalid params")
		}
		return protocol.Response{JSONRPC: "2.0", ID: req.ID, Result: s.initializeResult(params.ProtocolVersion)}
	case "ping":
		return protocol.Response{JSONRPC: "2.0", ID: req.ID, Result: map[string]interface{}{}}
	case "tools/list":
		return protocol.Response{JSONRPC: "2.0", ID: req.ID, Result: map[string]interface{}{"tools": s.fleet.GetAllTools()}}
	case "tools/call":
		var params protocol.ToolCallParams
		if err := decodeParams(req, &params); err != nil {
			return errorResponse(req.ID, protocol.ErrorCodeInvalidParams, "invalid params")
		}
		return s.dispatchToolsCall(ctx, req.ID, params)
	default:
		return errorResponse(req.ID, protocol.ErrorCodeMethodNotFound, "method not found")
	}
}

func errorResponse(id interface{}, code int, message string) protocol.Response {
	return protocol.Response{JSONRPC: "2.0", ID: id, Error: &protocol.Error{Code: code, Message: message}}
}

func decodeParams(req *protocol.Request, target interface{}) error {
	raw, err := json.Marshal(req.Params)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}

func (s *Server) sendResult(w http.ResponseWriter, id interface{}, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(protocol.Response{JSONRPC: "2.0", ID: id, Result: result})
}

func (s *Server) sendError(w http.ResponseWriter, id interface{}, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(protocol.Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &protocol.Error{Code: code, Message: message, Data: data},
	})
}

// HealthHandler reports liveness and current tool count for load
// balancer probes. Reachable without an API key.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "ok",
		"tools":  len(s.fleet.GetAllTools()),
	})
}

// NotFoundHandler reports the JSON-shaped 404 body for any path this
// server does not serve.
func (s *Server) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSONError(w, http.StatusNotFound, "Not found")
}
