package muxserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spike-land/spike/internal/protocol"
)

type fakeFleet struct {
	tools []protocol.Tool
	calls map[string]protocol.CallResult
}

func (f *fakeFleet) GetAllTools() []protocol.Tool { return f.tools }

func (f *fakeFleet) CallTool(ctx context.Context, wireName string, args map[string]interface{}) (protocol.CallResult, error) {
	return f.calls[wireName], nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(apiKey string) (*Server, *fakeFleet) {
	fleet := &fakeFleet{
		tools: []protocol.Tool{{Name: "github__search_issues", Description: "search"}},
		calls: map[string]protocol.CallResult{
			"github__search_issues": {Content: []protocol.ContentBlock{{Type: "text", Text: "ok"}}},
		},
	}
	s := New(Config{Name: "spike", Version: "0.1.0", APIKey: apiKey}, fleet, discardLogger())
	return s, fleet
}

func doRequest(s *Server, req protocol.Request, headers map[string]string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(req)
	httpReq := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.HandleRequest(rec, httpReq)
	return rec
}

func TestToolsListReturnsFleetCatalog(t *testing.T) {
	s, _ := newTestServer("")
	rec := doRequest(s, protocol.Request{JSONRPC: "2.0", ID: "1", Method: "tools/list"}, map[string]string{
		"MCP-Protocol-Version": protocol.ProtocolVersionLatest,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp protocol.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
}

func TestUnauthorizedWithoutValidAPIKey(t *testing.T) {
	s, _ := newTestServer("secret-key")
	rec := doRequest(s, protocol.Request{JSONRPC: "2.0", ID: "1", Method: "tools/list"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthorizedWithMatchingAPIKey(t *testing.T) {
	s, _ := newTestServer("secret-key")
	rec := doRequest(s, protocol.Request{JSONRPC: "2.0", ID: "1", Method: "tools/list"}, map[string]string{
		"X-Api-Key":            "secret-key",
		"MCP-Protocol-Version": protocol.ProtocolVersionLatest,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestUnsupportedProtocolVersionRejected(t *testing.T) {
	s, _ := newTestServer("")
	rec := doRequest(s, protocol.Request{JSONRPC: "2.0", ID: "1", Method: "tools/list"}, map[string]string{
		"MCP-Protocol-Version": "1999-01-01",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestToolsCallForwardsToFleet(t *testing.T) {
	s, _ := newTestServer("")
	params, _ := json.Marshal(protocol.ToolCallParams{Name: "github__search_issues"})
	var rawParams interface{}
	json.Unmarshal(params, &rawParams)

	rec := doRequest(s, protocol.Request{JSONRPC: "2.0", ID: "1", Method: "tools/call", Params: rawParams}, map[string]string{
		"MCP-Protocol-Version": protocol.ProtocolVersionLatest,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp protocol.Response
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
}

func TestHealthHandlerReportsOK(t *testing.T) {
	s, _ := newTestServer("")
	rec := httptest.NewRecorder()
	s.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
