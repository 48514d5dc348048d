// Package mcpclient is the thin remote-tool-source client vendor AI clients
// use to let a chat completion reach into an MCP server directly, alongside
// (or instead of) a locally registered tool provider. Trimmed to the
// initialize/tools-list/tools-call trio and rehomed here so ai/openai,
// ai/claude and ai/gemini can share one implementation without importing
// each other or the aggregator's own internal/upstream (which is shaped
// around the Fleet Manager's multi-transport connection pool, not a
// single ad hoc vendor-side client).
package mcpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/spike-land/spike/internal/protocol"
	"github.com/spike-land/spike/pool"
)

const (
	clientName    = "spike-ai-client"
	clientVersion = "1.0.0"
	protocolVer   = "2025-06-18"
)

// MCPTool and ToolResponse alias the wire types the rest of the module
// already uses, so a remote tool's schema/result needs no reshaping when it
// crosses into an ai.Tool or a tool result message.
type MCPTool = protocol.Tool
type ToolResponse = protocol.CallResult

// AuthProvider supplies the Authorization header for requests to the
// remote server. Refresh lets a caller rotate a short-lived credential
// between calls; static tokens can no-op it.
type AuthProvider interface {
	GetAuthHeader() (string, error)
	Refresh() error
}

// Client is a minimal MCP client over streamable HTTP: initialize once,
// then tools/list and tools/call against the same endpoint.
type Client struct {
	baseURL     string
	namespace   string
	httpClient  *http.Client
	auth        AuthProvider
	mu          sync.RWMutex
	initialized bool
	sessionID   string
	cachedTools []MCPTool
}

// NewClient builds a client using the module's shared default HTTP pool.
func NewClient(baseURL string, auth AuthProvider, namespace string) *Client {
	return NewClientWithPool(baseURL, auth, namespace, pool.GetPool())
}

// NewClientWithPool builds a client over a caller-supplied HTTP pool.
func NewClientWithPool(baseURL string, auth AuthProvider, namespace string, httpPool pool.HTTPPool) *Client {
	var httpClient *http.Client
	if httpPool != nil {
		httpClient = httpPool.GetHTTPClient()
	} else {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, namespace: namespace, httpClient: httpClient, auth: auth}
}

// Namespace reports the prefix this client's tools are called under, so a
// caller holding several remote clients can route a call by name prefix.
func (c *Client) Namespace() string { return c.namespace }

func (c *Client) initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return nil
	}

	req := protocol.Request{
		JSONRPC: "2.0",
		ID:      "init",
		Method:  "initialize",
		Params: map[string]interface{}{
			"protocolVersion": protocolVer,
			"capabilities":    map[string]interface{}{},
			"clientInfo":      map[string]interface{}{"name": clientName, "version": clientVersion},
		},
	}

	var resp protocol.Response
	headers, err := c.sendRequest(ctx, &req, &resp)
	if err != nil {
		return fmt.Errorf("initialize failed: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("initialize error: %s", resp.Error.Message)
	}
	if sessionID := headers.Get("Mcp-Session-Id"); sessionID != "" {
		c.sessionID = sessionID
	}
	c.initialized = true
	return nil
}

// ListTools fetches (and caches) the remote server's tool catalog.
func (c *Client) ListTools(ctx context.Context) ([]MCPTool, error) {
	if err := c.initialize(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	if c.cachedTools != nil {
		cached := append([]MCPTool(nil), c.cachedTools...)
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	req := protocol.Request{JSONRPC: "2.0", ID: "list-tools", Method: "tools/list"}
	var resp protocol.Response
	if _, err := c.sendRequest(ctx, &req, &resp); err != nil {
		return nil, fmt.Errorf("list tools failed: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("list tools error: code %d", resp.Error.Code)
	}

	var result struct {
		Tools []MCPTool `json:"tools"`
	}
	if err := remarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to parse tools response: %w", err)
	}

	c.mu.Lock()
	c.cachedTools = append([]MCPTool(nil), result.Tools...)
	c.mu.Unlock()
	return result.Tools, nil
}

// CallTool invokes a tool on the remote server.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]interface{}) (*ToolResponse, error) {
	if err := c.initialize(ctx); err != nil {
		return nil, err
	}

	req := protocol.Request{
		JSONRPC: "2.0",
		ID:      fmt.Sprintf("call-%s", name),
		Method:  "tools/call",
		Params:  map[string]interface{}{"name": name, "arguments": args},
	}

	var resp protocol.Response
	if _, err := c.sendRequest(ctx, &req, &resp); err != nil {
		return nil, fmt.Errorf("call tool failed: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("tool call error: %s (code %d)", resp.Error.Message, resp.Error.Code)
	}

	var result ToolResponse
	if err := remarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to parse tool response: %w", err)
	}
	return &result, nil
}

func remarshal(src interface{}, dst interface{}) error {
	raw, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func (c *Client) sendRequest(ctx context.Context, req *protocol.Request, resp *protocol.Response) (http.Header, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/event-stream")
	httpReq.Header.Set("User-Agent", fmt.Sprintf("%s/%s", clientName, clientVersion))
	if c.sessionID != "" && req.Method != "initialize" {
		httpReq.Header.Set("Mcp-Session-Id", c.sessionID)
	}
	if c.auth != nil {
		header, err := c.auth.GetAuthHeader()
		if err != nil {
			return nil, fmt.Errorf("failed to get auth header: %w", err)
		}
		httpReq.Header.Set("Authorization", header)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return httpResp.Header, fmt.Errorf("server returned status %d", httpResp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return httpResp.Header, fmt.Errorf("failed to read response body: %w", err)
	}

	if strings.HasPrefix(httpResp.Header.Get("Content-Type"), "text/event-stream") {
		return httpResp.Header, parseEventStream(bodyBytes, resp)
	}
	return httpResp.Header, json.Unmarshal(bodyBytes, resp)
}

// parseEventStream extracts the last "data:" line of an SSE body and
// decodes it as the JSON-RPC response, matching streamable-HTTP servers
// that answer a single request over one SSE event.
func parseEventStream(body []byte, resp *protocol.Response) error {
	var last []byte
	for _, line := range bytes.Split(body, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if data, ok := bytesCutPrefix(line, []byte("data:")); ok {
			last = bytes.TrimSpace(data)
		}
	}
	if last == nil {
		return fmt.Errorf("no data frame in event stream")
	}
	return json.Unmarshal(last, resp)
}

func bytesCutPrefix(s, prefix []byte) ([]byte, bool) {
	if !bytes.HasPrefix(s, prefix) {
		return nil, false
	}
	return s[len(prefix):], true
}
