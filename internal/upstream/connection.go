package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spike-land/spike/internal/protocol"
	"github.com/spike-land/spike/pool"
)

// ErrNotConnected is returned by CallTool/ListTools before Connect succeeds.
var ErrNotConnected = errors.New("upstream not connected")

// minimalInheritedEnv lists the only process environment variables a
// stdio child inherits by default, before the config's own env is
// overlaid — the narrowest inheritance a subprocess transport needs.
var minimalInheritedEnv = []string{"PATH", "HOME", "LANG", "TZ"}

// Connection owns exactly one upstream connection. It is a single
// concrete type parameterised by the Config's transport variant, not an
// interface hierarchy per transport.
type Connection struct {
	Name   string
	Config Config

	logger *slog.Logger

	client  *mcpsdk.Client
	session *mcpsdk.ClientSession

	connected bool
	tools     []protocol.Tool
}

// New constructs a Connection that is not yet connected.
func New(name string, cfg Config, logger *slog.Logger) *Connection {
	return &Connection{Name: name, Config: cfg, logger: logger}
}

// Connect chooses a transport from Config and performs the initial
// tools/list, caching the result. A successful connect yielding zero tools
// is a soft warning, not a failure — frequently indicates a
// bad auth token, so the diagnostic names the expected env var.
func (c *Connection) Connect(ctx context.Context) error {
	if err := c.Config.Validate(); err != nil {
		return fmt.Errorf("invalid config for upstream %s: %w", c.Name, err)
	}

	c.client = mcpsdk.NewClient(&mcpsdk.Implementation{Name: "spike", Version: "0.1.0"}, nil)

	transport, err := c.buildTransport()
	if err != nil {
		return fmt.Errorf("build transport for upstream %s: %w", c.Name, err)
	}

	session, err := c.client.Connect(ctx, transport, nil)
	if err != nil {
		if isAuthFailure(err) {
			return fmt.Errorf("upstream %s: authentication failed, check env.%s: %w", c.Name, AuthTokenEnvVar, err)
		}
		return fmt.Errorf("connect upstream %s: %w", c.Name, err)
	}
	c.session = session
	c.connected = true

	if err := c.refreshTools(ctx); err != nil {
		return fmt.Errorf("list tools for upstream %s: %w", c.Name, err)
	}
	if len(c.tools) == 0 {
		c.logger.Warn("upstream connected with zero tools", "upstream", c.Name)
	}
	return nil
}

func isAuthFailure(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "401") || strings.Contains(msg, "403") || strings.Contains(msg, "unauthorized")
}

func (c *Connection) buildTransport() (mcpsdk.Transport, error) {
	switch c.Config.Transport {
	case TransportStdio:
		env, unset := c.Config.ExpandEnv()
		for _, name := range unset {
			c.logger.Warn("upstream env references unset variable", "upstream", c.Name, "variable", name)
		}
		cmd := exec.Command(c.Config.Command, c.Config.Args...)
		cmd.Env = buildChildEnv(minimalInheritedEnv, env)
		return &mcpsdk.CommandTransport{Command: cmd}, nil

	case TransportHTTPStreaming:
		return &mcpsdk.StreamableClientTransport{
			Endpoint:   c.Config.URL,
			HTTPClient: c.authenticatedHTTPClient(),
		}, nil

	case TransportSSE:
		return &mcpsdk.SSEClientTransport{
			Endpoint:   c.Config.URL,
			HTTPClient: c.authenticatedHTTPClient(),
		}, nil

	default:
		return nil, fmt.Errorf("unsupported transport %d", c.Config.Transport)
	}
}

// authenticatedHTTPClient wraps the shared connection pool's transport with
// an AuthProvider round tripper when env.SPIKE_AUTH_TOKEN is configured.
func (c *Connection) authenticatedHTTPClient() *http.Client {
	base := pool.GetPool().GetHTTPClient()
	token, ok := c.Config.AuthToken()
	if !ok {
		return base
	}
	client := *base
	client.Transport = &authRoundTripper{auth: NewBearerTokenAuth(token), base: base.Transport}
	return &client
}

// authRoundTripper applies an AuthProvider's header to every outbound
// request, so upstream.Connection never needs to know the concrete auth
// scheme in use.
type authRoundTripper struct {
	auth AuthProvider
	base http.RoundTripper
}

func (a *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	header, err := a.auth.GetAuthHeader()
	if err != nil {
		return nil, fmt.Errorf("upstream auth: %w", err)
	}
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", header)
	base := a.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

func buildChildEnv(inheritNames []string, overlay map[string]string) []string {
	env := make([]string, 0, len(inheritNames)+len(overlay))
	for _, name := range inheritNames {
		if v, ok := os.LookupEnv(name); ok {
			env = append(env, name+"="+v)
		}
	}
	for k, v := range overlay {
		env = append(env, k+"="+v)
	}
	return env
}

// refreshTools drains the session's tools/list iterator into c.tools.
func (c *Connection) refreshTools(ctx context.Context) error {
	var tools []protocol.Tool
	for tool, err := range c.session.Tools(ctx, nil) {
		if err != nil {
			return err
		}
		tools = append(tools, protocol.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		})
	}
	c.tools = tools
	return nil
}

// ListTools returns the last cached tools/list result for this upstream.
func (c *Connection) ListTools() []protocol.Tool {
	return c.tools
}

// Connected reports whether Connect has succeeded and Close has not since run.
func (c *Connection) Connected() bool { return c.connected }

// CallTool forwards name/args to the upstream verbatim and returns the
// result unmodified, including IsError.
func (c *Connection) CallTool(ctx context.Context, name string, args map[string]interface{}) (protocol.CallResult, error) {
	if !c.connected {
		return protocol.CallResult{}, ErrNotConnected
	}
	start := time.Now()
	result, err := c.session.CallTool(ctx, &mcpsdk.CallToolParams{Name: name, Arguments: args})
	c.logger.Debug("upstream tool call", "upstream", c.Name, "tool", name, "duration", time.Since(start))
	if err != nil {
		return protocol.CallResult{}, fmt.Errorf("call tool %s on upstream %s: %w", name, c.Name, err)
	}

	blocks := make([]protocol.ContentBlock, 0, len(result.Content))
	for _, item := range result.Content {
		blocks = append(blocks, forwardContentBlock(item))
	}
	return protocol.CallResult{Content: blocks, IsError: result.IsError}, nil
}

// forwardContentBlock converts one upstream content item into spike's wire
// ContentBlock without interpreting it. mcpsdk.Content covers text, image,
// audio and embedded-resource variants with the same field names spike's
// own ContentBlock already carries (type/text/data/mimeType/resource), so
// a JSON round-trip forwards any of them opaquely instead of collapsing
// every non-text variant to a dataless placeholder.
func forwardContentBlock(item mcpsdk.Content) protocol.ContentBlock {
	raw, err := json.Marshal(item)
	if err != nil {
		return protocol.ContentBlock{Type: "unknown"}
	}
	var block protocol.ContentBlock
	if err := json.Unmarshal(raw, &block); err != nil {
		return protocol.ContentBlock{Type: "unknown"}
	}
	return block
}

// Close tears down the session. Safe to call on an unconnected Connection.
func (c *Connection) Close() error {
	if !c.connected || c.session == nil {
		return nil
	}
	c.connected = false
	return c.session.Close()
}
