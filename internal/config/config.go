// Package config implements layered JSON/YAML config discovery and
// hot-reload: file merge with inline CLI additions, env expansion, and
// fsnotify-based debounced reload.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spike-land/spike/internal/credential"
	"github.com/spike-land/spike/internal/toolfilter"
	"github.com/spike-land/spike/internal/upstream"
	"gopkg.in/yaml.v3"
)

// spikeLandUpstreamName is the well-known upstream key auto-injection
// checks for and writes to; an explicitly configured upstream under this
// name always wins and disables injection.
const spikeLandUpstreamName = "spike-land"

// FileUpstreamConfig is the shape of one mcpServers entry; it is
// translated into upstream.Config after transport disambiguation.
// Tagged for both JSON and YAML since a layer may be
// either `.mcp.json` or `.mcp.yaml`/`.mcp.yml`.
type FileUpstreamConfig struct {
	Command string            `json:"command,omitempty" yaml:"command,omitempty"`
	Args    []string          `json:"args,omitempty" yaml:"args,omitempty"`
	URL     string            `json:"url,omitempty" yaml:"url,omitempty"`
	SSE     bool              `json:"sse,omitempty" yaml:"sse,omitempty"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	Tools   *FileToolFilter   `json:"tools,omitempty" yaml:"tools,omitempty"`
}

// FileToolFilter is the shape of an UpstreamConfig.tools entry.
type FileToolFilter struct {
	Allowed []string `json:"allowed,omitempty" yaml:"allowed,omitempty"`
	Blocked []string `json:"blocked,omitempty" yaml:"blocked,omitempty"`
}

// FileToolset is the shape of one toolsets entry.
type FileToolset struct {
	Servers     []string `json:"servers" yaml:"servers"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// FileConfig is the top-level shape of a .mcp.json/.mcp.yaml config layer.
type FileConfig struct {
	MCPServers  map[string]FileUpstreamConfig `json:"mcpServers" yaml:"mcpServers"`
	Toolsets    map[string]FileToolset        `json:"toolsets,omitempty" yaml:"toolsets,omitempty"`
	LazyLoading *bool                         `json:"lazyLoading,omitempty" yaml:"lazyLoading,omitempty"`
}

// ResolvedConfig is the merged, fully expanded result of discovery.
type ResolvedConfig struct {
	Upstreams   map[string]upstream.Config
	Toolsets    map[string]FileToolset
	LazyLoading bool
	Provenance  []string // config files that successfully loaded
}

func toUpstreamConfig(fc FileUpstreamConfig) upstream.Config {
	cfg := upstream.Config{Env: fc.Env}
	switch {
	case fc.Command != "":
		cfg.Transport = upstream.TransportStdio
		cfg.Command = fc.Command
		cfg.Args = fc.Args
	case fc.URL != "" && fc.SSE:
		cfg.Transport = upstream.TransportSSE
		cfg.URL = fc.URL
	case fc.URL != "":
		cfg.Transport = upstream.TransportHTTPStreaming
		cfg.URL = fc.URL
	}
	if fc.Tools != nil {
		cfg.Filter = toolfilter.Filter{Allowed: fc.Tools.Allowed, Blocked: fc.Tools.Blocked}
	}
	return cfg
}

// loadFile reads and parses one config layer, dispatching on extension
// (.yaml/.yml vs. .json). A missing file is not an error (it is simply
// absent from provenance); a malformed file is reported but never
// aborts discovery.
func loadFile(path string, logger *slog.Logger) (*FileConfig, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var fc FileConfig
	var parseErr error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		parseErr = yaml.Unmarshal(data, &fc)
	default:
		parseErr = json.Unmarshal(data, &fc)
	}
	if parseErr != nil {
		logger.Warn("invalid config file, skipping", "path", path, "error", parseErr)
		return nil, false
	}
	return &fc, true
}

// Options controls discovery beyond the two always-checked home/cwd
// layers.
type Options struct {
	ExplicitPath  string   // resolved against cwd if relative
	InlineStdio   []string // "name=command with args"
	InlineURL     []string // "name=url"
	WorkingDir    string
	HomeDir       string

	// CredentialStore, if set, is consulted after layer merge to decide
	// whether a synthetic spike-land upstream should be injected. Nil
	// disables auto-injection entirely.
	CredentialStore credential.Store
}

// Discover runs the layered merge (home config, working-dir config,
// explicit path, inline stdio/URL additions) and returns the fully
// expanded ResolvedConfig.
func Discover(opts Options, logger *slog.Logger) (ResolvedConfig, error) {
	resolved := ResolvedConfig{
		Upstreams: make(map[string]upstream.Config),
		Toolsets:  make(map[string]FileToolset),
	}

	layers := []string{
		filepath.Join(opts.HomeDir, ".mcp.json"),
		filepath.Join(opts.HomeDir, ".mcp.yaml"),
		filepath.Join(opts.HomeDir, ".mcp.yml"),
		filepath.Join(opts.WorkingDir, ".mcp.json"),
		filepath.Join(opts.WorkingDir, ".mcp.yaml"),
		filepath.Join(opts.WorkingDir, ".mcp.yml"),
	}
	if opts.ExplicitPath != "" {
		path := opts.ExplicitPath
		if !filepath.IsAbs(path) {
			path = filepath.Join(opts.WorkingDir, path)
		}
		layers = append(layers, path)
	}

	for _, path := range layers {
		fc, ok := loadFile(path, logger)
		if !ok {
			continue
		}
		mergeFileConfig(&resolved, fc)
		resolved.Provenance = append(resolved.Provenance, path)
	}

	for _, spec := range opts.InlineStdio {
		name, cfg, err := parseInlineStdio(spec)
		if err != nil {
			logger.Warn("invalid inline stdio spec, skipping", "spec", spec, "error", err)
			continue
		}
		resolved.Upstreams[name] = cfg
	}
	for _, spec := range opts.InlineURL {
		name, cfg, err := parseInlineURL(spec)
		if err != nil {
			logger.Warn("invalid inline url spec, skipping", "spec", spec, "error", err)
			continue
		}
		resolved.Upstreams[name] = cfg
	}

	injectSpikeLandUpstream(&resolved, opts.CredentialStore, logger)

	for name, cfg := range resolved.Upstreams {
		expanded, unset := cfg.ExpandEnv()
		for _, varName := range unset {
			logger.Warn("upstream env references unset variable", "upstream", name, "variable", varName)
		}
		cfg.Env = expanded
		resolved.Upstreams[name] = cfg
	}

	return resolved, nil
}

// injectSpikeLandUpstream adds a synthetic HTTP-streaming upstream named
// spike-land when none is already configured and store has a valid
// access token. The token is threaded through env.SPIKE_AUTH_TOKEN, the
// same entry upstream.Config.AuthToken reads for every other upstream.
func injectSpikeLandUpstream(resolved *ResolvedConfig, store credential.Store, logger *slog.Logger) {
	if store == nil {
		return
	}
	if _, exists := resolved.Upstreams[spikeLandUpstreamName]; exists {
		return
	}
	token, baseURL, ok := store.Token(context.Background())
	if !ok {
		return
	}
	resolved.Upstreams[spikeLandUpstreamName] = upstream.Config{
		Transport: upstream.TransportHTTPStreaming,
		URL:       strings.TrimSuffix(baseURL, "/") + "/api/mcp",
		Env:       map[string]string{upstream.AuthTokenEnvVar: token},
	}
	logger.Info("injected spike-land upstream from credential store", "url", resolved.Upstreams[spikeLandUpstreamName].URL)
}

func mergeFileConfig(resolved *ResolvedConfig, fc *FileConfig) {
	for name, entry := range fc.MCPServers {
		resolved.Upstreams[name] = toUpstreamConfig(entry)
	}
	for name, ts := range fc.Toolsets {
		resolved.Toolsets[name] = ts
	}
	if fc.LazyLoading != nil {
		resolved.LazyLoading = *fc.LazyLoading
	}
}

func parseInlineStdio(spec string) (string, upstream.Config, error) {
	name, rest, err := splitInlineSpec(spec)
	if err != nil {
		return "", upstream.Config{}, err
	}
	command, args := upstream.SplitCommand(rest)
	return name, upstream.Config{Transport: upstream.TransportStdio, Command: command, Args: args}, nil
}

func parseInlineURL(spec string) (string, upstream.Config, error) {
	name, rest, err := splitInlineSpec(spec)
	if err != nil {
		return "", upstream.Config{}, err
	}
	return name, upstream.Config{Transport: upstream.TransportHTTPStreaming, URL: rest}, nil
}

func splitInlineSpec(spec string) (name, rest string, err error) {
	for i, c := range spec {
		if c == '=' {
			return spec[:i], spec[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("inline spec %q missing '=' separator", spec)
}
