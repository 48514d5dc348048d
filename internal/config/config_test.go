package config

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spike-land/spike/internal/upstream"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeConfig(t *testing.T, path string, fc FileConfig) {
	t.Helper()
	data, err := json.Marshal(fc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestDiscoverMergesHomeAndCwdLastWriteWins(t *testing.T) {
	home := t.TempDir()
	cwd := t.TempDir()

	writeConfig(t, filepath.Join(home, ".mcp.json"), FileConfig{
		MCPServers: map[string]FileUpstreamConfig{
			"github": {Command: "github-mcp-global"},
		},
	})
	writeConfig(t, filepath.Join(cwd, ".mcp.json"), FileConfig{
		MCPServers: map[string]FileUpstreamConfig{
			"github": {Command: "github-mcp-project"},
		},
	})

	resolved, err := Discover(Options{HomeDir: home, WorkingDir: cwd}, discardLogger())
	require.NoError(t, err)
	require.Equal(t, "github-mcp-project", resolved.Upstreams["github"].Command)
	require.Len(t, resolved.Provenance, 2)
}

func TestDiscoverSkipsMalformedFileWithoutAborting(t *testing.T) {
	home := t.TempDir()
	cwd := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, ".mcp.json"), []byte("{not json"), 0o644))
	writeConfig(t, filepath.Join(cwd, ".mcp.json"), FileConfig{
		MCPServers: map[string]FileUpstreamConfig{"github": {Command: "gh"}},
	})

	resolved, err := Discover(Options{HomeDir: home, WorkingDir: cwd}, discardLogger())
	require.NoError(t, err)
	_, ok := resolved.Upstreams["github"]
	require.True(t, ok, "expected valid layer to still load despite malformed sibling")
}

func TestDiscoverReadsYAMLLayer(t *testing.T) {
	home := t.TempDir()
	cwd := t.TempDir()

	yamlBody := "mcpServers:\n  github:\n    command: github-mcp-yaml\n"
	require.NoError(t, os.WriteFile(filepath.Join(cwd, ".mcp.yaml"), []byte(yamlBody), 0o644))

	resolved, err := Discover(Options{HomeDir: home, WorkingDir: cwd}, discardLogger())
	require.NoError(t, err)
	require.Equal(t, "github-mcp-yaml", resolved.Upstreams["github"].Command)
	require.Len(t, resolved.Provenance, 1)
}

func TestDiscoverInlineStdioSplitsCommandAndArgs(t *testing.T) {
	resolved, err := Discover(Options{
		HomeDir:     t.TempDir(),
		WorkingDir:  t.TempDir(),
		InlineStdio: []string{"local=node server.js --verbose"},
	}, discardLogger())
	require.NoError(t, err)

	cfg := resolved.Upstreams["local"]
	require.Equal(t, upstream.TransportStdio, cfg.Transport)
	require.Equal(t, "node", cfg.Command)
	require.Equal(t, []string{"server.js", "--verbose"}, cfg.Args)
}

func TestDiscoverInlineURLRecordedAsHTTPStreaming(t *testing.T) {
	resolved, err := Discover(Options{
		HomeDir:    t.TempDir(),
		WorkingDir: t.TempDir(),
		InlineURL:  []string{"remote=https://example.com/mcp"},
	}, discardLogger())
	require.NoError(t, err)

	cfg := resolved.Upstreams["remote"]
	require.Equal(t, upstream.TransportHTTPStreaming, cfg.Transport)
	require.Equal(t, "https://example.com/mcp", cfg.URL)
}

func TestDiscoverExpandsEnvAndWarnsUnset(t *testing.T) {
	os.Setenv("SPIKE_CFG_TEST_VAR", "resolved")
	defer os.Unsetenv("SPIKE_CFG_TEST_VAR")

	cwd := t.TempDir()
	writeConfig(t, filepath.Join(cwd, ".mcp.json"), FileConfig{
		MCPServers: map[string]FileUpstreamConfig{
			"svc": {Command: "node", Env: map[string]string{
				"TOKEN":   "${SPIKE_CFG_TEST_VAR}",
				"MISSING": "${SPIKE_CFG_TEST_UNSET_VAR}",
			}},
		},
	})

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	resolved, err := Discover(Options{HomeDir: t.TempDir(), WorkingDir: cwd}, logger)
	require.NoError(t, err)
	require.Equal(t, "resolved", resolved.Upstreams["svc"].Env["TOKEN"])
	require.Equal(t, "", resolved.Upstreams["svc"].Env["MISSING"])
	require.Contains(t, logs.String(), "SPIKE_CFG_TEST_UNSET_VAR")
}
