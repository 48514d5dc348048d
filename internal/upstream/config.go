// Package upstream owns a single upstream MCP server connection — child
// process, HTTP-streaming, or SSE — built on the official
// github.com/modelcontextprotocol/go-sdk client.
package upstream

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spike-land/spike/internal/toolfilter"
)

// Transport identifies which variant of UpstreamConfig a server entry uses.
type Transport int

const (
	TransportStdio Transport = iota
	TransportHTTPStreaming
	TransportSSE
)

// AuthTokenEnvVar is the well-known env entry that, if present, becomes a
// bearer credential for HTTP-streaming/SSE transports.
const AuthTokenEnvVar = "SPIKE_AUTH_TOKEN"

// Config is the discriminated variant for one upstream server entry.
type Config struct {
	Transport Transport
	Command   string            // Stdio only
	Args      []string          // Stdio only
	URL       string            // HTTP-streaming / SSE only
	Env       map[string]string // All variants; values may carry ${VAR} references
	Filter    toolfilter.Filter
}

// Equal reports structural equality over the serialized form, the
// technique the Fleet Manager's applyConfigDiff uses to decide "changed".
func (c Config) Equal(other Config) bool {
	a, errA := json.Marshal(c)
	b, errB := json.Marshal(other)
	if errA != nil || errB != nil {
		return false
	}
	return string(a) == string(b)
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnv resolves every ${VARNAME} reference in c.Env against the
// process environment, returning a fresh map and the list of variable
// names that were referenced but unset (for the caller to warn about).
func (c Config) ExpandEnv() (expanded map[string]string, unset []string) {
	expanded = make(map[string]string, len(c.Env))
	seenUnset := map[string]bool{}
	for k, v := range c.Env {
		expanded[k] = envVarPattern.ReplaceAllStringFunc(v, func(ref string) string {
			name := envVarPattern.FindStringSubmatch(ref)[1]
			val, ok := os.LookupEnv(name)
			if !ok && !seenUnset[name] {
				seenUnset[name] = true
				unset = append(unset, name)
			}
			return val
		})
	}
	return expanded, unset
}

// AuthToken returns the configured bearer token, if any, after expansion.
func (c Config) AuthToken() (string, bool) {
	expanded, _ := c.ExpandEnv()
	token, ok := expanded[AuthTokenEnvVar]
	return token, ok && token != ""
}

// SplitCommand whitespace-splits an inline stdio config into command + args.
func SplitCommand(s string) (command string, args []string) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}

// Validate reports a config shape error before an attempted connect.
func (c Config) Validate() error {
	switch c.Transport {
	case TransportStdio:
		if c.Command == "" {
			return fmt.Errorf("stdio upstream config requires a command")
		}
	case TransportHTTPStreaming, TransportSSE:
		if c.URL == "" {
			return fmt.Errorf("HTTP/SSE upstream config requires a url")
		}
	default:
		return fmt.Errorf("unknown transport %d", c.Transport)
	}
	return nil
}
