// Package appregistry implements the App Registry: an immutable bundled
// list of app metadata, optionally refreshed from a well-known upstream
// tool. It builds a name-keyed index over a slice on construction and
// swaps it atomically after an external refresh.
package appregistry

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/spike-land/spike/internal/protocol"
)

// remoteListToolName is the original (unprefixed) tool name the registry
// looks for when refreshing from upstreams.
const remoteListToolName = "store_list_apps_with_tools"

// AppInfo describes one app bundled into or discovered by the registry.
type AppInfo struct {
	Slug      string   `json:"slug"`
	Name      string   `json:"name"`
	Icon      string   `json:"icon"`
	Category  string   `json:"category"`
	Tagline   string   `json:"tagline"`
	ToolNames []string `json:"toolNames"`
}

// ToolCaller is the subset of internal/fleet.Manager needed to invoke a
// well-known upstream tool by its full wire name.
type ToolCaller interface {
	CallTool(ctx context.Context, wireName string, args map[string]interface{}) (protocol.CallResult, error)
	GetAllTools() []protocol.Tool
}

// Registry maps tool names and slugs to app metadata.
type Registry struct {
	mu        sync.RWMutex
	apps      []AppInfo
	byTool    map[string]AppInfo
	bySlug    map[string]AppInfo
}

// New constructs a Registry from a bundled, immutable app list.
func New(bundled []AppInfo) *Registry {
	r := &Registry{}
	r.replace(bundled)
	return r
}

func (r *Registry) replace(apps []AppInfo) {
	byTool := make(map[string]AppInfo)
	bySlug := make(map[string]AppInfo)
	for _, app := range apps {
		bySlug[app.Slug] = app
		for _, tool := range app.ToolNames {
			byTool[tool] = app
		}
	}
	r.mu.Lock()
	r.apps = apps
	r.byTool = byTool
	r.bySlug = bySlug
	r.mu.Unlock()
}

// Lookup returns the AppInfo owning toolName, if any.
func (r *Registry) Lookup(toolName string) (AppInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	app, ok := r.byTool[toolName]
	return app, ok
}

// BySlug returns the AppInfo with the given slug, if any.
func (r *Registry) BySlug(slug string) (AppInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	app, ok := r.bySlug[slug]
	return app, ok
}

// All returns every registered app, in the registry's current order.
func (r *Registry) All() []AppInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]AppInfo, len(r.apps))
	copy(out, r.apps)
	return out
}

// RefreshFromRemote looks for a wire tool whose original name is
// store_list_apps_with_tools, calls it with no arguments, and — on full
// success only — atomically replaces the registry. Any failure along the
// way leaves the existing registry untouched.
func (r *Registry) RefreshFromRemote(ctx context.Context, fleet ToolCaller) {
	wireName, ok := findRemoteListTool(fleet.GetAllTools())
	if !ok {
		return
	}

	result, err := fleet.CallTool(ctx, wireName, map[string]interface{}{})
	if err != nil || result.IsError {
		return
	}

	var text string
	for _, block := range result.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return
	}

	var apps []AppInfo
	if err := json.Unmarshal([]byte(text), &apps); err != nil {
		return
	}
	if len(apps) == 0 {
		return
	}
	r.replace(apps)
}

// findRemoteListTool matches a wire tool whose original name equals or
// whose wire name ends with remoteListToolName: original name is X, or
// wire name ends with that suffix.
func findRemoteListTool(tools []protocol.Tool) (string, bool) {
	for _, tool := range tools {
		if tool.Name == remoteListToolName || strings.HasSuffix(tool.Name, remoteListToolName) {
			return tool.Name, true
		}
	}
	return "", false
}
