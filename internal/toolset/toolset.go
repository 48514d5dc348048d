// Package toolset implements the Toolset Controller: group-level lazy
// visibility over upstream servers, exposed to the downstream client as
// three synthetic meta-tools under the "spike" server name. Its tool
// handlers build ToolResponse values from a ToolBuilder-declared schema.
package toolset

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/spike-land/spike/internal/protocol"
	"github.com/spike-land/spike/toon"
)

// MetaServerName is the synthetic server name meta-tools are namespaced
// under: spike__list_toolsets, spike__load_toolset, spike__unload_toolset.
const MetaServerName = "spike"

// ToolCounter reports how many tools an upstream currently offers, so
// list_toolsets can render per-group tool counts without importing fleet.
type ToolCounter interface {
	ToolCount(name string) int
}

// Controller owns the toolset-to-server membership map and the set of
// currently loaded (visible) toolsets.
type Controller struct {
	mu       sync.RWMutex
	groups   map[string][]string // toolset name -> member server names
	loaded   map[string]bool
	counts   ToolCounter
	sep      string
	builders map[string]*protocol.ToolBuilder
}

// New constructs a Controller. groups maps a toolset name to the upstream
// server names it governs; every server must belong to exactly one
// group — callers are expected to include an implicit "default" group
// for any server not otherwise assigned.
func New(groups map[string][]string, counts ToolCounter, sep string) *Controller {
	c := &Controller{
		groups: groups,
		loaded: make(map[string]bool),
		counts: counts,
		sep:    sep,
	}
	c.builders = c.buildMetaTools()
	return c
}

// IsServerVisible reports whether server's owning toolset is currently
// loaded. A server with no explicit group is always visible.
func (c *Controller) IsServerVisible(server string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	group, ok := c.ownerLocked(server)
	if !ok {
		return true
	}
	return c.loaded[group]
}

func (c *Controller) ownerLocked(server string) (string, bool) {
	for group, members := range c.groups {
		for _, m := range members {
			if m == server {
				return group, true
			}
		}
	}
	return "", false
}

// IsMetaTool reports whether wireName names one of this controller's
// synthetic tools.
func (c *Controller) IsMetaTool(wireName string) bool {
	prefix := MetaServerName + c.sep
	switch wireName {
	case prefix + "list_toolsets", prefix + "load_toolset", prefix + "unload_toolset":
		return true
	default:
		return false
	}
}

// MetaTools returns the wire-visible Tool descriptors for the three
// meta-tools, always present regardless of loaded state.
func (c *Controller) MetaTools() []protocol.Tool {
	prefix := MetaServerName + c.sep
	names := []string{"list_toolsets", "load_toolset", "unload_toolset"}
	tools := make([]protocol.Tool, 0, len(names))
	for _, n := range names {
		tool := c.builders[n].ToTool()
		tool.Name = prefix + n
		tools = append(tools, tool)
	}
	return tools
}

func (c *Controller) buildMetaTools() map[string]*protocol.ToolBuilder {
	return map[string]*protocol.ToolBuilder{
		"list_toolsets": protocol.NewTool("list_toolsets",
			"Lists every known toolset, its member servers, tool counts, and whether it is currently loaded."),
		"load_toolset": protocol.NewTool("load_toolset",
			"Loads a toolset by name, making its member servers' tools visible in subsequent tools/list calls.",
			protocol.String("name", "Toolset name", protocol.Required())),
		"unload_toolset": protocol.NewTool("unload_toolset",
			"Unloads a toolset by name, hiding its member servers' tools from subsequent tools/list calls.",
			protocol.String("name", "Toolset name", protocol.Required())),
	}
}

// CallMetaTool dispatches a call to one of the three synthetic tools.
func (c *Controller) CallMetaTool(ctx context.Context, wireName string, args map[string]interface{}) (protocol.CallResult, error) {
	prefix := MetaServerName + c.sep
	req := protocol.NewToolRequest(args)

	switch wireName {
	case prefix + "list_toolsets":
		return c.listToolsets().ToCallResult(), nil
	case prefix + "load_toolset":
		return c.loadToolset(req.StringOr("name", "")).ToCallResult(), nil
	case prefix + "unload_toolset":
		return c.unloadToolset(req.StringOr("name", "")).ToCallResult(), nil
	default:
		return protocol.CallResult{}, fmt.Errorf("unknown meta tool %s: %w", wireName, protocol.ErrToolNotFound)
	}
}

type toolsetSummary struct {
	Name    string `toon:"name"`
	Servers []string
	Tools   int
	Loaded  bool
}

// listToolsets renders every group's name, members, aggregate tool count,
// and loaded state as compact TOON text — a dense structured summary
// suited to an LLM's context budget.
func (c *Controller) listToolsets() *protocol.ToolResponse {
	c.mu.RLock()
	names := make([]string, 0, len(c.groups))
	for name := range c.groups {
		names = append(names, name)
	}
	sort.Strings(names)

	summaries := make([]toolsetSummary, 0, len(names))
	for _, name := range names {
		members := c.groups[name]
		total := 0
		if c.counts != nil {
			for _, m := range members {
				total += c.counts.ToolCount(m)
			}
		}
		summaries = append(summaries, toolsetSummary{
			Name:    name,
			Servers: members,
			Tools:   total,
			Loaded:  c.loaded[name],
		})
	}
	c.mu.RUnlock()

	encoded, err := toon.Encode(summaries)
	if err != nil {
		return protocol.NewToolResponseErrorText(fmt.Sprintf("encode toolsets: %v", err))
	}
	return protocol.NewToolResponseText(encoded)
}

// loadToolset marks name as visible. Loading an already-loaded toolset is
// a no-op that returns the current state, not an error (Open Question c).
func (c *Controller) loadToolset(name string) *protocol.ToolResponse {
	if name == "" {
		return protocol.NewToolResponseErrorText("load_toolset requires a name")
	}
	c.mu.Lock()
	_, known := c.groups[name]
	if !known {
		c.mu.Unlock()
		return protocol.NewToolResponseErrorText(fmt.Sprintf("unknown toolset %q", name))
	}
	c.loaded[name] = true
	members := append([]string(nil), c.groups[name]...)
	c.mu.Unlock()

	total := 0
	if c.counts != nil {
		for _, m := range members {
			total += c.counts.ToolCount(m)
		}
	}
	return protocol.NewToolResponseText(fmt.Sprintf("loaded toolset %q: servers %v, %d tools", name, members, total))
}

// unloadToolset marks name as hidden. Unlike loadToolset, unloading is not
// idempotent over an unknown or not-currently-loaded name: both are
// reported as errors so a caller can't silently no-op a typo'd toolset name.
func (c *Controller) unloadToolset(name string) *protocol.ToolResponse {
	if name == "" {
		return protocol.NewToolResponseErrorText("unload_toolset requires a name")
	}
	c.mu.Lock()
	if _, known := c.groups[name]; !known {
		c.mu.Unlock()
		return protocol.NewToolResponseErrorText(fmt.Sprintf("%s: %q", protocol.ErrUnknownToolset, name))
	}
	if !c.loaded[name] {
		c.mu.Unlock()
		return protocol.NewToolResponseErrorText(fmt.Sprintf("%s: %q", protocol.ErrToolsetNotLoaded, name))
	}
	delete(c.loaded, name)
	c.mu.Unlock()
	return protocol.NewToolResponseText(fmt.Sprintf("unloaded toolset %q", name))
}

// LoadedToolsets returns the names of every currently-loaded toolset, in
// sorted order.
func (c *Controller) LoadedToolsets() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.loaded))
	for name, on := range c.loaded {
		if on {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
