// Package fleet implements the Upstream Fleet Manager: the collection of
// upstream connections with parallel connect, hot diff-apply,
// disconnect, and error isolation. The aggregated tool catalog is
// rebuilt under a read lock on every GetAllTools call.
package fleet

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/spike-land/spike/internal/namespace"
	"github.com/spike-land/spike/internal/protocol"
	"github.com/spike-land/spike/internal/upstream"
)

// ToolsetController is the subset of internal/toolset's controller that the
// Fleet Manager needs: visibility checks and meta-tool delegation. Declared
// here (not in internal/toolset) so fleet does not import toolset and
// toolset can freely import fleet's exported types.
type ToolsetController interface {
	IsServerVisible(server string) bool
	IsMetaTool(wireName string) bool
	CallMetaTool(ctx context.Context, wireName string, args map[string]interface{}) (protocol.CallResult, error)
	MetaTools() []protocol.Tool
}

// DisconnectNotifier is invoked when CallTool observes that an upstream
// connection has dropped. Wired to the Reconnect Scheduler's Schedule so
// a failed call, not just a failed connect, starts the backoff loop.
type DisconnectNotifier func(name string)

// Manager owns the set of upstream connections.
type Manager struct {
	mu           sync.RWMutex
	conns        map[string]*upstream.Connection
	configs      map[string]upstream.Config
	order        []string // insertion order, for noPrefix first-server-wins lookups
	sep          string
	noPrefix     bool
	toolset      ToolsetController
	onDisconnect DisconnectNotifier
	logger       *slog.Logger
}

// NewManager constructs an empty fleet. toolset may be nil.
func NewManager(sep string, noPrefix bool, toolset ToolsetController, logger *slog.Logger) *Manager {
	return &Manager{
		conns:    make(map[string]*upstream.Connection),
		configs:  make(map[string]upstream.Config),
		sep:      sep,
		noPrefix: noPrefix,
		toolset:  toolset,
		logger:   logger,
	}
}

// SetDisconnectNotifier wires a callback invoked whenever CallTool
// observes a dropped upstream connection. nil disables notification.
func (m *Manager) SetDisconnectNotifier(notifier DisconnectNotifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDisconnect = notifier
}

// SetToolsetController wires a Toolset Controller in after construction,
// breaking the Manager/Controller construction cycle (the controller
// needs the Manager as its ToolCounter).
func (m *Manager) SetToolsetController(toolset ToolsetController) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toolset = toolset
}

// ConnectAll creates one Connection per configured entry and connects them
// concurrently. Per-upstream failures are logged but never fail the
// call — healthy upstreams stay usable.
func (m *Manager) ConnectAll(ctx context.Context, configs map[string]upstream.Config) {
	var wg sync.WaitGroup
	type outcome struct {
		name string
		conn *upstream.Connection
		err  error
	}
	results := make(chan outcome, len(configs))

	for name, cfg := range configs {
		wg.Add(1)
		go func(name string, cfg upstream.Config) {
			defer wg.Done()
			conn := upstream.New(name, cfg, m.logger)
			err := conn.Connect(ctx)
			results <- outcome{name: name, conn: conn, err: err}
		}(name, cfg)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	succeeded := 0
	attempted := 0
	for res := range results {
		attempted++
		m.mu.Lock()
		m.configs[res.name] = configs[res.name]
		if !contains(m.order, res.name) {
			m.order = append(m.order, res.name)
		}
		if res.err != nil {
			m.logger.Warn("upstream connect failed", "upstream", res.name, "error", res.err)
		} else {
			m.conns[res.name] = res.conn
			succeeded++
		}
		m.mu.Unlock()
	}
	m.logger.Info("fleet connect summary", "succeeded", succeeded, "attempted", attempted)
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// GetAllTools returns, in stable server-name order, the filtered +
// namespaced tools of every visible upstream, followed by the Toolset
// Controller's meta-tools under server name "spike".
func (m *Manager) GetAllTools() []protocol.Tool {
	m.mu.RLock()
	names := make([]string, 0, len(m.conns))
	for name := range m.conns {
		names = append(names, name)
	}
	sort.Strings(names)

	var result []protocol.Tool
	for _, name := range names {
		if m.toolset != nil && !m.toolset.IsServerVisible(name) {
			continue
		}
		conn := m.conns[name]
		cfg := m.configs[name]
		for _, tool := range conn.ListTools() {
			if !cfg.Filter.Allows(tool.Name) {
				continue
			}
			wireName := tool.Name
			if !m.noPrefix {
				wireName = namespace.Join(name, tool.Name, m.sep)
			}
			result = append(result, protocol.Tool{
				Name:         wireName,
				Description:  describe(name, tool),
				InputSchema:  tool.InputSchema,
				OutputSchema: tool.OutputSchema,
			})
		}
	}
	m.mu.RUnlock()

	if m.toolset != nil {
		result = append(result, m.toolset.MetaTools()...)
	}
	return result
}

// describe prefixes the tool's description with "[server] " for
// traceability; an empty description falls back to the original tool
// name.
func describe(server string, tool protocol.Tool) string {
	body := tool.Description
	if body == "" {
		body = tool.Name
	}
	return fmt.Sprintf("[%s] %s", server, body)
}

// CallTool resolves wireName to exactly one upstream and forwards the
// call: meta-tools first; otherwise, with noPrefix, the first server in
// insertion order that exposes wireName, else the namespaced Parse
// followed by the toolset-visibility and tool-filter checks.
func (m *Manager) CallTool(ctx context.Context, wireName string, args map[string]interface{}) (protocol.CallResult, error) {
	if m.toolset != nil && m.toolset.IsMetaTool(wireName) {
		return m.toolset.CallMetaTool(ctx, wireName, args)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.noPrefix {
		for _, name := range m.order {
			conn, ok := m.conns[name]
			if !ok {
				continue
			}
			if m.toolset != nil && !m.toolset.IsServerVisible(name) {
				continue
			}
			cfg := m.configs[name]
			for _, tool := range conn.ListTools() {
				if tool.Name == wireName && cfg.Filter.Allows(tool.Name) {
					return m.callAndWatch(ctx, name, conn, wireName, args)
				}
			}
		}
		return protocol.CallResult{}, fmt.Errorf("tool %s: %w", wireName, protocol.ErrToolNotFound)
	}

	server, toolName, ok := namespace.Parse(wireName, m.order, m.sep)
	if !ok {
		return protocol.CallResult{}, fmt.Errorf("tool %s: %w", wireName, protocol.ErrCannotResolve)
	}
	conn, ok := m.conns[server]
	if !ok {
		return protocol.CallResult{}, fmt.Errorf("server %s: %w", server, protocol.ErrServerNotConnected)
	}
	if m.toolset != nil && !m.toolset.IsServerVisible(server) {
		return protocol.CallResult{}, fmt.Errorf("server %s: %w", server, protocol.ErrToolsetNotLoaded)
	}
	cfg := m.configs[server]
	if !cfg.Filter.Allows(toolName) {
		return protocol.CallResult{}, fmt.Errorf("tool %s: %w", wireName, protocol.ErrToolNotFound)
	}
	return m.callAndWatch(ctx, server, conn, toolName, args)
}

// callAndWatch calls through to conn and, on failure, checks whether the
// connection itself dropped (as opposed to a tool-level error) and if so
// notifies onDisconnect so a reconnect can be scheduled.
func (m *Manager) callAndWatch(ctx context.Context, name string, conn *upstream.Connection, toolName string, args map[string]interface{}) (protocol.CallResult, error) {
	result, err := conn.CallTool(ctx, toolName, args)
	if err != nil && !conn.Connected() && m.onDisconnect != nil {
		m.onDisconnect(name)
	}
	return result, err
}

// Reconnect closes any existing connection under name and creates + connects
// a fresh one. Used by explicit operator command and the Reconnect Scheduler.
func (m *Manager) Reconnect(ctx context.Context, name string, cfg upstream.Config) error {
	m.mu.Lock()
	if old, ok := m.conns[name]; ok {
		old.Close()
		delete(m.conns, name)
	}
	m.mu.Unlock()

	conn := upstream.New(name, cfg, m.logger)
	if err := conn.Connect(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	m.conns[name] = conn
	m.configs[name] = cfg
	if !contains(m.order, name) {
		m.order = append(m.order, name)
	}
	m.mu.Unlock()
	return nil
}

// DisconnectServer closes and removes the named upstream; no-op if unknown.
func (m *Manager) DisconnectServer(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conn, ok := m.conns[name]; ok {
		conn.Close()
		delete(m.conns, name)
	}
	delete(m.configs, name)
}

// CloseAll disconnects every upstream concurrently: connectAll and
// closeAll must not serialize independent upstream operations.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	conns := make([]*upstream.Connection, 0, len(m.conns))
	for _, c := range m.conns {
		conns = append(conns, c)
	}
	m.conns = make(map[string]*upstream.Connection)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, c := range conns {
		wg.Add(1)
		go func(c *upstream.Connection) {
			defer wg.Done()
			c.Close()
		}(c)
	}
	wg.Wait()
}

// ConfigDiff is the result of ApplyConfigDiff: the sets of upstream names
// that were added, removed, or reconnected due to a config value change.
type ConfigDiff struct {
	Added   []string
	Removed []string
	Changed []string
}

// ApplyConfigDiff computes the set-theoretic diff between old and new
// and applies it: removed upstreams are disconnected, added ones
// connected, and changed ones reconnected. Added/Changed reflect only
// successful operations.
func (m *Manager) ApplyConfigDiff(ctx context.Context, old, new map[string]upstream.Config) ConfigDiff {
	var diff ConfigDiff

	for name := range old {
		if _, stillPresent := new[name]; !stillPresent {
			m.DisconnectServer(name)
			diff.Removed = append(diff.Removed, name)
		}
	}

	toConnect := make(map[string]upstream.Config)
	for name, cfg := range new {
		if _, existed := old[name]; !existed {
			toConnect[name] = cfg
		}
	}
	if len(toConnect) > 0 {
		before := m.connectedNames()
		m.ConnectAll(ctx, toConnect)
		after := m.connectedNames()
		for name := range toConnect {
			if after[name] && !before[name] {
				diff.Added = append(diff.Added, name)
			}
		}
	}

	for name, newCfg := range new {
		oldCfg, existed := old[name]
		if !existed || oldCfg.Equal(newCfg) {
			continue
		}
		if err := m.Reconnect(ctx, name, newCfg); err != nil {
			m.logger.Warn("reconnect after config change failed", "upstream", name, "error", err)
			continue
		}
		diff.Changed = append(diff.Changed, name)
	}

	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	sort.Strings(diff.Changed)
	return diff
}

func (m *Manager) connectedNames() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]bool, len(m.conns))
	for name := range m.conns {
		out[name] = true
	}
	return out
}

// Probe wraps a single upstream connect attempt in timeout, for a status
// CLI collaborator. It never mutates fleet state.
func (m *Manager) Probe(ctx context.Context, name string, cfg upstream.Config, timeout func() context.Context) error {
	probeCtx := timeout()
	conn := upstream.New(name, cfg, m.logger)
	defer conn.Close()
	return conn.Connect(probeCtx)
}

// Names returns the currently connected upstream names in stable order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.conns))
	for name := range m.conns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ToolCount returns the number of tools offered by the named upstream,
// used by the Toolset Controller's list_toolsets meta-tool.
func (m *Manager) ToolCount(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conn, ok := m.conns[name]
	if !ok {
		return 0
	}
	return len(conn.ListTools())
}
