// Command spike aggregates a set of upstream MCP servers behind a single
// namespaced downstream MCP endpoint. This entrypoint is deliberately
// thin: argument parsing, credential storage, and interactive terminal
// concerns are out of scope for the core engine — main.go only wires the
// core components together and exposes the shape of the serve/chat/
// shell/status subcommands.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spike-land/spike/internal/config"
	"github.com/spike-land/spike/internal/credential"
	"github.com/spike-land/spike/internal/fleet"
	"github.com/spike-land/spike/internal/muxserver"
	"github.com/spike-land/spike/internal/protocol"
	"github.com/spike-land/spike/internal/reconnect"
	"github.com/spike-land/spike/internal/toolset"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: spike <serve|chat|shell|status> [flags]")
		return 1
	}

	subcommand, rest := args[0], args[1:]

	fs := flag.NewFlagSet(subcommand, flag.ContinueOnError)
	verbose := fs.Bool("verbose", false, "enable diagnostic logging to stderr")
	addr := fs.String("addr", ":8765", "listen address for serve")
	apiKey := fs.String("api-key", "", "X-Api-Key value required of downstream clients")
	transport := fs.String("transport", "http", "downstream transport: http, sse, or stdio")
	separator := fs.String("separator", "__", "namespace separator")
	configPath := fs.String("config", "", "explicit config file path")
	if err := fs.Parse(rest); err != nil {
		return 1
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	home, _ := os.UserHomeDir()
	cwd, _ := os.Getwd()
	opts := config.Options{HomeDir: home, WorkingDir: cwd, ExplicitPath: *configPath, CredentialStore: credential.EnvStore{}}

	resolved, err := config.Discover(opts, logger)
	if err != nil {
		logger.Error("config discovery failed", "error", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr := fleet.NewManager(*separator, false, nil, logger)
	mgr.ConnectAll(ctx, resolved.Upstreams)

	switch subcommand {
	case "serve":
		return runServe(ctx, mgr, opts, resolved, *addr, *apiKey, *transport, logger)
	case "status":
		configured := make(map[string]struct{}, len(resolved.Upstreams))
		for name := range resolved.Upstreams {
			configured[name] = struct{}{}
		}
		return runStatus(mgr, configured)
	case "chat":
		logger.Info("chat subcommand wiring is a collaborator shape only; interactive chat driving is out of scope")
		return 0
	case "shell":
		logger.Info("shell subcommand wiring is a collaborator shape only; interactive REPL is out of scope")
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", subcommand)
		return 1
	}
}

func runServe(ctx context.Context, mgr *fleet.Manager, opts config.Options, resolved config.ResolvedConfig, addr, apiKey, transport string, logger *slog.Logger) int {
	startConfigWatcher(ctx, mgr, opts, &resolved, logger)

	groups := map[string][]string{}
	for name, ts := range resolved.Toolsets {
		groups[name] = ts.Servers
	}
	controller := toolset.New(groups, mgr, "__")
	mgr.SetToolsetController(controller)

	scheduler := reconnect.New(reconnect.DefaultConfig(), func(ctx context.Context, name string) error {
		cfg, ok := resolved.Upstreams[name]
		if !ok {
			return nil
		}
		return mgr.Reconnect(ctx, name, cfg)
	}, logger)
	defer scheduler.CancelAll()
	mgr.SetDisconnectNotifier(func(name string) { scheduler.Schedule(ctx, name) })
	connected := make(map[string]bool)
	for _, name := range mgr.Names() {
		connected[name] = true
	}
	for name := range resolved.Upstreams {
		if !connected[name] {
			scheduler.Schedule(ctx, name)
		}
	}

	sessionMgr, err := protocol.NewJWTSessionManagerWithAutoKey(30 * time.Minute)
	if err != nil {
		logger.Error("failed to create session manager", "error", err)
		return 1
	}

	downstream := muxserver.New(muxserver.Config{
		Name:       "spike",
		Version:    "0.1.0",
		APIKey:     apiKey,
		SessionMgr: sessionMgr,
	}, mgr, logger)

	if transport == "stdio" {
		if err := muxserver.RunStdio(ctx, downstream, os.Stdin, os.Stdout, logger); err != nil {
			logger.Error("stdio server exited with error", "error", err)
			return 1
		}
		return 0
	}

	if err := muxserver.Run(ctx, addr, downstream, 10*time.Second, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		return 1
	}
	return 0
}

// startConfigWatcher constructs and starts the debounced config file
// watcher, if any provenance files were loaded. Each reload is applied
// to the fleet via ApplyConfigDiff and folded back into resolved so the
// Reconnect Scheduler's callback always reconnects with the latest
// known-good config for a given upstream name.
func startConfigWatcher(ctx context.Context, mgr *fleet.Manager, opts config.Options, resolved *config.ResolvedConfig, logger *slog.Logger) {
	if len(resolved.Provenance) == 0 {
		return
	}

	sink := func(updated config.ResolvedConfig) {
		diff := mgr.ApplyConfigDiff(ctx, resolved.Upstreams, updated.Upstreams)
		if len(diff.Added) > 0 || len(diff.Removed) > 0 || len(diff.Changed) > 0 {
			logger.Info("applied config reload", "added", diff.Added, "removed", diff.Removed, "changed", diff.Changed)
		}
		resolved.Upstreams = updated.Upstreams
		resolved.Toolsets = updated.Toolsets
		resolved.LazyLoading = updated.LazyLoading
		resolved.Provenance = updated.Provenance
	}

	watcher, err := config.NewWatcher(opts, config.DefaultDebounce, sink, logger)
	if err != nil {
		logger.Warn("config watcher unavailable, hot-reload disabled", "error", err)
		return
	}
	provenance := append([]string(nil), resolved.Provenance...)
	go func() {
		if err := watcher.Watch(ctx, provenance); err != nil {
			logger.Warn("config watcher stopped", "error", err)
		}
	}()
}

func runStatus(mgr *fleet.Manager, configured map[string]struct{}) int {
	names := mgr.Names()
	if len(configured) == 0 {
		fmt.Println("no upstreams configured")
		return 1
	}
	connected := make(map[string]bool, len(names))
	for _, name := range names {
		connected[name] = true
		fmt.Printf("%s: connected (%d tools)\n", name, mgr.ToolCount(name))
	}

	unreachable := false
	for name := range configured {
		if !connected[name] {
			fmt.Printf("%s: unreachable\n", name)
			unreachable = true
		}
	}
	if unreachable {
		return 1
	}
	return 0
}

