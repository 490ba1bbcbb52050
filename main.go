// locktower - A reader/writer lock coordinator for shared resources.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/locktower/internal/audit"
	"github.com/jeranaias/locktower/internal/cli"
	"github.com/jeranaias/locktower/internal/client"
	"github.com/jeranaias/locktower/internal/config"
	"github.com/jeranaias/locktower/internal/dashboard"
	"github.com/jeranaias/locktower/internal/locks"
	"github.com/jeranaias/locktower/internal/metrics"
	"github.com/jeranaias/locktower/internal/server"
)

// Version information (set at build time)
var (
	Version   = "0.3.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	// Parse CLI arguments
	cmd, args := cli.Parse()

	// Route to appropriate handler. The dash and serve paths stay in main
	// because they pull in the dashboard and server stacks; everything else
	// is a thin client command handled inside the cli package.
	switch cmd {
	case cli.CmdDash:
		runDash(args)
	case cli.CmdServe:
		runServe(args)
	case cli.CmdStatus:
		if err := cli.HandleStatus(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(cli.GetExitCode(err))
		}
	case cli.CmdQueue:
		if err := cli.HandleQueue(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(cli.GetExitCode(err))
		}
	case cli.CmdSimulate:
		if err := cli.HandleSimulate(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(cli.GetExitCode(err))
		}
	case cli.CmdUnlock:
		if err := cli.HandleUnlock(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(cli.GetExitCode(err))
		}
	case cli.CmdClear:
		if err := cli.HandleClear(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(cli.GetExitCode(err))
		}
	case cli.CmdAudit:
		if err := cli.HandleAudit(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(cli.GetExitCode(err))
		}
	case cli.CmdConfig:
		if err := cli.HandleConfig(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(cli.GetExitCode(err))
		}
	case cli.CmdVersion:
		if err := cli.HandleVersion(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(cli.GetExitCode(err))
		}
	case cli.CmdHelp:
		cli.HandleHelp()
	case cli.CmdUnknown:
		name := ""
		if len(args.Raw) > 0 {
			name = args.Raw[0]
		}
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", name)
		fmt.Fprintf(os.Stderr, "Run 'locktower help' for usage.\n")
		os.Exit(cli.ExitUsageError)
	default:
		runDash(args) // Default to the dashboard
	}
}

// =============================================================================
// DASHBOARD
// =============================================================================

// runDash starts the live dashboard TUI against a running coordinator.
func runDash(args cli.Args) {
	cfg, err := config.Load()
	if err != nil {
		// A broken config file should not lock the operator out of the
		// dashboard; fall back to defaults and say so.
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		cfg = config.Default()
	}
	config.SetGlobal(cfg)

	cc := client.DefaultConfig()
	if cfg.Dash.ServerURL != "" {
		cc.BaseURL = cfg.Dash.ServerURL
	}
	cc.AuthToken = cfg.Server.AuthToken

	// CLI flags override config
	if args.Server != "" {
		cc.BaseURL = args.Server
	}
	if args.Session != "" {
		cc.Session = args.Session
	}
	if args.Token != "" {
		cc.AuthToken = args.Token
	}

	m := dashboard.New(client.New(cc), cfg.Dash)

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running dashboard: %v\n", err)
		os.Exit(cli.ExitGeneralError)
	}
}

// =============================================================================
// COORDINATOR DAEMON
// =============================================================================

// runServe runs the coordinator daemon until SIGINT or SIGTERM.
func runServe(args cli.Args) {
	cfg, cfgPath := loadServeConfig(args)

	if args.Listen != "" {
		cfg.Server.Addr = args.Listen
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.ExitConfigError)
	}
	config.SetGlobal(cfg)

	// Durable audit store. The audit trail is best-effort: a store that
	// cannot open must not keep the coordinator down, so failures drop the
	// daemon to ring-only auditing.
	var store *audit.Store
	if cfg.Audit.Enabled {
		path, err := cfg.Audit.ResolvePath()
		if err == nil {
			store, err = audit.OpenStore(path)
		}
		if err != nil {
			log.Printf("AUDIT_STORE_UNAVAILABLE | error=%v", err)
			store = nil
		}
	}

	ring := audit.NewRing(cfg.Audit.RingCapacity)
	var rec *audit.Recorder
	if store != nil {
		rec = audit.NewRecorder(ring, store)
	} else {
		rec = audit.NewRecorder(ring, nil)
	}

	mgr := locks.NewManager(locks.Config{
		Timeout: cfg.Locks.Timeout(),
		Events:  metrics.Hooks(),
	}, rec)

	reg := metrics.NewRegistry()
	metrics.Register(reg, mgr)

	srv := server.New(cfg, mgr, rec).WithRegistry(reg)
	if store != nil {
		srv.WithStore(store)
	}

	// Live-reload the lock timeout on config file edits. Watch failures are
	// not fatal; the daemon just runs with a fixed timeout.
	var watcher *config.Watcher
	if cfgPath != "" {
		w, err := config.Watch(cfgPath, func(next *config.Config) {
			mgr.SetTimeout(next.Locks.Timeout())
			config.SetGlobal(next)
		})
		if err != nil {
			log.Printf("CONFIG_WATCH_UNAVAILABLE | path=%s error=%v", cfgPath, err)
		} else {
			watcher = w
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exitCode := cli.ExitSuccess
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = cli.ExitNetworkError
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("SERVER_SHUTDOWN_ERROR | error=%v", err)
			exitCode = cli.ExitGeneralError
		}
	}

	if watcher != nil {
		watcher.Close()
	}
	rec.Close()
	if store != nil {
		if err := store.Close(); err != nil {
			log.Printf("AUDIT_STORE_CLOSE_ERROR | error=%v", err)
		}
	}

	if exitCode != cli.ExitSuccess {
		os.Exit(exitCode)
	}
}

// loadServeConfig resolves the daemon configuration, honoring an explicit
// --config path. Returns the config plus the path the reload watcher should
// follow; the path is empty when no config file exists yet.
func loadServeConfig(args cli.Args) (*config.Config, string) {
	if args.ConfigPath != "" {
		cfg, err := config.LoadFromPath(args.ConfigPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(cli.ExitConfigError)
		}
		return cfg, args.ConfigPath
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.ExitConfigError)
	}

	path, err := config.PathTOML()
	if err != nil {
		return cfg, ""
	}
	if _, err := os.Stat(path); err != nil {
		// No config file written yet; nothing to watch.
		return cfg, ""
	}
	return cfg, path
}
