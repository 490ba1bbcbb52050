// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// helpers.go - Shared helpers for the locktower CLI commands.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/jeranaias/locktower/internal/client"
	"github.com/jeranaias/locktower/internal/config"
)

// newClient builds a coordinator client from the config file and the global
// flag overrides. Config load failures fall back to client defaults so that
// commands still work against a default-addressed daemon.
func newClient(args Args) *client.Client {
	cc := client.DefaultConfig()

	if cfg, err := config.Load(); err == nil {
		if cfg.Dash.ServerURL != "" {
			cc.BaseURL = cfg.Dash.ServerURL
		}
		cc.AuthToken = cfg.Server.AuthToken
	}

	if args.Server != "" {
		cc.BaseURL = args.Server
	}
	if args.Session != "" {
		cc.Session = args.Session
	}
	if args.Token != "" {
		cc.AuthToken = args.Token
	}

	return client.New(cc)
}

// snapshotContext bounds a one-shot API call.
func snapshotContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

// interruptContext lives until ctrl+c or SIGTERM. Used by long-running
// commands such as "audit --follow".
func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// isTTY reports whether stdin is a terminal, so prompts are possible.
func isTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// requireConfirmation gates a destructive action.
//
// Flow:
//  1. --yes skips the prompt
//  2. JSON mode never prompts; it requires --yes
//  3. a non-TTY stdin (pipes, CI) requires --yes
//  4. otherwise ask interactively
func requireConfirmation(confirmed bool, action string, jsonMode bool) (bool, error) {
	if confirmed {
		return true, nil
	}
	if jsonMode {
		return false, fmt.Errorf("confirmation required: pass --yes for destructive actions in JSON mode")
	}
	if !isTTY() {
		return false, fmt.Errorf("confirmation required but stdin is not a terminal; pass --yes")
	}

	fmt.Printf("Are you sure you want to %s? [y/N]: ", action)

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}

	response := strings.ToLower(strings.TrimSpace(input))
	return response == "y" || response == "yes", nil
}

// formatDurationShort formats a short duration string.
func formatDurationShort(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}

// since renders how long ago t was, clamped at zero for clock skew.
func since(t time.Time) string {
	d := time.Since(t)
	if d < 0 {
		d = 0
	}
	return formatDurationShort(d)
}
