// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli tests cover argument parsing, exit code mapping and the pure
// helpers behind the command handlers.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/locktower/internal/client"
)

// =============================================================================
// PARSE TESTS
// =============================================================================

// TestParse_Integration tests the actual Parse() function by temporarily
// modifying os.Args. This is an integration test of the full CLI parsing.
func TestParse_Integration(t *testing.T) {
	originalArgs := os.Args
	defer func() { os.Args = originalArgs }()

	tests := []struct {
		name        string
		args        []string
		wantCommand Command
		validate    func(*testing.T, Args)
	}{
		{
			name:        "no args defaults to dashboard",
			args:        []string{"locktower"},
			wantCommand: CmdDash,
		},
		{
			name:        "dash command",
			args:        []string{"locktower", "dash"},
			wantCommand: CmdDash,
		},
		{
			name:        "serve command",
			args:        []string{"locktower", "serve"},
			wantCommand: CmdServe,
		},
		{
			name:        "serve with listen and config",
			args:        []string{"locktower", "serve", "--listen", "0.0.0.0:7700", "--config", "lt.toml"},
			wantCommand: CmdServe,
			validate: func(t *testing.T, a Args) {
				if a.Listen != "0.0.0.0:7700" {
					t.Errorf("Listen = %q, want %q", a.Listen, "0.0.0.0:7700")
				}
				if a.ConfigPath != "lt.toml" {
					t.Errorf("ConfigPath = %q, want %q", a.ConfigPath, "lt.toml")
				}
			},
		},
		{
			name:        "status command",
			args:        []string{"locktower", "status"},
			wantCommand: CmdStatus,
		},
		{
			name:        "status alias with json flag",
			args:        []string{"locktower", "s", "--json"},
			wantCommand: CmdStatus,
			validate: func(t *testing.T, a Args) {
				if !a.JSON {
					t.Error("JSON should be true")
				}
			},
		},
		{
			name:        "global server flag before command",
			args:        []string{"locktower", "--server", "http://10.0.0.5:7700", "status"},
			wantCommand: CmdStatus,
			validate: func(t *testing.T, a Args) {
				if a.Server != "http://10.0.0.5:7700" {
					t.Errorf("Server = %q, want %q", a.Server, "http://10.0.0.5:7700")
				}
			},
		},
		{
			name:        "queue command",
			args:        []string{"locktower", "queue"},
			wantCommand: CmdQueue,
		},
		{
			name:        "simulate write with hold",
			args:        []string{"locktower", "simulate", "write", "orders", "--hold", "30000"},
			wantCommand: CmdSimulate,
			validate: func(t *testing.T, a Args) {
				if a.Mode != "write" {
					t.Errorf("Mode = %q, want %q", a.Mode, "write")
				}
				if a.Resource != "orders" {
					t.Errorf("Resource = %q, want %q", a.Resource, "orders")
				}
				if a.HoldMS != 30000 {
					t.Errorf("HoldMS = %d, want 30000", a.HoldMS)
				}
				if a.Count != 1 {
					t.Errorf("Count = %d, want 1", a.Count)
				}
			},
		},
		{
			name:        "simulate alias with count",
			args:        []string{"locktower", "sim", "read", "orders", "--count", "3"},
			wantCommand: CmdSimulate,
			validate: func(t *testing.T, a Args) {
				if a.Mode != "read" {
					t.Errorf("Mode = %q, want %q", a.Mode, "read")
				}
				if a.Count != 3 {
					t.Errorf("Count = %d, want 3", a.Count)
				}
				if a.HoldMS != 0 {
					t.Errorf("HoldMS = %d, want 0 (server default)", a.HoldMS)
				}
			},
		},
		{
			name:        "simulate uppercase mode is lowered",
			args:        []string{"locktower", "simulate", "WRITE", "orders"},
			wantCommand: CmdSimulate,
			validate: func(t *testing.T, a Args) {
				if a.Mode != "write" {
					t.Errorf("Mode = %q, want %q", a.Mode, "write")
				}
			},
		},
		{
			name:        "unlock command",
			args:        []string{"locktower", "unlock", "orders"},
			wantCommand: CmdUnlock,
			validate: func(t *testing.T, a Args) {
				if a.Resource != "orders" {
					t.Errorf("Resource = %q, want %q", a.Resource, "orders")
				}
			},
		},
		{
			name:        "clear with yes",
			args:        []string{"locktower", "clear", "--yes"},
			wantCommand: CmdClear,
			validate: func(t *testing.T, a Args) {
				if !a.Yes {
					t.Error("Yes should be true")
				}
			},
		},
		{
			name:        "audit default limit",
			args:        []string{"locktower", "audit"},
			wantCommand: CmdAudit,
			validate: func(t *testing.T, a Args) {
				if a.Limit != 50 {
					t.Errorf("Limit = %d, want 50", a.Limit)
				}
				if a.Follow {
					t.Error("Follow should be false")
				}
			},
		},
		{
			name:        "audit with limit and follow",
			args:        []string{"locktower", "audit", "--limit", "200", "--follow"},
			wantCommand: CmdAudit,
			validate: func(t *testing.T, a Args) {
				if a.Limit != 200 {
					t.Errorf("Limit = %d, want 200", a.Limit)
				}
				if !a.Follow {
					t.Error("Follow should be true")
				}
			},
		},
		{
			name:        "audit lines equals form",
			args:        []string{"locktower", "audit", "--lines=25"},
			wantCommand: CmdAudit,
			validate: func(t *testing.T, a Args) {
				if a.Limit != 25 {
					t.Errorf("Limit = %d, want 25", a.Limit)
				}
			},
		},
		{
			name:        "config set",
			args:        []string{"locktower", "config", "set", "locks.timeout_ms", "10000"},
			wantCommand: CmdConfig,
			validate: func(t *testing.T, a Args) {
				if a.Subcommand != "set" {
					t.Errorf("Subcommand = %q, want %q", a.Subcommand, "set")
				}
				if a.ConfigKey != "locks.timeout_ms" {
					t.Errorf("ConfigKey = %q, want %q", a.ConfigKey, "locks.timeout_ms")
				}
				if a.ConfigVal != "10000" {
					t.Errorf("ConfigVal = %q, want %q", a.ConfigVal, "10000")
				}
			},
		},
		{
			name:        "config bare defaults to show",
			args:        []string{"locktower", "config"},
			wantCommand: CmdConfig,
			validate: func(t *testing.T, a Args) {
				if a.Subcommand != "" {
					t.Errorf("Subcommand = %q, want empty", a.Subcommand)
				}
			},
		},
		{
			name:        "session flag rides any command",
			args:        []string{"locktower", "--session", "sess_ci", "simulate", "read", "a"},
			wantCommand: CmdSimulate,
			validate: func(t *testing.T, a Args) {
				if a.Session != "sess_ci" {
					t.Errorf("Session = %q, want %q", a.Session, "sess_ci")
				}
			},
		},
		{
			name:        "version command",
			args:        []string{"locktower", "version"},
			wantCommand: CmdVersion,
		},
		{
			name:        "version flag",
			args:        []string{"locktower", "--version"},
			wantCommand: CmdVersion,
		},
		{
			name:        "help command",
			args:        []string{"locktower", "help"},
			wantCommand: CmdHelp,
		},
		{
			name:        "help short flag",
			args:        []string{"locktower", "-h"},
			wantCommand: CmdHelp,
		},
		{
			name:        "unknown command",
			args:        []string{"locktower", "bogus"},
			wantCommand: CmdUnknown,
			validate: func(t *testing.T, a Args) {
				if len(a.Raw) == 0 || a.Raw[0] != "bogus" {
					t.Errorf("Raw = %v, want it to start with %q", a.Raw, "bogus")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			cmd, args := Parse()

			if cmd != tt.wantCommand {
				t.Errorf("Command = %v, want %v", cmd, tt.wantCommand)
			}

			if tt.validate != nil {
				tt.validate(t, args)
			}
		})
	}
}

func TestParseGlobalFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		validate func(*testing.T, []string, Args)
	}{
		{
			name: "equals forms",
			args: []string{"--server=http://x:1", "--session=sess_a", "--token=secret", "status"},
			validate: func(t *testing.T, remaining []string, a Args) {
				if a.Server != "http://x:1" {
					t.Errorf("Server = %q", a.Server)
				}
				if a.Session != "sess_a" {
					t.Errorf("Session = %q", a.Session)
				}
				if a.Token != "secret" {
					t.Errorf("Token = %q", a.Token)
				}
				if len(remaining) != 1 || remaining[0] != "status" {
					t.Errorf("remaining = %v, want [status]", remaining)
				}
			},
		},
		{
			name: "short flags",
			args: []string{"-q", "-v", "queue"},
			validate: func(t *testing.T, remaining []string, a Args) {
				if !a.Quiet || !a.Verbose {
					t.Errorf("Quiet = %v, Verbose = %v, want both true", a.Quiet, a.Verbose)
				}
			},
		},
		{
			name: "flags after the command still count",
			args: []string{"status", "--json"},
			validate: func(t *testing.T, remaining []string, a Args) {
				if !a.JSON {
					t.Error("JSON should be true")
				}
				if len(remaining) != 1 || remaining[0] != "status" {
					t.Errorf("remaining = %v, want [status]", remaining)
				}
			},
		},
		{
			name: "value flag at end of args is ignored",
			args: []string{"status", "--server"},
			validate: func(t *testing.T, remaining []string, a Args) {
				if a.Server != "" {
					t.Errorf("Server = %q, want empty", a.Server)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remaining, parsed := parseGlobalFlags(tt.args)
			tt.validate(t, remaining, parsed)
		})
	}
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestValidateSimulate(t *testing.T) {
	tests := []struct {
		name    string
		args    Args
		wantErr bool
	}{
		{"valid read", Args{Mode: "read", Resource: "orders", Count: 1}, false},
		{"valid write with hold", Args{Mode: "write", Resource: "orders", Count: 1, HoldMS: 5000}, false},
		{"missing mode", Args{Resource: "orders", Count: 1}, true},
		{"bad mode", Args{Mode: "exclusive", Resource: "orders", Count: 1}, true},
		{"missing resource", Args{Mode: "read", Count: 1}, true},
		{"negative hold", Args{Mode: "read", Resource: "a", Count: 1, HoldMS: -1}, true},
		{"zero count", Args{Mode: "read", Resource: "a", Count: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSimulate(tt.args)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateSimulate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var validationErr *ValidationError
				if !errors.As(err, &validationErr) {
					t.Errorf("error should be a *ValidationError, got %T", err)
				}
			}
		})
	}
}

func TestRequireConfirmation(t *testing.T) {
	t.Run("yes flag skips prompt", func(t *testing.T) {
		ok, err := requireConfirmation(true, "clear everything", false)
		if err != nil || !ok {
			t.Errorf("got (%v, %v), want (true, nil)", ok, err)
		}
	})

	t.Run("json mode requires yes flag", func(t *testing.T) {
		ok, err := requireConfirmation(false, "clear everything", true)
		if err == nil {
			t.Error("expected an error in JSON mode without --yes")
		}
		if ok {
			t.Error("should not be confirmed")
		}
	})
}

// =============================================================================
// EXIT CODE TESTS
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, ExitSuccess},
		{"validation error", &ValidationError{Field: "mode", Message: "bad"}, ExitUsageError},
		{"not found error", &NotFoundError{Resource: "config key \"x\""}, ExitNotFoundError},
		{"lock timeout", client.ErrTimeout, ExitTimeoutError},
		{"cancelled", client.ErrCancelled, ExitCancelledError},
		{"server down", client.ErrServerDown, ExitNetworkError},
		{"unauthorized", client.ErrUnauthorized, ExitAuthError},
		{"rate limited", client.ErrRateLimited, ExitNetworkError},
		{"wrapped client error", fmt.Errorf("simulate: %w", client.ErrTimeout), ExitTimeoutError},
		{"command error wrapping connection loss", &CommandError{Command: "audit", Err: errors.New("event stream connection closed by server")}, ExitNetworkError},
		{"dial failure message", errors.New("dial tcp 127.0.0.1:7700: connect: connection refused"), ExitNetworkError},
		{"config load message", errors.New("load config: toml parse failure"), ExitConfigError},
		{"unclassified", errors.New("boom"), ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.want {
				t.Errorf("GetExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

// =============================================================================
// HELPER TESTS
// =============================================================================

func TestFormatDurationShort(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Millisecond, "500ms"},
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1m30s"},
		{2*time.Hour + 5*time.Minute, "2h5m"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatDurationShort(tt.d); got != tt.want {
				t.Errorf("formatDurationShort(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

func TestSinceClampsFuture(t *testing.T) {
	got := since(time.Now().Add(time.Minute))
	if got != "0ms" {
		t.Errorf("since(future) = %q, want %q", got, "0ms")
	}
}

func TestUsageListsEveryCommand(t *testing.T) {
	commands := []string{
		"serve", "status", "queue", "simulate", "unlock",
		"clear", "audit", "config", "version", "help",
	}
	for _, cmd := range commands {
		if !strings.Contains(usageText, cmd) {
			t.Errorf("usage text does not mention %q", cmd)
		}
	}
}

// =============================================================================
// BENCHMARKS
// =============================================================================

func BenchmarkParseGlobalFlags(b *testing.B) {
	args := []string{"--server", "http://10.0.0.5:7700", "--session=sess_bench", "--json", "-q", "simulate", "write", "orders", "--hold", "30000"}
	for i := 0; i < b.N; i++ {
		parseGlobalFlags(args)
	}
}

func BenchmarkParseSimulateArgs(b *testing.B) {
	remaining := []string{"write", "orders", "--hold", "30000", "--count", "8"}
	for i := 0; i < b.N; i++ {
		var a Args
		parseSimulateArgs(&a, remaining)
	}
}
