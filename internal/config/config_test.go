// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:7700" {
		t.Errorf("default addr = %q", cfg.Server.Addr)
	}
	if cfg.Locks.TimeoutMS != 5000 {
		t.Errorf("default timeout_ms = %d", cfg.Locks.TimeoutMS)
	}
	if !cfg.Audit.Enabled {
		t.Error("audit should be enabled by default")
	}
}

func TestLoadFromPathFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	partial := `
[server]
addr = "0.0.0.0:9900"

[locks]
timeout_ms = 2500
`
	if err := os.WriteFile(path, []byte(partial), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Server.Addr != "0.0.0.0:9900" {
		t.Errorf("addr = %q, want explicit value", cfg.Server.Addr)
	}
	if cfg.Locks.TimeoutMS != 2500 {
		t.Errorf("timeout_ms = %d, want explicit value", cfg.Locks.TimeoutMS)
	}
	// Everything unset falls back to defaults.
	if cfg.Locks.DefaultHoldMS != 3000 {
		t.Errorf("default_hold_ms = %d, want default 3000", cfg.Locks.DefaultHoldMS)
	}
	if cfg.Dash.Theme != "dark" {
		t.Errorf("theme = %q, want default dark", cfg.Dash.Theme)
	}
	if cfg.Audit.RingCapacity != 200 {
		t.Errorf("ring_capacity = %d, want default 200", cfg.Audit.RingCapacity)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad addr", func(c *Config) { c.Server.Addr = "not-an-addr" }, "server.addr"},
		{"zero rps", func(c *Config) { c.Server.RateLimitRPS = -1 }, "server.rate_limit_rps"},
		{"tiny timeout", func(c *Config) { c.Locks.TimeoutMS = 50 }, "locks.timeout_ms"},
		{"hold above cap", func(c *Config) { c.Locks.DefaultHoldMS = 10000; c.Locks.MaxHoldMS = 5000 }, "locks.max_hold_ms"},
		{"huge ring", func(c *Config) { c.Audit.RingCapacity = 50000 }, "audit.ring_capacity"},
		{"bad theme", func(c *Config) { c.Dash.Theme = "solarized" }, "dash.theme"},
		{"slow poll", func(c *Config) { c.Dash.PollMS = 60000 }, "dash.poll_ms"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Fatalf("error %q does not name field %s", err, tc.field)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("LOCKTOWER_ADDR", "127.0.0.1:8800")
	t.Setenv("LOCKTOWER_AUTH_TOKEN", "hunter2")
	t.Setenv("LOCKTOWER_TIMEOUT_MS", "1234")
	t.Setenv("LOCKTOWER_AUDIT_ENABLED", "false")
	t.Setenv("LOCKTOWER_SERVER_URL", "http://127.0.0.1:8800")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Server.Addr != "127.0.0.1:8800" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Server.AuthToken != "hunter2" {
		t.Errorf("auth token not applied")
	}
	if cfg.Locks.TimeoutMS != 1234 {
		t.Errorf("timeout_ms = %d", cfg.Locks.TimeoutMS)
	}
	if cfg.Audit.Enabled {
		t.Error("audit should be disabled by env override")
	}
	if cfg.Dash.ServerURL != "http://127.0.0.1:8800" {
		t.Errorf("server_url = %q", cfg.Dash.ServerURL)
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()
	if got := cfg.Locks.Timeout(); got != 5*time.Second {
		t.Errorf("Timeout() = %v", got)
	}
	if got := cfg.Locks.DefaultHold(); got != 3*time.Second {
		t.Errorf("DefaultHold() = %v", got)
	}
	if got := cfg.Server.ShutdownGrace(); got != 5*time.Second {
		t.Errorf("ShutdownGrace() = %v", got)
	}
	if got := cfg.Dash.PollInterval(); got != 500*time.Millisecond {
		t.Errorf("PollInterval() = %v", got)
	}
}

func TestGetSetDotNotation(t *testing.T) {
	cfg := Default()

	v, err := cfg.Get("server.addr")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v.(string) != "127.0.0.1:7700" {
		t.Errorf("Get(server.addr) = %v", v)
	}

	if err := cfg.Set("locks.timeout_ms", "2500"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if cfg.Locks.TimeoutMS != 2500 {
		t.Errorf("Set left timeout_ms = %d", cfg.Locks.TimeoutMS)
	}

	if err := cfg.Set("dash.compact_mode", "true"); err != nil {
		t.Fatalf("Set bool: %v", err)
	}
	if !cfg.Dash.CompactMode {
		t.Error("Set left compact_mode false")
	}

	if _, err := cfg.Get("no.such.key"); err == nil {
		t.Error("Get on unknown key should fail")
	}
	if err := cfg.Set("server.nope", "x"); err == nil {
		t.Error("Set on unknown key should fail")
	}
}

func TestAllKeysResolve(t *testing.T) {
	cfg := Default()
	for _, key := range AllKeys() {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("Get(%q): %v", key, err)
		}
	}
}

func TestSaveTOMLRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Server.Addr = "127.0.0.1:7171"
	cfg.Locks.TimeoutMS = 750
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config file mode = %o, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if loaded.Server.Addr != "127.0.0.1:7171" || loaded.Locks.TimeoutMS != 750 {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}

func TestStringRedactsAuthToken(t *testing.T) {
	cfg := Default()
	cfg.Server.AuthToken = "super-secret"

	s := cfg.String()
	if strings.Contains(s, "super-secret") {
		t.Fatal("String() leaked the auth token")
	}
	if !strings.Contains(s, "[REDACTED]") {
		t.Fatal("String() should mark the token as redacted")
	}
	// Redaction must not touch the live config.
	if cfg.Server.AuthToken != "super-secret" {
		t.Fatal("String() mutated the config")
	}
}

// TestConfig_ConcurrentAccess tests that Global() and SetGlobal() can be
// safely called concurrently without race conditions.
// Run with: go test -race -v ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	ResetGlobalForTesting()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()
			SetGlobal(Default())
		}()

		go func() {
			defer wg.Done()
			if cfg := Global(); cfg == nil {
				t.Error("Global() returned nil")
			}
		}()
	}

	wg.Wait()
}

func TestWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[locks]\ntimeout_ms = 5000\n"), 0600); err != nil {
		t.Fatal(err)
	}

	got := make(chan *Config, 4)
	w, err := Watch(path, func(cfg *Config) { got <- cfg })
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	// A broken intermediate state must not reach the callback.
	if err := os.WriteFile(path, []byte("timeout_ms = [broken"), 0600); err != nil {
		t.Fatal(err)
	}
	select {
	case cfg := <-got:
		t.Fatalf("callback fired for invalid config: %+v", cfg)
	case <-time.After(700 * time.Millisecond):
	}

	if err := os.WriteFile(path, []byte("[locks]\ntimeout_ms = 1500\n"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-got:
		if cfg.Locks.TimeoutMS != 1500 {
			t.Fatalf("reloaded timeout_ms = %d, want 1500", cfg.Locks.TimeoutMS)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("config change never reached the callback")
	}
}
