// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for
// locktower.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ServerConfig: Daemon listen address, auth and rate limiting
//   - LocksConfig: Lock wait deadline and simulated hold bounds
//   - AuditConfig: Durable audit log location and ring capacity
//   - DashConfig: Dashboard polling and presentation settings
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (LOCKTOWER_*)
//   - ~/.locktower/config.toml
//   - ~/.locktower/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	addr := cfg.Server.Addr
//	timeout := cfg.Locks.Timeout()
//
// Watch for edits while the daemon runs:
//
//	w, _ := config.Watch(path, func(next *config.Config) {
//	    mgr.SetTimeout(next.Locks.Timeout())
//	})
//	defer w.Close()
package config
