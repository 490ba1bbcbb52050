// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Structures, defaults, load/save and validation.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/locktower/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete locktower configuration.
type Config struct {
	// Version of the config schema, bumped on incompatible changes.
	Version string `toml:"version" json:"version"`

	// Server holds the daemon's listen and protection settings.
	Server ServerConfig `toml:"server" json:"server"`

	// Locks holds scheduling knobs for the lock table.
	Locks LocksConfig `toml:"locks" json:"locks"`

	// Audit holds the audit sink settings.
	Audit AuditConfig `toml:"audit" json:"audit"`

	// Dash holds the terminal dashboard settings.
	Dash DashConfig `toml:"dash" json:"dash"`
}

// ServerConfig contains the daemon's HTTP settings.
type ServerConfig struct {
	// Addr is the listen address, host:port. Defaults to loopback; bind a
	// routable interface only behind an auth token.
	Addr string `toml:"addr" json:"addr"`
	// AuthToken, when set, is required as "Authorization: Bearer <token>"
	// on every API request. Empty disables auth (loopback use).
	AuthToken string `toml:"auth_token" json:"auth_token"`
	// RateLimitRPS is the sustained per-client request rate.
	RateLimitRPS float64 `toml:"rate_limit_rps" json:"rate_limit_rps"`
	// RateLimitBurst is the per-client burst allowance.
	RateLimitBurst int `toml:"rate_limit_burst" json:"rate_limit_burst"`
	// ShutdownGraceSecs bounds how long Shutdown waits for in-flight
	// requests before cutting them off.
	ShutdownGraceSecs int `toml:"shutdown_grace_secs" json:"shutdown_grace_secs"`
}

// LocksConfig contains lock table tuning.
type LocksConfig struct {
	// TimeoutMS is how long an acquire may wait in the queue before it
	// fails with a timeout.
	TimeoutMS int `toml:"timeout_ms" json:"timeout_ms"`
	// DefaultHoldMS is the hold duration for simulated locks when the
	// request does not name one.
	DefaultHoldMS int `toml:"default_hold_ms" json:"default_hold_ms"`
	// MaxHoldMS caps the hold duration a simulate request may ask for.
	MaxHoldMS int `toml:"max_hold_ms" json:"max_hold_ms"`
}

// AuditConfig contains audit sink settings.
type AuditConfig struct {
	// Enabled controls the durable SQLite log. The in-memory ring is
	// always on; it is the data behind the recent-activity view.
	Enabled bool `toml:"enabled" json:"enabled"`
	// Path is the SQLite database location (empty = ~/.locktower/audit.db).
	Path string `toml:"path" json:"path"`
	// RingCapacity is how many recent events the in-memory ring keeps.
	RingCapacity int `toml:"ring_capacity" json:"ring_capacity"`
}

// DashConfig contains terminal dashboard settings.
type DashConfig struct {
	// ServerURL is the daemon base URL the dashboard and CLI talk to.
	ServerURL string `toml:"server_url" json:"server_url"`
	// PollMS is the snapshot refresh interval.
	PollMS int `toml:"poll_ms" json:"poll_ms"`
	// Theme is the dashboard theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// CompactMode hides the activity log pane, leaving the full height
	// to the lock and queue tables. Useful on short terminals.
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
}

// =============================================================================
// DURATION HELPERS
// =============================================================================

// Timeout returns the lock wait deadline as a duration.
func (l LocksConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutMS) * time.Millisecond
}

// DefaultHold returns the default simulated hold as a duration.
func (l LocksConfig) DefaultHold() time.Duration {
	return time.Duration(l.DefaultHoldMS) * time.Millisecond
}

// MaxHold returns the simulated hold cap as a duration.
func (l LocksConfig) MaxHold() time.Duration {
	return time.Duration(l.MaxHoldMS) * time.Millisecond
}

// ShutdownGrace returns the shutdown deadline as a duration.
func (s ServerConfig) ShutdownGrace() time.Duration {
	return time.Duration(s.ShutdownGraceSecs) * time.Second
}

// PollInterval returns the dashboard refresh interval as a duration.
func (d DashConfig) PollInterval() time.Duration {
	return time.Duration(d.PollMS) * time.Millisecond
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Server: ServerConfig{
			Addr:              "127.0.0.1:7700",
			AuthToken:         "",
			RateLimitRPS:      50,
			RateLimitBurst:    100,
			ShutdownGraceSecs: 5,
		},

		Locks: LocksConfig{
			TimeoutMS:     5000,
			DefaultHoldMS: 3000,
			MaxHoldMS:     600000, // 10 minutes
		},

		Audit: AuditConfig{
			Enabled:      true,
			Path:         "",
			RingCapacity: 200,
		},

		Dash: DashConfig{
			ServerURL:   "http://127.0.0.1:7700",
			PollMS:      500,
			Theme:       "dark",
			CompactMode: false,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// Dir returns the locktower configuration directory path.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".locktower"), nil
}

// PathTOML returns the path to the TOML config file.
func PathTOML() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// PathJSON returns the path to the JSON config file.
func PathJSON() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// DefaultAuditPath returns where the durable audit log lives when the config
// does not name a location.
func DefaultAuditPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "audit.db"), nil
}

// ResolvePath returns the configured audit database path, falling back to
// the default location.
func (a AuditConfig) ResolvePath() (string, error) {
	if a.Path != "" {
		return a.Path, nil
	}
	return DefaultAuditPath()
}

// EnsureDir ensures the config directory exists.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only) to protect
// the auth token.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err // File doesn't exist or not accessible
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}

	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	// Try TOML first
	tomlPath, err := PathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	// Try JSON as fallback
	jsonPath, err := PathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	cfg, err = finishLoad(cfg)
	if err != nil {
		return nil, err
	}

	// Return defaults (with any load error for informational purposes)
	return cfg, loadErr
}

// finishLoad applies env overrides and validates the result.
func finishLoad(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		// Permissions might not be fixable on all systems; warn and go on.
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return fillDefaults(cfg)
}

// LoadJSON loads configuration from a JSON file.
// SECURITY: Checks and fixes file permissions on load.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return fillDefaults(cfg)
}

// LoadFromPath loads configuration from a specific file path with full
// validation. Files ending in .json parse as JSON, anything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := &Config{}

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finishLoad(cfg)
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) error {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}

	// Server
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaults.Server.Addr
	}
	if cfg.Server.RateLimitRPS == 0 {
		cfg.Server.RateLimitRPS = defaults.Server.RateLimitRPS
	}
	if cfg.Server.RateLimitBurst == 0 {
		cfg.Server.RateLimitBurst = defaults.Server.RateLimitBurst
	}
	if cfg.Server.ShutdownGraceSecs == 0 {
		cfg.Server.ShutdownGraceSecs = defaults.Server.ShutdownGraceSecs
	}

	// Locks
	if cfg.Locks.TimeoutMS == 0 {
		cfg.Locks.TimeoutMS = defaults.Locks.TimeoutMS
	}
	if cfg.Locks.DefaultHoldMS == 0 {
		cfg.Locks.DefaultHoldMS = defaults.Locks.DefaultHoldMS
	}
	if cfg.Locks.MaxHoldMS == 0 {
		cfg.Locks.MaxHoldMS = defaults.Locks.MaxHoldMS
	}

	// Audit
	if cfg.Audit.RingCapacity == 0 {
		cfg.Audit.RingCapacity = defaults.Audit.RingCapacity
	}

	// Dash
	if cfg.Dash.ServerURL == "" {
		cfg.Dash.ServerURL = defaults.Dash.ServerURL
	}
	if cfg.Dash.PollMS == 0 {
		cfg.Dash.PollMS = defaults.Dash.PollMS
	}
	if cfg.Dash.Theme == "" {
		cfg.Dash.Theme = defaults.Dash.Theme
	}

	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := PathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	if err := EnsureDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// Ensure permissions are correct even if file already existed
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# locktower configuration file")
	fmt.Fprintln(file, "# Generated by locktower - edit with care")
	fmt.Fprintln(file, "#")
	fmt.Fprintln(file, "# Documentation: https://github.com/jeranaias/locktower")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// SaveJSON saves the configuration to a JSON file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func SaveJSON(cfg *Config, path string) error {
	if err := EnsureDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// ==========================================================================
	// Server Settings Validation
	// ==========================================================================

	if c.Server.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
			errs = append(errs, ValidationError{
				Field:   "server.addr",
				Message: fmt.Sprintf("must be host:port, got %q", c.Server.Addr),
			})
		}
	}

	if c.Server.RateLimitRPS <= 0 {
		errs = append(errs, ValidationError{
			Field:   "server.rate_limit_rps",
			Message: fmt.Sprintf("must be positive, got %g", c.Server.RateLimitRPS),
		})
	}
	if c.Server.RateLimitBurst < 1 {
		errs = append(errs, ValidationError{
			Field:   "server.rate_limit_burst",
			Message: fmt.Sprintf("must be at least 1, got %d", c.Server.RateLimitBurst),
		})
	}
	if c.Server.ShutdownGraceSecs < 1 || c.Server.ShutdownGraceSecs > 300 {
		errs = append(errs, ValidationError{
			Field:   "server.shutdown_grace_secs",
			Message: fmt.Sprintf("must be 1-300, got %d", c.Server.ShutdownGraceSecs),
		})
	}

	// ==========================================================================
	// Lock Settings Validation
	// ==========================================================================

	// A sub-100ms deadline expires faster than a queued request can
	// realistically be scheduled; treat it as a configuration mistake.
	if c.Locks.TimeoutMS < 100 || c.Locks.TimeoutMS > 600000 {
		errs = append(errs, ValidationError{
			Field:   "locks.timeout_ms",
			Message: fmt.Sprintf("must be 100-600000, got %d", c.Locks.TimeoutMS),
		})
	}
	if c.Locks.DefaultHoldMS < 100 {
		errs = append(errs, ValidationError{
			Field:   "locks.default_hold_ms",
			Message: fmt.Sprintf("must be at least 100, got %d", c.Locks.DefaultHoldMS),
		})
	}
	if c.Locks.MaxHoldMS < c.Locks.DefaultHoldMS {
		errs = append(errs, ValidationError{
			Field:   "locks.max_hold_ms",
			Message: fmt.Sprintf("must be at least default_hold_ms (%d), got %d",
				c.Locks.DefaultHoldMS, c.Locks.MaxHoldMS),
		})
	}
	if c.Locks.MaxHoldMS > 3600000 {
		errs = append(errs, ValidationError{
			Field:   "locks.max_hold_ms",
			Message: fmt.Sprintf("must be at most 3600000 (1 hour), got %d", c.Locks.MaxHoldMS),
		})
	}

	// ==========================================================================
	// Audit Settings Validation
	// ==========================================================================

	if c.Audit.RingCapacity < 10 || c.Audit.RingCapacity > 10000 {
		errs = append(errs, ValidationError{
			Field:   "audit.ring_capacity",
			Message: fmt.Sprintf("must be 10-10000, got %d", c.Audit.RingCapacity),
		})
	}

	// ==========================================================================
	// Dash Settings Validation
	// ==========================================================================

	if c.Dash.PollMS < 100 || c.Dash.PollMS > 10000 {
		errs = append(errs, ValidationError{
			Field:   "dash.poll_ms",
			Message: fmt.Sprintf("must be 100-10000, got %d", c.Dash.PollMS),
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.Dash.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "dash.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.Dash.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies LOCKTOWER_* environment variables on top of the
// loaded configuration.
func (c *Config) ApplyEnvOverrides() {
	// LOCKTOWER_ADDR
	if addr := os.Getenv("LOCKTOWER_ADDR"); addr != "" {
		c.Server.Addr = addr
	}

	// LOCKTOWER_AUTH_TOKEN
	if token := os.Getenv("LOCKTOWER_AUTH_TOKEN"); token != "" {
		c.Server.AuthToken = token
	}

	// LOCKTOWER_TIMEOUT_MS
	if timeout := os.Getenv("LOCKTOWER_TIMEOUT_MS"); timeout != "" {
		if ms, err := strconv.Atoi(timeout); err == nil {
			c.Locks.TimeoutMS = ms
		}
	}

	// LOCKTOWER_AUDIT_PATH
	if path := os.Getenv("LOCKTOWER_AUDIT_PATH"); path != "" {
		c.Audit.Path = path
	}

	// LOCKTOWER_AUDIT_ENABLED
	if enabled := os.Getenv("LOCKTOWER_AUDIT_ENABLED"); enabled != "" {
		c.Audit.Enabled = enabled == "1" || strings.ToLower(enabled) == "true"
	}

	// LOCKTOWER_SERVER_URL (CLI and dashboard side)
	if url := os.Getenv("LOCKTOWER_SERVER_URL"); url != "" {
		c.Dash.ServerURL = url
	}

	// LOCKTOWER_THEME
	if theme := os.Getenv("LOCKTOWER_THEME"); theme != "" {
		c.Dash.Theme = theme
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "server.addr").
func (c *Config) Get(key string) (interface{}, error) {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return nil, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})

		if !field.IsValid() {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		// If this is the last part, return the value
		if i == len(parts)-1 {
			return field.Interface(), nil
		}

		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return nil, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}

	return nil, fmt.Errorf("invalid key: %s", key)
}

// Set sets a configuration value using dot notation (e.g., "locks.timeout_ms").
func (c *Config) Set(key string, value interface{}) error {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})

		if !field.IsValid() {
			return fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		// If this is the last part, set the value
		if i == len(parts)-1 {
			if !field.CanSet() {
				return fmt.Errorf("cannot set field: %s", key)
			}
			return setFieldValue(field, value)
		}

		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}

	return fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field
// equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}

	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type
// conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	// Handle string input with type conversion
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal := strVal == "1" || strings.ToLower(strVal) == "true" || strings.ToLower(strVal) == "yes"
			field.SetBool(boolVal)
			return nil
		}
	}

	// Direct assignment for matching types
	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}

	// Type conversion for compatible types
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}

	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// AllKeys returns all configuration keys in dot notation.
func AllKeys() []string {
	return []string{
		"version",
		"server.addr",
		"server.auth_token",
		"server.rate_limit_rps",
		"server.rate_limit_burst",
		"server.shutdown_grace_secs",
		"locks.timeout_ms",
		"locks.default_hold_ms",
		"locks.max_hold_ms",
		"audit.enabled",
		"audit.path",
		"audit.ring_capacity",
		"dash.server_url",
		"dash.poll_ms",
		"dash.theme",
		"dash.compact_mode",
	}
}

// Clone creates a copy of the configuration that may be mutated freely.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a string representation of the config for debugging.
// SECURITY: Redacts the auth token to prevent accidental exposure in logs,
// error messages, or debug output.
func (c *Config) String() string {
	safe := c.Clone()

	if safe.Server.AuthToken != "" {
		safe.Server.AuthToken = "[REDACTED]"
	}

	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			// Log but don't fail - use defaults
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
