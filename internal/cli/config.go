// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Configuration command implementation for locktower.
//
// Command: config
// Short:   Show, query and edit the locktower configuration
//
// Examples:
//   locktower config show                      Effective configuration
//   locktower config get dash.theme            One value, script-friendly
//   locktower config set locks.timeout_ms 10000
//   locktower config path                      Where the file lives
//   locktower config init                      Write the default file
//   locktower config keys                      Every settable key
//
// Keys use dot notation matching the TOML sections (server.addr,
// locks.timeout_ms, audit.enabled, dash.theme, ...). Set values are parsed
// by field type, validated as a whole config, then persisted.
package cli

import (
	"fmt"
	"os"

	"github.com/jeranaias/locktower/internal/config"
)

// HandleConfig handles the "config" command and its subcommands.
func HandleConfig(args Args) error {
	switch args.Subcommand {
	case "", "show":
		return handleConfigShow(args)
	case "get":
		return handleConfigGet(args)
	case "set":
		return handleConfigSet(args)
	case "path":
		return handleConfigPath(args)
	case "init":
		return handleConfigInit(args)
	case "keys":
		return handleConfigKeys(args)
	default:
		return &ValidationError{
			Field:   "subcommand",
			Message: fmt.Sprintf("unknown config subcommand %q (expected show, get, set, path, init or keys)", args.Subcommand),
		}
	}
}

// handleConfigShow prints the effective configuration with the auth token
// redacted.
func handleConfigShow(args Args) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if args.JSON {
		safe := cfg.Clone()
		if safe.Server.AuthToken != "" {
			safe.Server.AuthToken = "[REDACTED]"
		}
		return NewJSONResponse("config", safe).Print()
	}

	if !args.Quiet {
		if path, pathErr := config.PathTOML(); pathErr == nil {
			note := "not written yet, using defaults"
			if _, statErr := os.Stat(path); statErr == nil {
				note = "loaded"
			}
			fmt.Println(valueDimStyle.Render(fmt.Sprintf("config file: %s (%s)", path, note)))
		}
	}
	fmt.Println(cfg.String())
	return nil
}

// handleConfigGet prints a single value. Output is the bare value so shell
// scripts can capture it directly.
func handleConfigGet(args Args) error {
	if args.ConfigKey == "" {
		return &ValidationError{Field: "key", Message: "usage: locktower config get KEY"}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	value, err := cfg.Get(args.ConfigKey)
	if err != nil {
		return &NotFoundError{Resource: fmt.Sprintf("config key %q", args.ConfigKey)}
	}

	if args.JSON {
		return NewJSONResponse("config", ConfigKeyData{Key: args.ConfigKey, Value: value}).Print()
	}
	fmt.Printf("%v\n", value)
	return nil
}

// handleConfigSet updates one value and persists the whole file. The new
// config is validated before anything touches disk.
func handleConfigSet(args Args) error {
	if args.ConfigKey == "" || args.ConfigVal == "" {
		return &ValidationError{Field: "arguments", Message: "usage: locktower config set KEY VALUE"}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Set(args.ConfigKey, args.ConfigVal); err != nil {
		return &ValidationError{Field: args.ConfigKey, Message: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return &ValidationError{Field: args.ConfigKey, Message: err.Error()}
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	if args.JSON {
		value, _ := cfg.Get(args.ConfigKey)
		return NewJSONResponse("config", ConfigKeyData{Key: args.ConfigKey, Value: value}).Print()
	}
	if !args.Quiet {
		fmt.Printf("set %s = %s\n", args.ConfigKey, args.ConfigVal)
	}
	return nil
}

// handleConfigPath prints the config file location.
func handleConfigPath(args Args) error {
	path, err := config.PathTOML()
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	_, statErr := os.Stat(path)
	exists := statErr == nil

	if args.JSON {
		return NewJSONResponse("config", ConfigPathData{Path: path, Exists: exists}).Print()
	}
	fmt.Println(path)
	if !args.Quiet && !exists {
		fmt.Println(valueDimStyle.Render("(not written yet; run 'locktower config init')"))
	}
	return nil
}

// handleConfigInit writes the default config file. It refuses to clobber an
// existing file.
func handleConfigInit(args Args) error {
	path, err := config.PathTOML()
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if _, statErr := os.Stat(path); statErr == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := config.Save(config.Default()); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	if args.JSON {
		return NewJSONResponse("config", ConfigPathData{Path: path, Exists: true}).Print()
	}
	fmt.Printf("wrote default config to %s\n", path)
	return nil
}

// handleConfigKeys lists every key config set understands.
func handleConfigKeys(args Args) error {
	keys := config.AllKeys()

	if args.JSON {
		return NewJSONResponse("config", keys).Print()
	}
	for _, key := range keys {
		fmt.Println(key)
	}
	return nil
}
