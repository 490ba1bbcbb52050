// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command handlers for locktower.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdDash Command = iota
	CmdServe
	CmdStatus
	CmdQueue
	CmdSimulate
	CmdUnlock
	CmdClear
	CmdAudit
	CmdConfig
	CmdVersion
	CmdHelp
	CmdUnknown
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Server  string // --server: coordinator base URL
	Session string // --session: session id for lock calls
	Token   string // --token: bearer token
	JSON    bool   // --json: machine-readable output
	Quiet   bool
	Verbose bool

	// Command-specific
	Resource   string // simulate, unlock
	Mode       string // simulate: "read" or "write"
	HoldMS     int    // simulate: --hold (0 = server default)
	Count      int    // simulate: --count
	Limit      int    // audit: --limit
	Follow     bool   // audit: --follow
	Yes        bool   // clear: --yes
	ConfigPath string // serve: --config
	Listen     string // serve: --listen
	Subcommand string // config: show|get|set|path|init|keys
	ConfigKey  string
	ConfigVal  string

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `locktower - reader/writer lock coordinator for shared resources

Locktower coordinates read and write access to named resources across
processes. One daemon owns the lock table; clients acquire over HTTP and
watch activity over a websocket.

It provides:
  - Shared read / exclusive write locks per resource
  - Strict FIFO queueing with write barriers
  - Per-request wait timeouts
  - An audit trail (in-memory ring plus optional SQLite log)
  - A live terminal dashboard

Usage:
  locktower                       Open the dashboard (default)
  locktower dash                  Open the dashboard
  locktower serve                 Run the coordinator daemon
  locktower status, s             Show held locks and table stats
  locktower queue                 Show waiting requests in queue order
  locktower simulate MODE RES     Start a synthetic holder (read|write)
  locktower unlock RES            Force-unlock one resource
  locktower clear                 Force-unlock every resource
  locktower audit                 Show recent audit entries
  locktower config [subcommand]   Configuration management
  locktower version               Show version information
  locktower help                  Show this help

Serve Flags:
  --config PATH   Load configuration from PATH instead of the default
  --listen ADDR   Listen address (overrides config server.addr)

Simulate Flags:
  --hold MS       Hold duration in milliseconds (default: server config)
  --count N       Start N holders (default: 1)

Audit Flags:
  --limit N       Show last N entries (default: 50)
  --follow, -f    Stream live events over the websocket

Clear Flags:
  --yes, -y       Skip the confirmation prompt

Config Subcommands:
  locktower config show           Show effective configuration (default)
  locktower config get KEY        Print one value (dot notation)
  locktower config set KEY VALUE  Set and persist one value
  locktower config path           Print the config file location
  locktower config init           Write the default config file
  locktower config keys           List every settable key

Global Flags:
  --server URL    Coordinator base URL (default: http://127.0.0.1:7700)
  --session ID    Session id used for lock calls
  --token TOKEN   Bearer token when the server requires auth
  --json          Output in JSON format
  -q, --quiet     Minimal output
  -v, --verbose   Debug output

Examples:
  # Run the daemon
  locktower serve
  locktower serve --listen 0.0.0.0:7700 --config ./locktower.toml

  # Watch and poke at the lock table
  locktower                                   Open the dashboard
  locktower status                            Who holds what
  locktower queue                             Who is waiting
  locktower simulate write orders --hold 30000
  locktower simulate read orders --count 3
  locktower unlock orders                     Evict holders, reject waiters
  locktower clear --yes                       Wipe the whole table

  # Audit trail
  locktower audit --limit 100                 Recent entries, newest first
  locktower audit --follow                    Live event stream
  locktower audit --json                      Machine-readable tail

  # Configuration
  locktower config show
  locktower config set locks.timeout_ms 10000
  locktower config get dash.theme

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("locktower version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	args := os.Args[1:]

	// Parse global flags first
	remaining, parsedArgs := parseGlobalFlags(args)

	// If no remaining args, default to the dashboard
	if len(remaining) == 0 {
		return CmdDash, parsedArgs
	}

	// Check first argument for command
	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "dash", "dashboard", "tui":
		return CmdDash, parsedArgs

	case "serve", "server", "daemon":
		parseServeArgs(&parsedArgs, remaining)
		return CmdServe, parsedArgs

	case "status", "s":
		return CmdStatus, parsedArgs

	case "queue", "pending":
		return CmdQueue, parsedArgs

	case "simulate", "sim":
		parseSimulateArgs(&parsedArgs, remaining)
		return CmdSimulate, parsedArgs

	case "unlock", "force-unlock":
		parseUnlockArgs(&parsedArgs, remaining)
		return CmdUnlock, parsedArgs

	case "clear", "clear-all":
		parseClearArgs(&parsedArgs, remaining)
		return CmdClear, parsedArgs

	case "audit", "log":
		parseAuditArgs(&parsedArgs, remaining)
		return CmdAudit, parsedArgs

	case "config":
		parseConfigArgs(&parsedArgs, remaining)
		return CmdConfig, parsedArgs

	case "version", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		// Unknown command - keep it in Raw so main can report it
		parsedArgs.Raw = append([]string{cmd}, remaining...)
		return CmdUnknown, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	i := 0
	for i < len(args) {
		arg := args[i]

		switch arg {
		case "--json":
			parsedArgs.JSON = true
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "-v", "--verbose":
			parsedArgs.Verbose = true
		case "--server":
			if i+1 < len(args) {
				i++
				parsedArgs.Server = args[i]
			}
		case "--session":
			if i+1 < len(args) {
				i++
				parsedArgs.Session = args[i]
			}
		case "--token":
			if i+1 < len(args) {
				i++
				parsedArgs.Token = args[i]
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--server="):
				parsedArgs.Server = strings.TrimPrefix(arg, "--server=")
			case strings.HasPrefix(arg, "--session="):
				parsedArgs.Session = strings.TrimPrefix(arg, "--session=")
			case strings.HasPrefix(arg, "--token="):
				parsedArgs.Token = strings.TrimPrefix(arg, "--token=")
			default:
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, parsedArgs
}

// parseServeArgs parses serve command specific arguments.
func parseServeArgs(args *Args, remaining []string) {
	for i := 0; i < len(remaining); i++ {
		arg := remaining[i]

		switch arg {
		case "--config", "-c":
			if i+1 < len(remaining) {
				i++
				args.ConfigPath = remaining[i]
			}
		case "--listen", "-l":
			if i+1 < len(remaining) {
				i++
				args.Listen = remaining[i]
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--config="):
				args.ConfigPath = strings.TrimPrefix(arg, "--config=")
			case strings.HasPrefix(arg, "--listen="):
				args.Listen = strings.TrimPrefix(arg, "--listen=")
			}
		}
	}
}

// parseSimulateArgs parses simulate command specific arguments.
// Grammar: simulate MODE RESOURCE [--hold MS] [--count N]
func parseSimulateArgs(args *Args, remaining []string) {
	args.Count = 1

	var positional []string
	for i := 0; i < len(remaining); i++ {
		arg := remaining[i]

		switch arg {
		case "--hold":
			if i+1 < len(remaining) {
				i++
				if n, err := strconv.Atoi(remaining[i]); err == nil && n >= 0 {
					args.HoldMS = n
				}
			}
		case "--count":
			if i+1 < len(remaining) {
				i++
				if n, err := strconv.Atoi(remaining[i]); err == nil && n > 0 {
					args.Count = n
				}
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--hold="):
				if n, err := strconv.Atoi(strings.TrimPrefix(arg, "--hold=")); err == nil && n >= 0 {
					args.HoldMS = n
				}
			case strings.HasPrefix(arg, "--count="):
				if n, err := strconv.Atoi(strings.TrimPrefix(arg, "--count=")); err == nil && n > 0 {
					args.Count = n
				}
			case !strings.HasPrefix(arg, "-"):
				positional = append(positional, arg)
			}
		}
	}

	if len(positional) > 0 {
		args.Mode = strings.ToLower(positional[0])
	}
	if len(positional) > 1 {
		args.Resource = positional[1]
	}
}

// parseUnlockArgs parses unlock command specific arguments.
func parseUnlockArgs(args *Args, remaining []string) {
	for _, arg := range remaining {
		if !strings.HasPrefix(arg, "-") {
			args.Resource = arg
			return
		}
	}
}

// parseClearArgs parses clear command specific arguments.
func parseClearArgs(args *Args, remaining []string) {
	for _, arg := range remaining {
		if arg == "--yes" || arg == "-y" {
			args.Yes = true
		}
	}
}

// parseAuditArgs parses audit command specific arguments.
func parseAuditArgs(args *Args, remaining []string) {
	args.Limit = 50

	for i := 0; i < len(remaining); i++ {
		arg := remaining[i]

		switch arg {
		case "--follow", "-f":
			args.Follow = true
		case "--limit", "--lines":
			if i+1 < len(remaining) {
				i++
				if n, err := strconv.Atoi(remaining[i]); err == nil && n > 0 {
					args.Limit = n
				}
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--limit="):
				if n, err := strconv.Atoi(strings.TrimPrefix(arg, "--limit=")); err == nil && n > 0 {
					args.Limit = n
				}
			case strings.HasPrefix(arg, "--lines="):
				if n, err := strconv.Atoi(strings.TrimPrefix(arg, "--lines=")); err == nil && n > 0 {
					args.Limit = n
				}
			}
		}
	}
}

// parseConfigArgs parses config command specific arguments.
func parseConfigArgs(args *Args, remaining []string) {
	if len(remaining) > 0 {
		args.Subcommand = remaining[0]
		if len(remaining) > 1 {
			args.ConfigKey = remaining[1]
		}
		if len(remaining) > 2 {
			args.ConfigVal = remaining[2]
		}
	}
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

// HandleVersion handles the "version" command.
func HandleVersion(args Args) error {
	if args.JSON {
		data := VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}
		return NewJSONResponse("version", data).Print()
	}
	PrintVersion()
	return nil
}

// HandleHelp handles the "help" command.
func HandleHelp() {
	PrintUsage()
}

// NOTE: HandleStatus and HandleQueue are implemented in status.go
// NOTE: HandleSimulate, HandleUnlock and HandleClear are implemented in actions.go
// NOTE: HandleAudit is implemented in audit_cmd.go
// NOTE: HandleConfig is implemented in config.go
