// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses locktower command-line arguments and implements the
// client-side commands.
//
// Parse splits os.Args into a Command and an Args value; main dispatches on
// the Command. Commands that talk to a running coordinator (status, queue,
// simulate, unlock, clear, audit) go through internal/client and honor the
// --server, --session and --token global flags. The dash and serve commands
// are wired up in main because they pull in the dashboard and server stacks.
//
// Every command supports --json for machine-readable output; failures map to
// stable exit codes through GetExitCode.
package cli
