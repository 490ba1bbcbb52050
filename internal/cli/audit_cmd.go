// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// audit_cmd.go - Audit trail command implementation for locktower.
//
// Command: audit
// Short:   Show or stream coordinator activity
// Aliases: log
//
// Examples:
//   locktower audit               Last 50 entries, newest first
//   locktower audit --limit 200   Last 200 entries
//   locktower audit --follow      Stream live events until ctrl+c
//   locktower audit --json        Tail wrapped in the JSON envelope
//
// The tail reads the server's recent-activity view (the in-memory ring, or
// the SQLite log when the ring cannot satisfy the limit). Follow mode rides
// the same websocket feed the dashboard uses: it replays the ring and then
// prints each event as it happens.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// HandleAudit handles the "audit" command.
func HandleAudit(args Args) error {
	if args.Follow {
		return followEvents(args)
	}

	c := newClient(args)
	ctx, cancel := snapshotContext()
	defer cancel()

	tail, err := c.Audit(ctx, args.Limit)
	if err != nil {
		return err
	}

	if args.JSON {
		data := AuditData{Lines: tail.Lines, Count: tail.Count, Source: tail.Source}
		return NewJSONResponse("audit", data).Print()
	}

	if len(tail.Lines) == 0 {
		fmt.Println(valueDimStyle.Render("no audit entries"))
		return nil
	}

	if !args.Quiet {
		header := fmt.Sprintf("last %d entries (newest first), source: %s", tail.Count, tail.Source)
		fmt.Println(valueDimStyle.Render(header))
	}
	for _, line := range tail.Lines {
		fmt.Println(line)
	}
	return nil
}

// followEvents streams live audit events until interrupted. Each line is
// printed as it arrives; with --json each becomes a compact JSON object so
// the stream stays line-delimited.
func followEvents(args Args) error {
	c := newClient(args)
	ctx, cancel := interruptContext()
	defer cancel()

	lines, err := c.WatchEvents(ctx)
	if err != nil {
		return err
	}

	if !args.Quiet && !args.JSON {
		fmt.Fprintf(os.Stderr, "streaming events from %s (ctrl+c to stop)\n", c.BaseURL())
	}

	for line := range lines {
		if args.JSON {
			payload, err := json.Marshal(struct {
				Line string `json:"line"`
			}{Line: line})
			if err != nil {
				continue
			}
			fmt.Println(string(payload))
		} else {
			fmt.Println(line)
		}
	}

	// The channel closes on interrupt (clean exit) or because the server
	// went away mid-stream.
	if ctx.Err() != nil {
		return nil
	}
	return &CommandError{Command: "audit", Err: errors.New("event stream connection closed by server")}
}
