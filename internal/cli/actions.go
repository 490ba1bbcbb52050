// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// actions.go - Mutating command implementations for locktower.
//
// Command: simulate
// Short:   Start synthetic lock holders for testing and demos
//
// Examples:
//   locktower simulate write orders --hold 30000   Hold a write lock 30s
//   locktower simulate read orders --count 3       Three concurrent readers
//
// Command: unlock
// Short:   Force-unlock one resource (evicts holders, rejects waiters)
//
// Command: clear
// Short:   Force-unlock every resource; prompts unless --yes
package cli

import (
	"fmt"
	"time"

	"github.com/jeranaias/locktower/internal/client"
)

// =============================================================================
// SIMULATE
// =============================================================================

// HandleSimulate handles the "simulate" command. Each holder acquires in the
// requested mode, holds for the requested duration and releases on its own;
// the command returns as soon as the holders are registered.
func HandleSimulate(args Args) error {
	if err := validateSimulate(args); err != nil {
		return err
	}

	c := newClient(args)
	ctx, cancel := snapshotContext()
	defer cancel()

	hold := time.Duration(args.HoldMS) * time.Millisecond

	var started []client.SimulateResult
	for i := 0; i < args.Count; i++ {
		var res *client.SimulateResult
		var err error
		if args.Mode == "write" {
			res, err = c.SimulateWrite(ctx, args.Resource, hold)
		} else {
			res, err = c.SimulateRead(ctx, args.Resource, hold)
		}
		if err != nil {
			return err
		}
		started = append(started, *res)
	}

	if args.JSON {
		return NewJSONResponse("simulate", SimulateData{Started: started}).Print()
	}

	for _, s := range started {
		if args.Quiet {
			fmt.Println(s.Session)
			continue
		}
		holdStr := formatDurationShort(time.Duration(s.HoldMS) * time.Millisecond)
		fmt.Printf("started %s holder %s on %s (holds %s)\n", s.Mode, s.Session, s.Resource, holdStr)
	}

	return nil
}

// validateSimulate rejects a bad mode or a missing resource before any
// network traffic happens.
func validateSimulate(args Args) error {
	switch args.Mode {
	case "read", "write":
	case "":
		return &ValidationError{Field: "mode", Message: `expected "read" or "write" (usage: locktower simulate MODE RESOURCE)`}
	default:
		return &ValidationError{Field: "mode", Message: fmt.Sprintf(`%q is not a lock mode; expected "read" or "write"`, args.Mode)}
	}
	if args.Resource == "" {
		return &ValidationError{Field: "resource", Message: "resource name is required"}
	}
	if args.HoldMS < 0 {
		return &ValidationError{Field: "hold", Message: "hold duration cannot be negative"}
	}
	if args.Count < 1 {
		return &ValidationError{Field: "count", Message: "count must be at least 1"}
	}
	return nil
}

// =============================================================================
// UNLOCK
// =============================================================================

// HandleUnlock handles the "unlock" command. It clears every holder on the
// resource and rejects everything queued behind them.
func HandleUnlock(args Args) error {
	if args.Resource == "" {
		return &ValidationError{Field: "resource", Message: "resource name is required (usage: locktower unlock RESOURCE)"}
	}

	c := newClient(args)
	ctx, cancel := snapshotContext()
	defer cancel()

	if err := c.Unlock(ctx, args.Resource); err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("unlock", UnlockData{Resource: args.Resource}).Print()
	}
	if !args.Quiet {
		fmt.Printf("force unlocked %s\n", args.Resource)
	}
	return nil
}

// =============================================================================
// CLEAR
// =============================================================================

// HandleClear handles the "clear" command. Every holder is evicted and every
// queued request is rejected, so it asks first unless --yes was passed.
func HandleClear(args Args) error {
	confirmed, err := requireConfirmation(args.Yes, "clear every lock and queued request", args.JSON)
	if err != nil {
		return err
	}
	if !confirmed {
		fmt.Println("cancelled")
		return nil
	}

	c := newClient(args)
	ctx, cancel := snapshotContext()
	defer cancel()

	cleared, err := c.Clear(ctx)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("clear", ClearData{Cleared: cleared}).Print()
	}
	if !args.Quiet {
		fmt.Printf("cleared %d resources\n", cleared)
	}
	return nil
}
