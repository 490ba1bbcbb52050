// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package locks implements the resource-scoped reader/writer lock
// coordinator at the center of locktower.
//
// Resources are opaque names (logical tables, documents, anything callers
// agree on). Any number of sessions may hold a resource for reading at once;
// at most one session may hold it for writing, and never while readers are
// present. Waiters queue in strict arrival order: a queued write blocks
// every request behind it until it is granted, so an unbounded stream of
// late readers can never starve a writer.
//
// # Key Types
//
//   - Manager: the facade every caller goes through. One instance per
//     process, constructed at startup and injected where needed.
//   - Mode: ModeRead or ModeWrite.
//   - HeldLock / QueuedRequest / Stats: snapshot types for the admin surface.
//   - Events: optional observer callbacks (metrics, tracing).
//
// # Usage
//
//	rec := audit.NewRecorder(audit.NewRing(0), store)
//	mgr := locks.NewManager(locks.Config{Timeout: 5 * time.Second}, rec)
//
//	if err := mgr.AcquireWrite(ctx, "orders", session); err != nil {
//	    return err // ErrTimeout, ErrCancelled, or ctx error
//	}
//	defer mgr.Release("orders", session)
//
// Acquire blocks the calling goroutine until the lock is granted or the
// request fails; every other operation returns immediately. Waiting is
// bounded by the configured timeout (DefaultTimeout when unset).
//
// The manager detects no cross-resource deadlocks: two callers acquiring
// two resources in opposite orders will each stall until their timeouts
// fire. Lock state lives only in memory; the audit trail is the only thing
// that survives a restart.
package locks
