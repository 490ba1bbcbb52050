// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package audit records the lifecycle of every lock operation.
//
// Each transition (queued, granted, released, timed out, cancelled,
// force-unlocked, cleared) becomes one Entry, rendered to a single
// human-readable line. Lines flow to two places:
//
//   - a fixed-capacity in-memory Ring, updated synchronously, which backs
//     the recent-log views in the API and the dashboard
//   - a durable append-only Store (SQLite), fed through a detached writer
//     goroutine so a slow or failing disk can never delay a lock operation
//
// Durable-write failures are logged and swallowed. The audit trail is
// best-effort by contract; lock correctness never depends on it.
//
// # Usage
//
// Wire a recorder at startup and hand it to the lock manager:
//
//	store, err := audit.OpenStore(path)
//	if err != nil { ... }
//	rec := audit.NewRecorder(audit.NewRing(0), store)
//	defer rec.Close()
package audit
