// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dashboard is the terminal dashboard for a locktower coordinator.
//
// It renders three live panels over the HTTP API: the active lock table,
// the FIFO wait queue, and a tailing activity log. Snapshots refresh on a
// poll timer; the activity log rides the coordinator's websocket event
// stream and falls back to polling the audit tail whenever the stream is
// down.
//
// Interactive keys fire simulated workloads (read or write holds on a
// named resource), force-unlock a resource, or wipe the whole table.
// Every action goes through the same internal/client API an external
// consumer would use.
//
// Usage:
//
//	c := client.New(&client.ClientConfig{BaseURL: cfg.Dash.ServerURL})
//	m := dashboard.New(c, cfg.Dash)
//	p := tea.NewProgram(m, tea.WithAltScreen())
//	if _, err := p.Run(); err != nil {
//	    log.Fatal(err)
//	}
package dashboard
