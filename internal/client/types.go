// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package client

import (
	"github.com/jeranaias/locktower/internal/locks"
)

// =============================================================================
// WIRE TYPES
// =============================================================================

// Health mirrors GET /health.
type Health struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Resources     int    `json:"resources"`
	AuditDurable  bool   `json:"audit_durable"`
	AuditDropped  int64  `json:"audit_dropped"`
}

// StatusSnapshot mirrors GET /v1/status. Recent carries the newest audit
// lines, most recent first.
type StatusSnapshot struct {
	Stats  locks.Stats      `json:"stats"`
	Active []locks.HeldLock `json:"active"`
	Recent []string         `json:"recent"`
}

// QueueSnapshot mirrors GET /v1/queue.
type QueueSnapshot struct {
	Pending []locks.QueuedRequest `json:"pending"`
	Count   int                   `json:"count"`
}

// AuditTail mirrors GET /v1/audit.
type AuditTail struct {
	Lines  []string `json:"lines"`
	Count  int      `json:"count"`
	Source string   `json:"source"`
}

// AcquireResult mirrors POST /v1/locks/acquire.
type AcquireResult struct {
	Resource string `json:"resource"`
	Session  string `json:"session"`
	Mode     string `json:"mode"`
	Granted  bool   `json:"granted"`
	WaitedMS int64  `json:"waited_ms"`
}

// SimulateResult mirrors POST /v1/simulate/{read,write}.
type SimulateResult struct {
	Resource string `json:"resource"`
	Session  string `json:"session"`
	Mode     string `json:"mode"`
	HoldMS   int    `json:"hold_ms"`
}

// acquireRequest is the acquire call body.
type acquireRequest struct {
	Resource string `json:"resource"`
	Session  string `json:"session,omitempty"`
	Mode     string `json:"mode"`
}

// releaseRequest is the release call body.
type releaseRequest struct {
	Resource string `json:"resource"`
	Session  string `json:"session,omitempty"`
}

// releaseResult mirrors POST /v1/locks/release.
type releaseResult struct {
	Resource string `json:"resource"`
	Session  string `json:"session"`
	Released bool   `json:"released"`
}

// simulateRequest is the simulate call body.
type simulateRequest struct {
	Resource string `json:"resource"`
	HoldMS   int    `json:"hold_ms,omitempty"`
}

// unlockRequest is the unlock call body.
type unlockRequest struct {
	Resource string `json:"resource"`
}

// clearResult mirrors POST /v1/clear.
type clearResult struct {
	Status  string `json:"status"`
	Cleared int    `json:"cleared"`
}

// errorEnvelope is the server's error response shape.
type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}
