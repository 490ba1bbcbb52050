// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package identity issues the opaque session identifiers lock ownership is
// tracked by. The manager trusts these as-is; there is no authentication
// here, only stable unique naming.
package identity

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

const (
	// SessionPrefix marks identifiers issued for real callers.
	SessionPrefix = "sess_"

	// SimulatedPrefix marks identifiers issued for simulated holds, so
	// dashboards can tell synthetic traffic from real callers at a glance.
	SimulatedPrefix = "sim_"
)

// NewSessionID returns a fresh caller session identifier.
func NewSessionID() string {
	return SessionPrefix + shortID()
}

// NewSimulatedID returns a session identifier for a simulated hold.
func NewSimulatedID() string {
	return SimulatedPrefix + shortID()
}

// IsSimulated reports whether id was minted by NewSimulatedID.
func IsSimulated(id string) bool {
	return strings.HasPrefix(id, SimulatedPrefix)
}

// shortID is the first 48 bits of a v4 UUID in hex: short enough for a
// dashboard column, unique enough for the lifetime of a coordinator process.
func shortID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:6])
}
