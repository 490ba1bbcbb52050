// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// audit.go - Event kinds and the rendered audit entry.
package audit

import (
	"strings"
	"time"
)

// Kind labels one lock lifecycle transition.
type Kind string

const (
	KindQueued      Kind = "QUEUED"
	KindGranted     Kind = "GRANTED"
	KindReleased    Kind = "RELEASED"
	KindTimeout     Kind = "TIMEOUT"
	KindCancelled   Kind = "CANCELLED"
	KindForceUnlock Kind = "FORCE_UNLOCK"
	KindClear       Kind = "CLEAR_ALL"
)

// Entry is one audit record before rendering. Resource, Session and Mode may
// be empty for administrative events (CLEAR_ALL has no resource, FORCE_UNLOCK
// has no session).
type Entry struct {
	Time     time.Time `json:"time"`
	Kind     Kind      `json:"kind"`
	Resource string    `json:"resource,omitempty"`
	Session  string    `json:"session,omitempty"`
	Mode     string    `json:"mode,omitempty"`
}

// timeLayout is the wall-clock prefix on every rendered line. Date lives in
// the durable store; the ring is for at-a-glance monitoring.
const timeLayout = "15:04:05.000"

// Line renders the entry as one pipe-delimited log line, the same shape the
// daemon writes to its own log:
//
//	14:02:07.331 | GRANTED | resource=orders session=sess_a91be2c4f03d mode=write
func (e Entry) Line() string {
	var b strings.Builder
	b.WriteString(e.Time.Format(timeLayout))
	b.WriteString(" | ")
	b.WriteString(string(e.Kind))
	if e.Resource != "" {
		b.WriteString(" | resource=")
		b.WriteString(e.Resource)
	}
	if e.Session != "" {
		b.WriteString(" session=")
		b.WriteString(e.Session)
	}
	if e.Mode != "" {
		b.WriteString(" mode=")
		b.WriteString(e.Mode)
	}
	return b.String()
}
