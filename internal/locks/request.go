// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// request.go - Lock modes and the pending request state machine.
package locks

import (
	"encoding/json"
	"fmt"
	"time"
)

// Mode is the access level a request asks for.
type Mode int

const (
	// ModeRead is shared access: any number of readers may hold a
	// resource together.
	ModeRead Mode = iota

	// ModeWrite is exclusive access: one writer, no readers.
	ModeWrite
)

// String returns "read" or "write".
func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode converts the wire spelling back to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "read":
		return ModeRead, nil
	case "write":
		return ModeWrite, nil
	default:
		return 0, fmt.Errorf("locks: unknown mode %q", s)
	}
}

// MarshalJSON renders the mode as its string form.
func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts the string form produced by MarshalJSON.
func (m *Mode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMode(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// reqState tracks a request through its life. Exactly one transition out of
// statePending ever happens, always under the manager mutex.
type reqState int

const (
	statePending reqState = iota
	stateGranted
	stateTimedOut
	stateCancelled
)

// request is one pending acquisition. It lives in its resource's wait queue
// until it leaves statePending; leaving the queue and leaving statePending
// happen atomically under the manager mutex.
type request struct {
	resource   string
	session    string
	mode       Mode
	enqueuedAt time.Time

	state reqState
	timer *time.Timer
	done  chan error // buffered(1); the blocked caller receives exactly once
}

func newRequest(resource, session string, mode Mode) *request {
	return &request{
		resource:   resource,
		session:    session,
		mode:       mode,
		enqueuedAt: time.Now(),
		done:       make(chan error, 1),
	}
}

// resolve moves the request out of statePending, stops its deadline timer,
// and delivers the outcome to the waiting caller. The caller must hold the
// manager mutex and must have already removed the request from its queue;
// resolve on an already resolved request is a logic error upstream.
func (r *request) resolve(state reqState, err error) {
	r.state = state
	if r.timer != nil {
		r.timer.Stop()
	}
	r.done <- err
}

// waited reports how long the request has been (or was) queued.
func (r *request) waited() time.Duration {
	return time.Since(r.enqueuedAt)
}
