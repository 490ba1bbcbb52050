// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// events.go - Optional observer callbacks for lock lifecycle transitions.
package locks

import "time"

// Events carries optional callbacks the manager fires as requests move
// through their lifecycle. Any field may be nil. Callbacks run inside the
// manager's critical section: they must return quickly and must not call
// back into the Manager.
type Events struct {
	OnQueued      func(resource, session string, mode Mode)
	OnGranted     func(resource, session string, mode Mode, waited time.Duration)
	OnReleased    func(resource, session string, mode Mode)
	OnTimeout     func(resource, session string, mode Mode, waited time.Duration)
	OnCancelled   func(resource, session string, mode Mode)
	OnForceUnlock func(resource string)
	OnClear       func(resources int)
}

func (e *Events) queued(resource, session string, mode Mode) {
	if e.OnQueued != nil {
		e.OnQueued(resource, session, mode)
	}
}

func (e *Events) granted(resource, session string, mode Mode, waited time.Duration) {
	if e.OnGranted != nil {
		e.OnGranted(resource, session, mode, waited)
	}
}

func (e *Events) released(resource, session string, mode Mode) {
	if e.OnReleased != nil {
		e.OnReleased(resource, session, mode)
	}
}

func (e *Events) timedOut(resource, session string, mode Mode, waited time.Duration) {
	if e.OnTimeout != nil {
		e.OnTimeout(resource, session, mode, waited)
	}
}

func (e *Events) cancelled(resource, session string, mode Mode) {
	if e.OnCancelled != nil {
		e.OnCancelled(resource, session, mode)
	}
}

func (e *Events) forceUnlocked(resource string) {
	if e.OnForceUnlock != nil {
		e.OnForceUnlock(resource)
	}
}

func (e *Events) cleared(resources int) {
	if e.OnClear != nil {
		e.OnClear(resources)
	}
}
