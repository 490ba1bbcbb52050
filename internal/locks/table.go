// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// table.go - Per-resource lock state: reader set, writer slot, wait queue.
package locks

import "time"

// holder records one session holding the writer slot.
type holder struct {
	session string
	since   time.Time
}

// entry is the live lock state for a single resource. An entry exists in the
// manager's table exactly while it has at least one reader, a writer, or a
// queued request; the manager reaps it the moment all three are gone. All
// access happens under the manager mutex.
type entry struct {
	readers map[string]time.Time // session -> acquisition time
	writer  *holder
	queue   []*request // strict arrival order
}

func newEntry() *entry {
	return &entry{readers: make(map[string]time.Time)}
}

// idle reports whether the entry holds nothing worth keeping.
func (e *entry) idle() bool {
	return len(e.readers) == 0 && e.writer == nil && len(e.queue) == 0
}

// removeRequest deletes req from the wait queue, keeping the arrival order
// of everything else intact. Reports whether req was present.
func (e *entry) removeRequest(req *request) bool {
	for i, q := range e.queue {
		if q == req {
			e.queue = append(e.queue[:i], e.queue[i+1:]...)
			return true
		}
	}
	return false
}

// pendingFor returns the session's queued requests in arrival order. The
// result is a copy; callers mutate the queue while iterating it.
func (e *entry) pendingFor(session string) []*request {
	var out []*request
	for _, req := range e.queue {
		if req.session == session {
			out = append(out, req)
		}
	}
	return out
}

// holdsRead reports whether session currently holds a read lock here.
func (e *entry) holdsRead(session string) bool {
	_, ok := e.readers[session]
	return ok
}

// holdsWrite reports whether session currently holds the writer slot.
func (e *entry) holdsWrite(session string) bool {
	return e.writer != nil && e.writer.session == session
}
