// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// recorder.go - Fan-out of audit entries to the ring and the durable store.
package audit

import (
	"log"
	"sync"
	"sync/atomic"
)

// writeQueueDepth bounds how many entries may sit between the lock path and
// the durable writer before new entries are shed.
const writeQueueDepth = 256

// Appender is the durable destination for audit entries. *Store implements
// it; tests substitute slow or failing appenders.
type Appender interface {
	Append(Entry) error
}

// Recorder is the audit sink handed to the lock manager. Record pushes the
// rendered line into the ring synchronously and queues the entry for the
// durable writer without ever blocking; when the write queue is full the
// entry is counted as dropped and the lock operation proceeds untouched.
type Recorder struct {
	ring  *Ring
	store Appender

	mu        sync.Mutex
	observers []func(line string)
	closed    bool

	ch      chan Entry
	done    chan struct{}
	dropped atomic.Int64
}

// NewRecorder builds a recorder over ring and store. A nil ring gets the
// default capacity; a nil store disables the durable path entirely.
func NewRecorder(ring *Ring, store Appender) *Recorder {
	if ring == nil {
		ring = NewRing(0)
	}
	r := &Recorder{
		ring:  ring,
		store: store,
		ch:    make(chan Entry, writeQueueDepth),
		done:  make(chan struct{}),
	}
	if store != nil {
		go r.writeLoop()
	}
	return r
}

// Record accepts one entry. Never blocks and never returns an error; the
// audit trail must not be able to fail a lock operation.
func (r *Recorder) Record(e Entry) {
	line := e.Line()
	r.ring.Push(line)

	// The send stays under the mutex so Close cannot shut the channel
	// between the closed check and the send.
	r.mu.Lock()
	observers := r.observers
	if r.store != nil && !r.closed {
		select {
		case r.ch <- e:
		default:
			r.dropped.Add(1)
		}
	}
	r.mu.Unlock()

	for _, fn := range observers {
		fn(line)
	}
}

// Notify registers fn to run synchronously on every recorded line. Observers
// run on the lock path and must not block; fan-out to slow consumers belongs
// behind a buffered channel on the observer's side.
func (r *Recorder) Notify(fn func(line string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, fn)
}

// Recent returns up to n ring lines, most recent first. n <= 0 returns all.
func (r *Recorder) Recent(n int) []string {
	return r.ring.Snapshot(n)
}

// Dropped reports how many entries the durable path shed because the write
// queue was full.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close drains the write queue and stops the durable writer. Record calls
// after Close still update the ring but skip the durable path.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	if r.store == nil {
		return
	}
	close(r.ch)
	<-r.done
}

func (r *Recorder) writeLoop() {
	defer close(r.done)
	for e := range r.ch {
		if err := r.store.Append(e); err != nil {
			// Swallowed by contract: the durable log is best-effort.
			log.Printf("AUDIT_WRITE_FAILED | kind=%s resource=%s error=%v", e.Kind, e.Resource, err)
		}
	}
}
