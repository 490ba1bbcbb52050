// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// manager.go - The lock manager facade and the grant scheduler.
package locks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jeranaias/locktower/internal/audit"
	"github.com/jeranaias/locktower/internal/identity"
)

// DefaultTimeout bounds how long an acquire may wait before failing when the
// configured timeout is zero.
const DefaultTimeout = 5 * time.Second

// Config tunes a Manager.
type Config struct {
	// Timeout is the wait deadline applied to every acquire.
	// Zero or negative means DefaultTimeout.
	Timeout time.Duration

	// Events are optional lifecycle observers; see Events.
	Events Events
}

// HeldLock is one granted lock in an ActiveLocks snapshot.
type HeldLock struct {
	Resource  string    `json:"resource"`
	Session   string    `json:"session"`
	Mode      Mode      `json:"mode"`
	HeldSince time.Time `json:"held_since"`
}

// QueuedRequest is one waiting request in a PendingRequests snapshot.
type QueuedRequest struct {
	Resource     string    `json:"resource"`
	Session      string    `json:"session"`
	Mode         Mode      `json:"mode"`
	WaitingSince time.Time `json:"waiting_since"`
}

// Stats is a point-in-time census of the lock table.
type Stats struct {
	Resources int `json:"resources"`
	Readers   int `json:"readers"`
	Writers   int `json:"writers"`
	Queued    int `json:"queued"`
}

// Manager owns the lock table. Construct one per process with NewManager and
// inject it into every consumer; independent instances (as tests create) do
// not share any state.
//
// Internally a single mutex guards the whole table. Every operation performs
// its full read-decide-mutate sequence under that mutex, so a scheduling pass
// is one atomic step relative to all other callers. Only Acquire blocks the
// caller, and it does so on a channel receive after the mutex is released.
type Manager struct {
	mu      sync.Mutex
	table   map[string]*entry
	timeout time.Duration
	audit   *audit.Recorder
	events  Events
}

// NewManager builds a Manager around the given recorder. A nil recorder gets
// replaced with a ring-only one so auditing never needs nil checks.
func NewManager(cfg Config, rec *audit.Recorder) *Manager {
	if rec == nil {
		rec = audit.NewRecorder(nil, nil)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Manager{
		table:   make(map[string]*entry),
		timeout: timeout,
		audit:   rec,
		events:  cfg.Events,
	}
}

// Timeout returns the wait deadline currently applied to new acquires.
func (m *Manager) Timeout() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeout
}

// SetTimeout changes the wait deadline for future acquires. Requests already
// queued keep the deadline they started with. Zero or negative restores
// DefaultTimeout.
func (m *Manager) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultTimeout
	}
	m.mu.Lock()
	m.timeout = d
	m.mu.Unlock()
}

// ============================================================================
// ACQUIRE / RELEASE
// ============================================================================

// AcquireRead blocks until session holds a shared lock on resource, the wait
// deadline passes (ErrTimeout), the request is withdrawn (ErrCancelled), or
// ctx is done.
func (m *Manager) AcquireRead(ctx context.Context, resource, session string) error {
	return m.acquire(ctx, resource, session, ModeRead)
}

// AcquireWrite blocks until session holds the exclusive lock on resource,
// under the same failure modes as AcquireRead.
func (m *Manager) AcquireWrite(ctx context.Context, resource, session string) error {
	return m.acquire(ctx, resource, session, ModeWrite)
}

func (m *Manager) acquire(ctx context.Context, resource, session string, mode Mode) error {
	if resource == "" {
		return ErrInvalidResource
	}
	req := newRequest(resource, session, mode)

	m.mu.Lock()
	e, ok := m.table[resource]
	if !ok {
		e = newEntry()
		m.table[resource] = e
	}
	e.queue = append(e.queue, req)
	m.record(audit.KindQueued, resource, session, mode.String())
	m.events.queued(resource, session, mode)
	req.timer = time.AfterFunc(m.timeout, func() { m.expire(req) })
	m.promote(resource, e)
	m.mu.Unlock()

	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		m.abandon(req)
		return ctx.Err()
	}
}

// Release drops whatever resource state the session owns: a held read or
// write lock, and any of its requests still waiting in the queue (those fail
// with ErrCancelled rather than vanishing). Releasing a session that holds
// and queues nothing is a successful no-op; the return value reports whether
// anything was actually dropped.
func (m *Manager) Release(resource, session string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.table[resource]
	if !ok {
		return false
	}

	released := false
	if e.holdsRead(session) {
		delete(e.readers, session)
		released = true
		m.record(audit.KindReleased, resource, session, ModeRead.String())
		m.events.released(resource, session, ModeRead)
	}
	if e.holdsWrite(session) {
		e.writer = nil
		released = true
		m.record(audit.KindReleased, resource, session, ModeWrite.String())
		m.events.released(resource, session, ModeWrite)
	}

	for _, req := range e.pendingFor(session) {
		e.removeRequest(req)
		released = true
		req.resolve(stateCancelled,
			cancelError(resource, session, req.mode, "released by owner"))
		m.record(audit.KindCancelled, resource, session, req.mode.String())
		m.events.cancelled(resource, session, req.mode)
	}

	m.promote(resource, e)
	return released
}

// ============================================================================
// ADMINISTRATIVE OPERATIONS
// ============================================================================

// ForceUnlock clears every holder of resource and rejects every waiter with
// ErrCancelled. The resource entry is reaped; the next request recreates it.
func (m *Manager) ForceUnlock(resource string) error {
	if resource == "" {
		return ErrInvalidResource
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forceUnlockLocked(resource)
	return nil
}

// Clear force-unlocks every resource currently in the table and returns how
// many were cleared.
func (m *Manager) Clear() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.table))
	for name := range m.table {
		names = append(names, name)
	}
	sort.Strings(names) // deterministic audit order
	for _, name := range names {
		m.forceUnlockLocked(name)
	}

	m.record(audit.KindClear, "", "", "")
	m.events.cleared(len(names))
	return len(names)
}

// forceUnlockLocked does the clearing for one resource. Caller holds m.mu.
// The audit event is recorded even when the resource is unknown: the
// override was requested and should appear in the trail either way.
func (m *Manager) forceUnlockLocked(resource string) {
	if e, ok := m.table[resource]; ok {
		e.writer = nil
		clear(e.readers)
		for len(e.queue) > 0 {
			req := e.queue[0]
			e.queue = e.queue[1:]
			req.resolve(stateCancelled,
				cancelError(resource, req.session, req.mode, "force unlock"))
			m.record(audit.KindCancelled, resource, req.session, req.mode.String())
			m.events.cancelled(resource, req.session, req.mode)
		}
		delete(m.table, resource)
	}
	m.record(audit.KindForceUnlock, resource, "", "")
	m.events.forceUnlocked(resource)
}

// ============================================================================
// SIMULATED HOLDS
// ============================================================================

// SimulateRead acquires a read lock under a synthetic session and releases
// it automatically once hold elapses. The generated session id is returned
// immediately; the acquisition itself runs in the background under the
// normal queue and timeout rules.
func (m *Manager) SimulateRead(resource string, hold time.Duration) (string, error) {
	return m.simulate(resource, ModeRead, hold)
}

// SimulateWrite is SimulateRead for the exclusive mode.
func (m *Manager) SimulateWrite(resource string, hold time.Duration) (string, error) {
	return m.simulate(resource, ModeWrite, hold)
}

func (m *Manager) simulate(resource string, mode Mode, hold time.Duration) (string, error) {
	if resource == "" {
		return "", ErrInvalidResource
	}
	session := identity.NewSimulatedID()
	go func() {
		if err := m.acquire(context.Background(), resource, session, mode); err != nil {
			return // timed out or cancelled before the grant; nothing held
		}
		time.AfterFunc(hold, func() { m.Release(resource, session) })
	}()
	return session, nil
}

// ============================================================================
// SNAPSHOTS
// ============================================================================

// ActiveLocks returns every held lock across all resources, ordered by
// hold-start time, then resource, then session.
func (m *Manager) ActiveLocks() []HeldLock {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]HeldLock, 0, len(m.table))
	for name, e := range m.table {
		for session, since := range e.readers {
			out = append(out, HeldLock{
				Resource: name, Session: session, Mode: ModeRead, HeldSince: since,
			})
		}
		if e.writer != nil {
			out = append(out, HeldLock{
				Resource: name, Session: e.writer.session, Mode: ModeWrite, HeldSince: e.writer.since,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].HeldSince.Equal(out[j].HeldSince) {
			return out[i].HeldSince.Before(out[j].HeldSince)
		}
		if out[i].Resource != out[j].Resource {
			return out[i].Resource < out[j].Resource
		}
		return out[i].Session < out[j].Session
	})
	return out
}

// PendingRequests returns every queued request across all resources, ordered
// by wait-start time, then resource, then session.
func (m *Manager) PendingRequests() []QueuedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []QueuedRequest
	for name, e := range m.table {
		for _, req := range e.queue {
			out = append(out, QueuedRequest{
				Resource: name, Session: req.session, Mode: req.mode, WaitingSince: req.enqueuedAt,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].WaitingSince.Equal(out[j].WaitingSince) {
			return out[i].WaitingSince.Before(out[j].WaitingSince)
		}
		if out[i].Resource != out[j].Resource {
			return out[i].Resource < out[j].Resource
		}
		return out[i].Session < out[j].Session
	})
	return out
}

// Stats counts resources, holders and waiters in one pass.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Stats{Resources: len(m.table)}
	for _, e := range m.table {
		st.Readers += len(e.readers)
		if e.writer != nil {
			st.Writers++
		}
		st.Queued += len(e.queue)
	}
	return st
}

// RecentLog returns the in-memory audit lines, most recent first.
func (m *Manager) RecentLog() []string {
	return m.audit.Recent(0)
}

// ============================================================================
// SCHEDULER
// ============================================================================

// promote runs the grant pass for one resource. Caller holds m.mu.
//
// Rules, evaluated against current state:
//  1. nothing queued: nothing to grant; reap the entry if fully idle.
//  2. writer held: nothing moves until it releases.
//  3. write at the head: granted only once the reader set is empty. While it
//     waits it blocks everything behind it; no later request may skip past.
//  4. read at the head: granted together with every contiguous read behind
//     it, stopping at the first queued write. That write becomes the new
//     barrier and is granted only after all readers ahead of it release.
func (m *Manager) promote(resource string, e *entry) {
	if e.writer == nil {
		for len(e.queue) > 0 {
			head := e.queue[0]
			if head.mode == ModeWrite {
				if len(e.readers) > 0 {
					break
				}
				e.queue = e.queue[1:]
				e.writer = &holder{session: head.session, since: time.Now()}
				m.grant(resource, head)
				break
			}
			e.queue = e.queue[1:]
			e.readers[head.session] = time.Now()
			m.grant(resource, head)
		}
	}

	if e.idle() {
		delete(m.table, resource)
	}
}

// grant resolves one promoted request. Caller holds m.mu and has already
// moved the request out of the queue and into the reader set or writer slot.
func (m *Manager) grant(resource string, req *request) {
	waited := req.waited()
	req.resolve(stateGranted, nil)
	m.record(audit.KindGranted, resource, req.session, req.mode.String())
	m.events.granted(resource, req.session, req.mode, waited)
}

// ============================================================================
// TIMEOUT SUPERVISOR
// ============================================================================

// expire is the deadline path for one request. It races the grant path by
// design: whichever takes the mutex first and sees the request still pending
// wins, and the loser becomes a no-op.
func (m *Manager) expire(req *request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if req.state != statePending {
		return
	}
	e, ok := m.table[req.resource]
	if !ok {
		return
	}

	e.removeRequest(req)
	waited := req.waited()
	req.resolve(stateTimedOut,
		timeoutError(req.resource, req.session, req.mode, waited))
	m.record(audit.KindTimeout, req.resource, req.session, req.mode.String())
	m.events.timedOut(req.resource, req.session, req.mode, waited)

	// A timed-out write at the head may have been the barrier holding back
	// a run of readers.
	m.promote(req.resource, e)
}

// abandon withdraws a request whose caller stopped waiting (context done).
// If the grant already won the race, the freshly granted lock is rolled back
// through Release so nothing stays held for a caller that has left.
func (m *Manager) abandon(req *request) {
	m.mu.Lock()
	if req.state == statePending {
		if e, ok := m.table[req.resource]; ok {
			e.removeRequest(req)
			req.resolve(stateCancelled,
				cancelError(req.resource, req.session, req.mode, "caller gave up"))
			m.record(audit.KindCancelled, req.resource, req.session, req.mode.String())
			m.events.cancelled(req.resource, req.session, req.mode)
			m.promote(req.resource, e)
		}
		m.mu.Unlock()
		return
	}
	granted := req.state == stateGranted
	m.mu.Unlock()

	if granted {
		m.Release(req.resource, req.session)
	}
}

// record forwards one transition to the audit sink. Runs under m.mu; the
// recorder's synchronous half is a ring push and a non-blocking send, cheap
// enough to keep inside the critical section so the trail preserves the true
// event order.
func (m *Manager) record(kind audit.Kind, resource, session, mode string) {
	m.audit.Record(audit.Entry{
		Time:     time.Now(),
		Kind:     kind,
		Resource: resource,
		Session:  session,
		Mode:     mode,
	})
}
