// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ring.go - Fixed-capacity buffer of recent audit lines.
package audit

import "sync"

// DefaultRingCapacity is how many recent lines the ring keeps when the
// configured capacity is zero or negative.
const DefaultRingCapacity = 200

// Ring is a fixed-capacity buffer of rendered audit lines. Once full, each
// push evicts the oldest line. Safe for concurrent use.
type Ring struct {
	mu    sync.Mutex
	lines []string
	next  int
	full  bool
}

// NewRing creates a ring holding up to capacity lines.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultRingCapacity
	}
	return &Ring{lines: make([]string, capacity)}
}

// Push appends a line, evicting the oldest once the ring is full.
func (r *Ring) Push(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lines[r.next] = line
	r.next++
	if r.next == len(r.lines) {
		r.next = 0
		r.full = true
	}
}

// Len reports how many lines the ring currently holds.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lenLocked()
}

func (r *Ring) lenLocked() int {
	if r.full {
		return len(r.lines)
	}
	return r.next
}

// Snapshot returns up to n lines, most recent first. n <= 0 returns every
// line the ring holds.
func (r *Ring) Snapshot(n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	have := r.lenLocked()
	if n <= 0 || n > have {
		n = have
	}

	out := make([]string, 0, n)
	idx := r.next
	for i := 0; i < n; i++ {
		idx--
		if idx < 0 {
			idx = len(r.lines) - 1
		}
		out = append(out, r.lines[idx])
	}
	return out
}

// Capacity reports the fixed size of the ring.
func (r *Ring) Capacity() int {
	return len(r.lines)
}
