// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package audit

import (
	"fmt"
	"reflect"
	"testing"
)

func TestRingSnapshotMostRecentFirst(t *testing.T) {
	r := NewRing(3)
	r.Push("a")
	r.Push("b")
	r.Push("c")

	if got := r.Snapshot(0); !reflect.DeepEqual(got, []string{"c", "b", "a"}) {
		t.Fatalf("Snapshot(0) = %v", got)
	}
	if got := r.Snapshot(2); !reflect.DeepEqual(got, []string{"c", "b"}) {
		t.Fatalf("Snapshot(2) = %v", got)
	}
	if r.Len() != 3 {
		t.Fatalf("Len = %d, want 3", r.Len())
	}
}

func TestRingEvictsOldest(t *testing.T) {
	r := NewRing(3)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		r.Push(s)
	}

	if r.Len() != 3 {
		t.Fatalf("Len = %d, want 3", r.Len())
	}
	if got := r.Snapshot(0); !reflect.DeepEqual(got, []string{"e", "d", "c"}) {
		t.Fatalf("Snapshot(0) = %v", got)
	}
	// Asking for more than the ring holds caps at what survives.
	if got := r.Snapshot(10); len(got) != 3 {
		t.Fatalf("Snapshot(10) returned %d lines", len(got))
	}
}

func TestRingEmpty(t *testing.T) {
	r := NewRing(4)
	if r.Len() != 0 {
		t.Fatalf("fresh ring Len = %d", r.Len())
	}
	if got := r.Snapshot(0); len(got) != 0 {
		t.Fatalf("fresh ring Snapshot = %v", got)
	}
}

func TestRingDefaultCapacity(t *testing.T) {
	for _, c := range []int{0, -1} {
		if got := NewRing(c).Capacity(); got != DefaultRingCapacity {
			t.Fatalf("NewRing(%d).Capacity() = %d, want %d", c, got, DefaultRingCapacity)
		}
	}
}

func TestRingWrapsRepeatedly(t *testing.T) {
	r := NewRing(4)
	for i := 0; i < 23; i++ {
		r.Push(fmt.Sprintf("line-%d", i))
	}
	want := []string{"line-22", "line-21", "line-20", "line-19"}
	if got := r.Snapshot(0); !reflect.DeepEqual(got, want) {
		t.Fatalf("Snapshot(0) = %v, want %v", got, want)
	}
}
