// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package buffer

import (
	"testing"
)

func TestRing_HoldsLastCapacityInOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		capacity int
		pushes   int
	}{
		{"empty", 5, 0},
		{"partial", 5, 3},
		{"exactly full", 5, 5},
		{"one over", 5, 6},
		{"wrapped many times", 5, 23},
		{"capacity one", 1, 4},
		{"default window", 60, 61},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := NewRing[int](tt.capacity)
			for i := 0; i < tt.pushes; i++ {
				r.Push(i)
			}

			wantLen := tt.pushes
			if wantLen > tt.capacity {
				wantLen = tt.capacity
			}
			if r.Len() != wantLen {
				t.Fatalf("Len() = %d, want %d", r.Len(), wantLen)
			}

			snap := r.Snapshot()
			if len(snap) != wantLen {
				t.Fatalf("len(Snapshot()) = %d, want %d", len(snap), wantLen)
			}
			first := tt.pushes - wantLen
			for i, v := range snap {
				if v != first+i {
					t.Fatalf("Snapshot()[%d] = %d, want %d (snapshot %v)", i, v, first+i, snap)
				}
			}
		})
	}
}

func TestRing_PushReportsOverwrite(t *testing.T) {
	t.Parallel()

	r := NewRing[string](2)
	if r.Push("a") || r.Push("b") {
		t.Fatal("no overwrite expected while filling")
	}
	if !r.Push("c") {
		t.Error("expected overwrite when full")
	}
}

func TestRing_SnapshotIsCopy(t *testing.T) {
	t.Parallel()

	r := NewRing[int](3)
	r.Push(1)
	r.Push(2)

	snap := r.Snapshot()
	snap[0] = 99

	if got := r.Snapshot()[0]; got != 1 {
		t.Errorf("mutating snapshot changed ring: got %d", got)
	}
}

func TestRing_Recent(t *testing.T) {
	t.Parallel()

	r := NewRing[int](4)
	if got := r.Recent(1); len(got) != 0 {
		t.Errorf("Recent(1) on empty ring = %v", got)
	}
	for i := 1; i <= 6; i++ {
		r.Push(i)
	}

	recent := r.Recent(2)
	if len(recent) != 2 || recent[0] != 5 || recent[1] != 6 {
		t.Errorf("Recent(2) = %v, want [5 6]", recent)
	}
	if got := r.Recent(10); len(got) != 4 || got[0] != 3 {
		t.Errorf("Recent(10) = %v, want [3 4 5 6]", got)
	}
	if got := r.Recent(0); len(got) != 0 {
		t.Errorf("Recent(0) = %v, want empty", got)
	}
}

func TestNewRing_MinimumCapacity(t *testing.T) {
	t.Parallel()

	if NewRing[int](0).Cap() != 1 {
		t.Error("capacity 0 should be raised to 1")
	}
}
