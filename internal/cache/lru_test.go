// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/linewatch/internal/clock"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestLRU_BasicOperations(t *testing.T) {
	c := NewLRU[int](3, time.Minute, clock.Fake(epoch))

	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("c", 3)

	if v, found := c.Peek("a"); !found || v != 1 {
		t.Errorf("Peek(a) = %d, %v", v, found)
	}
	if c.Len() != 3 {
		t.Errorf("Expected len 3, got %d", c.Len())
	}
	if _, found := c.Peek("z"); found {
		t.Error("Expected 'z' to be missing")
	}
}

func TestLRU_Eviction(t *testing.T) {
	c := NewLRU[int](3, 0, clock.Fake(epoch))

	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("c", 3)

	// Touch 'a' so 'b' becomes least recently used
	c.Touch("a")

	evicted := c.Add("d", 4)
	if len(evicted) != 1 || evicted[0].Key != "b" || evicted[0].Value != 2 || evicted[0].Reason != EvictCapacity {
		t.Fatalf("Add(d) evicted %+v, want b", evicted)
	}
	if _, found := c.Peek("b"); found {
		t.Error("Expected 'b' to be evicted")
	}

	want := []string{"d", "a", "c"}
	got := c.Keys()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Keys() = %v, want %v", got, want)
		}
	}
}

func TestLRU_PeekDoesNotRefreshRecency(t *testing.T) {
	c := NewLRU[int](2, 0, clock.Fake(epoch))
	c.Add("a", 1)
	c.Add("b", 2)

	c.Peek("a")
	evicted := c.Add("c", 3)

	if len(evicted) != 1 || evicted[0].Key != "a" {
		t.Errorf("expected 'a' evicted despite Peek, got %+v", evicted)
	}
}

func TestLRU_CleanupExpired(t *testing.T) {
	clk := clock.Fake(epoch)
	c := NewLRU[string](10, time.Minute, clk)

	c.Add("old", "x")
	clk.Advance(45 * time.Second)
	c.Add("fresh", "y")
	clk.Advance(30 * time.Second)

	removed := c.CleanupExpired()
	if len(removed) != 1 || removed[0].Key != "old" || removed[0].Reason != EvictExpired {
		t.Fatalf("CleanupExpired() = %+v, want [old]", removed)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}

	// Touch keeps an entry alive
	c.Touch("fresh")
	clk.Advance(59 * time.Second)
	if removed := c.CleanupExpired(); len(removed) != 0 {
		t.Errorf("touched entry expired early: %+v", removed)
	}
}

func TestLRU_NoTTL(t *testing.T) {
	clk := clock.Fake(epoch)
	c := NewLRU[int](0, 0, clk)

	for i := 0; i < 1000; i++ {
		c.Add(fmt.Sprintf("k%d", i), i)
	}
	clk.Advance(24 * time.Hour)

	if removed := c.CleanupExpired(); removed != nil {
		t.Errorf("expected no expiry without TTL, got %d removed", len(removed))
	}
	if c.Len() != 1000 {
		t.Errorf("unbounded LRU Len() = %d, want 1000", c.Len())
	}
}

func TestLRU_RemoveAndClear(t *testing.T) {
	c := NewLRU[int](5, 0, nil)
	c.Add("a", 1)
	c.Add("b", 2)

	if v, ok := c.Remove("a"); !ok || v != 1 {
		t.Errorf("Remove(a) = %d, %v", v, ok)
	}
	if _, ok := c.Remove("a"); ok {
		t.Error("second Remove(a) should report false")
	}

	cleared := c.Clear()
	if len(cleared) != 1 || cleared[0].Key != "b" {
		t.Errorf("Clear() = %+v", cleared)
	}
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d", c.Len())
	}
}

func TestLRU_UpdateExisting(t *testing.T) {
	c := NewLRU[int](2, 0, nil)
	c.Add("a", 1)
	c.Add("b", 2)

	if evicted := c.Add("a", 10); evicted != nil {
		t.Errorf("update should not evict, got %+v", evicted)
	}
	if v, _ := c.Peek("a"); v != 10 {
		t.Errorf("Peek(a) = %d, want 10", v)
	}
	if keys := c.Keys(); keys[0] != "a" {
		t.Errorf("updated key should be most recent, got %v", keys)
	}
}

func TestLRU_Range(t *testing.T) {
	c := NewLRU[int](0, 0, nil)
	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("c", 3)

	sum := 0
	visited := 0
	c.Range(func(_ string, v int) bool {
		sum += v
		visited++
		return visited < 2
	})
	if visited != 2 || sum != 5 {
		t.Errorf("Range stopped after %d entries with sum %d, want 2 and 5", visited, sum)
	}
}

func TestLRU_Concurrent(t *testing.T) {
	c := NewLRU[int](100, time.Minute, clock.Real())
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key-%d-%d", id, j)
				c.Add(key, j)
				c.Peek(key)
				c.Touch(key)
			}
		}(i)
	}
	wg.Wait()

	if c.Len() > 100 {
		t.Errorf("Len() = %d exceeds capacity", c.Len())
	}
}
