// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package throttle

import (
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/linewatch/internal/clock"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type publication struct {
	entity string
	value  int
	at     time.Duration
}

type recorder struct {
	mu    sync.Mutex
	clk   clock.Clock
	items []publication
}

func (r *recorder) publish(entity string, v int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, publication{entity: entity, value: v, at: r.clk.Now().Sub(epoch)})
}

func (r *recorder) all() []publication {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]publication(nil), r.items...)
}

func TestProjector_SteadyStream(t *testing.T) {
	t.Parallel()

	clk := clock.Fake(epoch)
	rec := &recorder{clk: clk}
	p := New[int](time.Second, clk, rec.publish)

	// Sample i is produced at i*100ms for 5 seconds.
	for i := 0; i < 50; i++ {
		if i > 0 {
			clk.Advance(100 * time.Millisecond)
		}
		p.Update("1", i)
	}

	got := rec.all()
	want := []publication{
		{"1", 0, 0},
		{"1", 9, 1 * time.Second},
		{"1", 19, 2 * time.Second},
		{"1", 29, 3 * time.Second},
		{"1", 39, 4 * time.Second},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d publishes within 5s, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("publish %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	// The burst's last sample is published when the window closes.
	clk.Advance(100 * time.Millisecond)
	got = rec.all()
	if len(got) != 6 || got[5] != (publication{"1", 49, 5 * time.Second}) {
		t.Errorf("trailing publish = %+v", got[len(got)-1])
	}

	// Nothing further once idle.
	clk.Advance(10 * time.Second)
	if n := len(rec.all()); n != 6 {
		t.Errorf("idle projector published again: %d publishes", n)
	}
}

func TestProjector_FirstUpdatePublishesImmediately(t *testing.T) {
	t.Parallel()

	clk := clock.Fake(epoch)
	rec := &recorder{clk: clk}
	p := New[int](time.Second, clk, rec.publish)

	p.Update("a", 1)
	if got := rec.all(); len(got) != 1 || got[0].value != 1 {
		t.Fatalf("first update not published immediately: %+v", got)
	}
	if v, ok := p.Latest("a"); !ok || v != 1 {
		t.Errorf("Latest(a) = %d, %v", v, ok)
	}
}

func TestProjector_BurstPublishesLastValue(t *testing.T) {
	t.Parallel()

	clk := clock.Fake(epoch)
	rec := &recorder{clk: clk}
	p := New[int](time.Second, clk, rec.publish)

	p.Update("a", 1)
	p.Update("a", 2)
	p.Update("a", 3)
	p.Update("a", 4)

	if p.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", p.Pending())
	}
	if clk.Pending() != 1 {
		t.Errorf("expected exactly one deferred timer, got %d", clk.Pending())
	}
	if p.DeferredTotal() != 1 {
		t.Errorf("DeferredTotal() = %d, want 1", p.DeferredTotal())
	}

	clk.Advance(time.Second)
	got := rec.all()
	if len(got) != 2 || got[1].value != 4 || got[1].at != time.Second {
		t.Fatalf("publishes = %+v, want [1@0 4@1s]", got)
	}
	if p.Pending() != 0 {
		t.Errorf("Pending() after flush = %d", p.Pending())
	}
}

func TestProjector_EntitiesAreIndependent(t *testing.T) {
	t.Parallel()

	clk := clock.Fake(epoch)
	rec := &recorder{clk: clk}
	p := New[int](time.Second, clk, rec.publish)

	p.Update("a", 1)
	p.Update("b", 10)
	p.Update("a", 2)

	got := rec.all()
	if len(got) != 2 || got[1].entity != "b" {
		t.Fatalf("expected immediate publish for b: %+v", got)
	}

	all := p.All()
	if all["a"] != 1 || all["b"] != 10 {
		t.Errorf("All() = %v", all)
	}
}

func TestProjector_StopCancelsDeferred(t *testing.T) {
	t.Parallel()

	clk := clock.Fake(epoch)
	rec := &recorder{clk: clk}
	p := New[int](time.Second, clk, rec.publish)

	p.Update("a", 1)
	p.Update("a", 2)
	p.Stop()
	p.Stop()

	clk.Advance(5 * time.Second)
	if got := rec.all(); len(got) != 1 {
		t.Fatalf("publish after Stop: %+v", got)
	}

	p.Update("a", 3)
	if got := rec.all(); len(got) != 1 {
		t.Errorf("Update after Stop published: %+v", got)
	}

	p.Start()
	p.Update("a", 4)
	if got := rec.all(); len(got) != 2 || got[1].value != 4 {
		t.Errorf("Update after Start = %+v", got)
	}
}

func TestProjector_ForgetCancelsDeferred(t *testing.T) {
	t.Parallel()

	clk := clock.Fake(epoch)
	rec := &recorder{clk: clk}
	p := New[int](time.Second, clk, rec.publish)

	p.Update("a", 1)
	p.Update("a", 2)
	p.Forget("a")
	clk.Advance(2 * time.Second)

	if got := rec.all(); len(got) != 1 {
		t.Errorf("forgotten entity published: %+v", got)
	}
	if _, ok := p.Latest("a"); ok {
		t.Error("Latest after Forget should report false")
	}

	// A new first update after Forget publishes immediately.
	p.Update("a", 3)
	if got := rec.all(); len(got) != 2 {
		t.Errorf("publishes after Forget+Update = %+v", got)
	}
}

func TestProjector_PublisherMayReenter(t *testing.T) {
	t.Parallel()

	clk := clock.Fake(epoch)
	var p *Projector[int]
	seen := 0
	p = New[int](time.Second, clk, func(id string, v int) {
		seen++
		if _, ok := p.Latest(id); !ok {
			t.Error("Latest not visible inside publisher")
		}
		if v == 1 {
			p.Update(id, 2)
		}
	})

	p.Update("a", 1)
	clk.Advance(time.Second)

	if seen != 2 {
		t.Errorf("publisher called %d times, want 2", seen)
	}
}

func TestProjector_StaleValueNeverFollowsNewer(t *testing.T) {
	t.Parallel()

	clk := clock.Fake(epoch)
	rec := &recorder{clk: clk}
	p := New[int](time.Second, clk, rec.publish)

	// A deferred flush that wins the race against an earlier immediate
	// publish leaves the immediate one with an older sequence number.
	st := &entityState[int]{}
	p.deliver("a", st, 2, 20)
	p.deliver("a", st, 1, 10)
	p.deliver("a", st, 3, 30)

	got := rec.all()
	if len(got) != 2 || got[0].value != 20 || got[1].value != 30 {
		t.Errorf("publishes = %+v, want [20 30]", got)
	}
}

func TestProjector_ConcurrentFlushKeepsOrder(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	last := -1
	p := New[int](time.Millisecond, clock.Real(), func(_ string, v int) {
		mu.Lock()
		defer mu.Unlock()
		if v <= last {
			t.Errorf("published %d after %d", v, last)
		}
		last = v
	})
	defer p.Stop()

	for i := 0; i < 2000; i++ {
		p.Update("a", i)
		if i%50 == 0 {
			time.Sleep(200 * time.Microsecond)
		}
	}
}

func TestProjector_SlowPublisherMayPublishAgain(t *testing.T) {
	t.Parallel()

	clk := clock.Fake(epoch)
	var p *Projector[int]
	var seen []int
	p = New[int](time.Second, clk, func(id string, v int) {
		seen = append(seen, v)
		if v == 1 {
			// The window closes while the publisher is still busy.
			clk.Advance(time.Second)
			p.Update(id, 2)
			if len(seen) != 1 {
				t.Error("nested publish ran before the outer one returned")
			}
		}
	})

	p.Update("a", 1)

	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("published %v, want [1 2]", seen)
	}
}

func TestProjector_WithCloneIsolatesValues(t *testing.T) {
	t.Parallel()

	clk := clock.Fake(epoch)
	var published []int
	p := New[[]int](time.Second, clk, func(_ string, v []int) {
		published = v
	}, WithClone(func(v []int) []int { return append([]int(nil), v...) }))

	p.Update("a", []int{1, 2})
	published[1] = -1

	latest, _ := p.Latest("a")
	latest[0] = -2
	if got, _ := p.Latest("a"); got[0] != 1 || got[1] != 2 {
		t.Errorf("Latest(a) = %v, want [1 2]", got)
	}
	if all := p.All(); all["a"][0] != 1 {
		t.Errorf("All()[a] = %v", all["a"])
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	clk := clock.Fake(epoch)
	rec := &recorder{clk: clk}
	p := New[int](0, clk, rec.publish)
	p.Update("a", 1)
	p.Update("a", 2)

	clk.Advance(DefaultInterval - time.Millisecond)
	if n := len(rec.all()); n != 1 {
		t.Fatalf("publishes before default interval = %d, want 1", n)
	}
	clk.Advance(time.Millisecond)
	if n := len(rec.all()); n != 2 {
		t.Errorf("publishes at default interval = %d, want 2", n)
	}

	nilPublisher := New[int](0, nil, nil)
	nilPublisher.Update("a", 1)
	nilPublisher.Stop()
}
