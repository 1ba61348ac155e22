package progress

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestRunnerReachesHundred(t *testing.T) {
	r := NewRunner(time.Millisecond, 7)

	var mu sync.Mutex
	var seen []int
	r.Start("a", func(pct int) bool {
		mu.Lock()
		seen = append(seen, pct)
		mu.Unlock()
		return true
	})

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0 && seen[len(seen)-1] == 100
	})

	mu.Lock()
	defer mu.Unlock()
	// Monotonic and capped at exactly 100 even with a step that does not
	// divide 100 evenly.
	last := 0
	for _, pct := range seen {
		if pct < last {
			t.Fatalf("progress went backwards: %v", seen)
		}
		if pct > 100 {
			t.Fatalf("progress overshot 100: %v", seen)
		}
		last = pct
	}

	waitFor(t, time.Second, func() bool { return r.Active() == 0 })
}

func TestRunnerStop(t *testing.T) {
	r := NewRunner(time.Hour, 5) // never ticks on its own
	r.Start("a", func(int) bool { return true })

	if r.Active() != 1 {
		t.Fatalf("Active = %d, want 1", r.Active())
	}
	r.Stop("a")
	if r.Active() != 0 {
		t.Errorf("Active = %d after Stop, want 0", r.Active())
	}

	// Stopping an unknown id is a no-op.
	r.Stop("missing")
}

func TestRunnerStartReplacesExisting(t *testing.T) {
	r := NewRunner(time.Millisecond, 5)

	var first, second atomic.Int64
	r.Start("a", func(int) bool { first.Add(1); return true })
	r.Start("a", func(int) bool { second.Add(1); return true })

	waitFor(t, 2*time.Second, func() bool { return r.Active() == 0 })

	if second.Load() == 0 {
		t.Error("replacement counter never ran")
	}
	// The first counter was cancelled; it may have ticked a few times but
	// must not have run to completion.
	if first.Load() >= 20 {
		t.Errorf("replaced counter ran %d ticks, expected early cancel", first.Load())
	}
}

func TestRunnerStopsWhenApplyReportsGone(t *testing.T) {
	r := NewRunner(time.Millisecond, 5)

	var calls atomic.Int64
	r.Start("a", func(pct int) bool {
		calls.Add(1)
		return pct < 15 // record disappears mid-run
	})

	waitFor(t, time.Second, func() bool { return r.Active() == 0 })
	if n := calls.Load(); n > 4 {
		t.Errorf("apply called %d times after reporting gone", n)
	}
}

func TestRunnerStopAll(t *testing.T) {
	r := NewRunner(time.Hour, 5)
	r.Start("a", func(int) bool { return true })
	r.Start("b", func(int) bool { return true })
	r.Start("c", func(int) bool { return true })

	if r.Active() != 3 {
		t.Fatalf("Active = %d, want 3", r.Active())
	}
	r.StopAll()
	if r.Active() != 0 {
		t.Errorf("Active = %d after StopAll, want 0", r.Active())
	}
}

func TestRunnerZeroConfigDefaults(t *testing.T) {
	r := NewRunner(0, 0)
	if r.tick != DefaultTick {
		t.Errorf("tick = %v, want %v", r.tick, DefaultTick)
	}
	if r.step != DefaultStep {
		t.Errorf("step = %d, want %d", r.step, DefaultStep)
	}
}
