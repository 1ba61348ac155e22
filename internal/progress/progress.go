// Package progress runs the cosmetic upload-progress counters.
//
// Each counter is a scheduled-repeat task keyed by record identifier that
// advances 0 to 100 on a fixed tick. The counter is UI feedback only and
// never gates analysis. At most one counter exists per identifier; starting
// a second one replaces the first.
package progress

import (
	"sync"
	"time"
)

// DefaultTick is the advance interval for one progress step.
const DefaultTick = 30 * time.Millisecond

// DefaultStep is how much each tick advances the percentage.
const DefaultStep = 5

// Runner owns all live progress counters.
type Runner struct {
	tick time.Duration
	step int

	mu     sync.Mutex
	cancel map[string]chan struct{}
}

// NewRunner creates a Runner with the given tick interval and step size.
// Zero values fall back to the defaults.
func NewRunner(tick time.Duration, step int) *Runner {
	if tick <= 0 {
		tick = DefaultTick
	}
	if step <= 0 {
		step = DefaultStep
	}
	return &Runner{
		tick:   tick,
		step:   step,
		cancel: make(map[string]chan struct{}),
	}
}

// Start launches a counter for id. apply receives the monotonic percentage
// (ending at exactly 100) and reports whether the target record still
// exists; the counter stops early when it does not.
func (r *Runner) Start(id string, apply func(pct int) bool) {
	r.mu.Lock()
	if ch, ok := r.cancel[id]; ok {
		close(ch)
	}
	ch := make(chan struct{})
	r.cancel[id] = ch
	r.mu.Unlock()

	go r.run(id, ch, apply)
}

func (r *Runner) run(id string, cancel chan struct{}, apply func(int) bool) {
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()
	defer r.forget(id, cancel)

	pct := 0
	for pct < 100 {
		select {
		case <-cancel:
			return
		case <-ticker.C:
			pct += r.step
			if pct > 100 {
				pct = 100
			}
			if !apply(pct) {
				return
			}
		}
	}
}

func (r *Runner) forget(id string, ch chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Only forget our own channel; a restart may have replaced it.
	if cur, ok := r.cancel[id]; ok && cur == ch {
		delete(r.cancel, id)
	}
}

// Stop cancels the counter for id, if one is running.
func (r *Runner) Stop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.cancel[id]; ok {
		close(ch)
		delete(r.cancel, id)
	}
}

// StopAll cancels every live counter. Used on shutdown.
func (r *Runner) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, ch := range r.cancel {
		close(ch)
		delete(r.cancel, id)
	}
}

// Active returns the number of live counters.
func (r *Runner) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cancel)
}
