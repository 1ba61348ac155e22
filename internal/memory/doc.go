// Package memory keeps the analysis service inside its container memory
// limit. It has two halves: GOMEMLIMIT bootstrap and a runtime backpressure
// monitor for the frame extraction pipeline.
//
// # GOMEMLIMIT bootstrap
//
// Unlike GOMAXPROCS, the Go runtime does not derive GOMEMLIMIT from cgroup
// limits, so a container that decodes video frames can be OOM-killed long
// before the collector feels any pressure. [ConfigureFromEnv] closes that
// gap: call it first in main, and it sets GOMEMLIMIT from the container
// limit delivered through the Kubernetes Downward API.
//
//	env:
//	- name: MEMORY_LIMIT
//	  valueFrom:
//	    resourceFieldRef:
//	      resource: limits.memory
//	- name: MEMORY_RATIO
//	  value: "0.75"
//
// MEMORY_RATIO is the heap's share of the limit, default 0.85. The rest is
// headroom for everything GOMEMLIMIT cannot see: the ffmpeg child processes
// that grab video stills, libvips preview buffers allocated through cgo,
// and goroutine stacks. Deployments that extract many frames concurrently
// should run closer to 0.75. An explicit GOMEMLIMIT environment variable
// always wins; ConfigureFromEnv then only reports the effective value.
//
// GOMEMLIMIT is soft: the runtime collects more aggressively near it but
// may still overshoot, and it never bounds cgo or subprocess memory. That
// is what the monitor is for.
//
// # Backpressure monitor
//
// [Monitor] samples heap usage on an interval and exposes two thresholds:
// above the high water mark callers should throttle, above the critical
// mark they must pause. Frame extraction checks in before each decode:
//
//	monitor := memory.NewMonitor(memory.DefaultConfig())
//	monitor.Start()
//	defer monitor.Stop()
//
//	if !monitor.WaitIfPaused() {
//	    return // shutting down
//	}
//
// Crossing the critical mark also forces a collection, and recovery below
// the high water mark releases every paused waiter at once.
package memory
