package workers

import (
	"os"
	"runtime"
	"strconv"
)

// Count derives a worker count from the container's CPU budget, seen
// through GOMAXPROCS. The multiplier adjusts for workload shape (1.0
// CPU-bound, 2.0 I/O-bound, 1.5 mixed) and limit caps the result; zero
// means uncapped. The ANALYSIS_WORKERS environment variable overrides
// the calculation but never the cap.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv("ANALYSIS_WORKERS"); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			return capped(count, limit)
		}
	}

	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	if workers < 1 {
		workers = 1
	}
	return capped(workers, limit)
}

func capped(n, limit int) int {
	if limit > 0 && n > limit {
		return limit
	}
	return n
}

// ForCPU sizes a pool for CPU-bound work, one worker per CPU.
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO sizes a pool for I/O-bound work, two workers per CPU.
func ForIO(limit int) int {
	return Count(2.0, limit)
}

// ForMixed sizes a pool for mixed work such as frame extraction, which
// interleaves seeks with decode and preview writes.
func ForMixed(limit int) int {
	return Count(1.5, limit)
}
