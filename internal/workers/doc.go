// Package workers sizes concurrency for the analysis pipeline from the
// CPUs the container actually has.
//
// runtime.NumCPU reports the host's cores, so a pod limited to 2 CPUs on
// a 64-core node that sizes a pool with NumCPU spawns 64 goroutines and
// spends its quota on context switches. GOMAXPROCS tracks the cgroup CPU
// limit (Go 1.19+), so worker counts here derive from it instead.
//
// Three helpers cover the pipeline's workload shapes:
//
//	workers.ForCPU(8)   // 1 per CPU: preview encoding, image decode
//	workers.ForIO(16)   // 2 per CPU: provider HTTP calls, cache reads
//	workers.ForMixed(4) // 1.5 per CPU: frame extraction (seek + decode + write)
//
// The limit argument caps the count so a large unconstrained host cannot,
// say, spawn one ffmpeg seek per core for a ten-frame video; zero means
// uncapped. [Count] takes an arbitrary multiplier when the presets don't
// fit.
//
// Operators can pin the count with the ANALYSIS_WORKERS environment
// variable, which overrides the calculation everywhere (still subject to
// the caller's cap). All functions are safe for concurrent use.
package workers
