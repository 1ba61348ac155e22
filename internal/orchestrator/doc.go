// Package orchestrator drives the per-record analysis lifecycle: trigger,
// frame extraction for videos, provider fan-out, independent settlement
// merges, the all-settle completion join, retry, and delete.
package orchestrator
