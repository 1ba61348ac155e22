// Package asset defines the per-submission record model shared across the
// ingestion, analysis, and rendering boundaries.
//
// A Record is the single mutable state container for one submitted image or
// video. Provider adapters and extractors never hold references to a live
// Record; they receive snapshots and report back through the registry.
package asset
