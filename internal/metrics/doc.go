// Package metrics declares and pre-populates the Prometheus metrics
// exported by the media forensics service.
package metrics
