// Package metrics exposes Prometheus counters for the alert cache, state
// transitions and submissions. A nil *Metrics is valid and records nothing.
package metrics
