// Package watch runs the responder dashboard as a long-lived process.
//
// It polls the assigned-alerts list, re-renders the dashboard when the list
// or the responder profile changes, publishes gRPC health and serves
// Prometheus metrics.
package watch
