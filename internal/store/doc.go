// Package store is the client-side read cache of backend queries.
//
// Each query holds the last applied snapshot. Concurrent refreshes share one
// backend fetch. An invalidation starts a new fetch instead of joining one
// that began before the mutation. A fetch result is applied only when that
// fetch started after the one that produced the current snapshot, so late
// completions never roll the view back.
package store
