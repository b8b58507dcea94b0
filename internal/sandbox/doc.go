// Package sandbox is an in-memory alert backend for local development and
// end-to-end tests. It serves the same routes, envelopes and status codes
// as the real API and enforces the same action table.
//
// It is not a matching service: a new alert goes to the first registered
// responder and facilities come back in seed order.
package sandbox
