// Package integration runs end-to-end scenarios of the guardian clients
// against the sandbox backend.
package integration
