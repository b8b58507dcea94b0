// Package server runs the sandbox backend as a standalone HTTP process for
// local development against the guardian clients.
package server
