// Package version exposes build metadata.
//
// Version, Commit and BuildTime are injected with -ldflags "-X" at build time.
// UserAgent is sent with every backend request.
package version
