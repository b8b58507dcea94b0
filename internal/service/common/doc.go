// Package common holds the wiring shared by the guardian binaries.
//
// It turns a settings file into a session, a backend client, a location
// provider and a store with the actor's alert list registered.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
