// Package config defines the settings used by the guardian binaries and
// provides helpers to load, validate and save them in YAML format.
//
// The bearer token is deliberately not part of the YAML file: it comes from
// the GUARDIAN_TOKEN environment variable or a .env file beside the settings.
package config
