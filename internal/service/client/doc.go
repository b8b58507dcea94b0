// Package client implements the one-shot commands of the patient and
// responder binaries on top of the shared runtime.
package client
