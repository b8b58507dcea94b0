// Package alert contains the core domain types of the alert lifecycle.
//
// It defines the Alert record as the backend reports it, the status state
// machine shared by patients and responders, and the error taxonomy every
// other package reports through. Clone helpers keep cached records from
// leaking internal references.
package alert
