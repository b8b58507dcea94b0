// Package alerting creates alerts and moves them through their lifecycle.
//
// Submitter raises panic alerts; Executor applies role-gated actions. Both
// talk to the backend once per call and refresh the affected cached list
// afterwards. Nothing is updated optimistically.
package alerting
