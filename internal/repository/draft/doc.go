// Package draft persists the responder registration draft between CLI runs.
//
// The FileRepository stores the draft as YAML on disk. The register and
// availability commands edit it step by step and it is removed after a
// successful submission.
package draft
