// Package dashboard turns cached alert snapshots into the patient and
// responder views, renders them as text and phrases errors for the user.
package dashboard
