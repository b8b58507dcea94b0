// Package backend is the HTTP client of the alert backend API.
//
// Responses use the envelope {"data": ...}; failures carry
// {"message": ...} or {"error": ...}. The HTTP status decides the error
// class and the message is kept for display. Every call authenticates with
// the bearer token of the session it is given.
package backend
