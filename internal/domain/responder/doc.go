// Package responder holds the responder registration draft: profile fields
// and the weekly availability grid edited hour by hour before submission.
package responder
