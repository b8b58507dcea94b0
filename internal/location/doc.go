// Package location acquires the geolocation fix an alert is created from.
//
// Every Acquire call makes exactly one attempt. Providers never retry and
// never substitute an older fix when a fresh one cannot be obtained.
package location
