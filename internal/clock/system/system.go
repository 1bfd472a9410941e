// Package system provides the wall clock used outside tests.
package system

import "time"

// Clock implements ingest.Clock using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time in UTC with the monotonic reading stripped,
// so values round-trip through storage unchanged.
func (Clock) Now() time.Time {
	return time.Now().UTC().Round(0)
}
