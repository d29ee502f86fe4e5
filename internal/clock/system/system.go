// Package system provides a real clock implementation.
package system

import "time"

// Clock implements recall.Clock using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}

// Today returns the current UTC calendar date, truncated to midnight.
// Normalizers use it as the recall-date fallback.
func (c Clock) Today() time.Time {
	now := c.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
