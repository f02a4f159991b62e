// Package clock supplies the current instant to the recurring engine so
// passes can be driven deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// Clock reports the current instant.
type Clock interface {
	Now() time.Time
}

// System reads wall-clock time in UTC.
type System struct{}

// Now implements Clock.
func (System) Now() time.Time { return time.Now().UTC() }

// Fixed always reports the same instant.
type Fixed time.Time

// Now implements Clock.
func (f Fixed) Now() time.Time { return time.Time(f) }

// Stepping is a manually advanced clock, safe for concurrent use.
type Stepping struct {
	mu  sync.Mutex
	now time.Time
}

// NewStepping returns a Stepping clock starting at start.
func NewStepping(start time.Time) *Stepping {
	return &Stepping{now: start}
}

// Now implements Clock.
func (s *Stepping) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Advance moves the clock forward by d and returns the new instant.
func (s *Stepping) Advance(d time.Duration) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = s.now.Add(d)
	return s.now
}

// AdvanceDate moves the clock by calendar units, like time.AddDate.
func (s *Stepping) AdvanceDate(years, months, days int) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = s.now.AddDate(years, months, days)
	return s.now
}

// Set moves the clock to t.
func (s *Stepping) Set(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = t
}
