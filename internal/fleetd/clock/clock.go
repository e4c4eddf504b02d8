// Package clock abstracts wall-clock time so evaluators can be driven
// deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// Clock reports the current time
type Clock interface {
	Now() time.Time
}

// Real is the process wall clock
type Real struct{}

// Now returns time.Now()
func (Real) Now() time.Time {
	return time.Now()
}

// Mock is a manually driven clock safe for concurrent use
type Mock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewMock returns a Mock fixed at now
func NewMock(now time.Time) *Mock {
	return &Mock{now: now}
}

// Now returns the mock's current time
func (m *Mock) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

// Set moves the mock to t
func (m *Mock) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

// Advance moves the mock forward by d
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}
