// Package connectivity tracks whether the agent service is reachable.
package connectivity

import (
	"sync"
)

// Status is the health of the agent service as last observed
type Status int

const (
	Reachable Status = iota
	Unreachable
)

func (s Status) String() string {
	if s == Unreachable {
		return "unreachable"
	}
	return "reachable"
}

// State is the process-wide reachability flag. It is shared by pointer
// between the agent client, the monitor and the UI. The zero value is
// Reachable.
type State struct {
	mu        sync.RWMutex
	status    Status
	listeners []func(Status)
}

// NewState returns a State starting at Reachable
func NewState() *State {
	return &State{}
}

// Status returns the current status
func (s *State) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Reachable reports whether the last observation succeeded
func (s *State) Reachable() bool {
	return s.Status() == Reachable
}

// Set records a new status and notifies listeners when it changed.
// Listeners run synchronously on the caller's goroutine.
func (s *State) Set(status Status) {
	s.mu.Lock()
	changed := s.status != status
	s.status = status
	listeners := append([]func(Status){}, s.listeners...)
	s.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range listeners {
		fn(status)
	}
}

// OnChange registers fn to be called on every status transition
func (s *State) OnChange(fn func(Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}
