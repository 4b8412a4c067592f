// Package state holds the reconciler's process-wide, in-memory
// bookkeeping: last scale time, in-flight graceful drains, and
// below-minimum alert throttling. It is a single mutex-guarded value
// passed explicitly to the policy evaluator (which also registers and
// releases graceful drains) rather than a set of free-floating
// globals, so a parallel runtime has one lock to reason about.
package state

import (
	"sync"
	"time"
)

// DrainHandle is an opaque reference to a graceful drain in progress.
// Done closes when the drain reaches a terminal state.
type DrainHandle struct {
	Done chan struct{}
}

// NewDrainHandle returns a handle ready to be registered before a
// drain goroutine starts.
func NewDrainHandle() *DrainHandle {
	return &DrainHandle{Done: make(chan struct{})}
}

// ReconcileState is the single process-wide value described in the
// design notes: last_scale_ts, pending_down, below_min_last_alert.
type ReconcileState struct {
	mu                sync.Mutex
	lastScaleTS       map[string]time.Time
	pendingDown       map[string]*DrainHandle
	belowMinLastAlert map[string]time.Time
}

// New returns an empty ReconcileState.
func New() *ReconcileState {
	return &ReconcileState{
		lastScaleTS:       map[string]time.Time{},
		pendingDown:       map[string]*DrainHandle{},
		belowMinLastAlert: map[string]time.Time{},
	}
}

// CanScale reports whether a scale action may be taken for svcID:
// the cooldown has elapsed and no drain is in flight.
func (s *ReconcileState) CanScale(svcID string, cooldown time.Duration, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, draining := s.pendingDown[svcID]; draining {
		return false
	}
	last, ok := s.lastScaleTS[svcID]
	if !ok {
		return true
	}
	return now.Sub(last) >= cooldown
}

// SetLastScale records the time of a scale action, starting the next
// cooldown window.
func (s *ReconcileState) SetLastScale(svcID string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastScaleTS[svcID] = now
}

// IsPendingDown reports whether svcID already has a drain in flight.
func (s *ReconcileState) IsPendingDown(svcID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pendingDown[svcID]
	return ok
}

// BeginDrain registers a drain handle for svcID. Callers must check
// IsPendingDown first; BeginDrain overwrites any existing entry.
func (s *ReconcileState) BeginDrain(svcID string, h *DrainHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingDown[svcID] = h
}

// EndDrain clears svcID's in-flight drain, guaranteeing the slot is
// released regardless of how the drain terminated.
func (s *ReconcileState) EndDrain(svcID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pendingDown, svcID)
}

// ShouldAlertBelowMin reports whether a replicas-below-min alert may
// fire for svcID now, and if so records now as the last alert time.
func (s *ReconcileState) ShouldAlertBelowMin(svcID string, cooldown time.Duration, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.belowMinLastAlert[svcID]
	if ok && now.Sub(last) < cooldown {
		return false
	}
	s.belowMinLastAlert[svcID] = now
	return true
}
