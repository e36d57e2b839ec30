// Package model provides state management for fitted regression models.
package model

import (
	"fmt"
	"sync"
)

// StateManager manages the fitted state of a model in a thread-safe manner.
type StateManager struct {
	Fitted bool
	mu     sync.RWMutex

	// Optional metadata
	NTerms int
	NObs   int
}

// NewStateManager creates a new StateManager instance.
func NewStateManager() *StateManager {
	return &StateManager{
		Fitted: false,
	}
}

// IsFitted returns whether the model has been fitted.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Fitted
}

// SetFitted marks the model as fitted.
func (s *StateManager) SetFitted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = true
}

// Reset resets the fitted state.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = false
	s.NTerms = 0
	s.NObs = 0
}

// SetDimensions sets the number of terms and observations seen during fitting.
func (s *StateManager) SetDimensions(nTerms, nObs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NTerms = nTerms
	s.NObs = nObs
}

// GetDimensions returns the number of terms and observations seen during fitting.
func (s *StateManager) GetDimensions() (nTerms, nObs int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NTerms, s.NObs
}

// RequireFitted returns an error if the model has not been fitted.
func (s *StateManager) RequireFitted() error {
	if !s.IsFitted() {
		return fmt.Errorf("model has not been fitted yet. Call Fit() first")
	}
	return nil
}
