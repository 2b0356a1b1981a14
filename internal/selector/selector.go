// Package selector holds the user's mode and quality choice.
package selector

import (
	"sync"

	"musicbridge/internal/model"
)

// Selector is the mode/quality part of the download form. It has no side
// effects; the lock only makes it safe to read from several handlers.
type Selector struct {
	mu      sync.RWMutex
	mode    model.Mode
	quality model.Quality
}

// New returns a Selector preset to the default mode and quality
func New() *Selector {
	return &Selector{mode: model.DefaultMode, quality: model.DefaultQuality}
}

// Mode returns the selected mode
func (s *Selector) Mode() model.Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// Quality returns the selected quality. It is kept while audio is selected
// so switching back to video restores it.
func (s *Selector) Quality() model.Quality {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quality
}

// SetMode selects a mode
func (s *Selector) SetMode(m model.Mode) {
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
}

// SetQuality selects a quality
func (s *Selector) SetQuality(q model.Quality) {
	s.mu.Lock()
	s.quality = q
	s.mu.Unlock()
}

// Form snapshots the selection together with url
func (s *Selector) Form(url string) model.FormState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.FormState{URL: url, Mode: s.mode, Quality: s.quality}
}
