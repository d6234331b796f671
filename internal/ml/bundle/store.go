package bundle

import (
	"sync/atomic"
)

// Store holds the process-wide active bundle. The bundle itself is
// immutable; the store only ever swaps the whole pointer, so a reader that
// captured a reference keeps a coherent scaler/classifier pairing for the
// rest of its request even if a reload lands mid-flight.
type Store struct {
	current atomic.Pointer[Bundle]
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Current returns the active bundle, or false when none is loaded.
func (s *Store) Current() (*Bundle, bool) {
	b := s.current.Load()
	return b, b != nil
}

// Set publishes a bundle. The bundle must already be validated.
func (s *Store) Set(b *Bundle) {
	s.current.Store(b)
}

// Clear drops the active bundle. Callers fall back to their no-model
// behavior until the next Set or Reload.
func (s *Store) Clear() {
	s.current.Store(nil)
}

// Reload loads, validates and atomically publishes the artifact at path.
// On any failure the previously active bundle stays in place untouched.
func (s *Store) Reload(path string) error {
	b, err := Load(path)
	if err != nil {
		return err
	}
	s.current.Store(b)
	return nil
}
