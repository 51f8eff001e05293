package experiments

import (
	"errors"
	"sync"

	"reversi/evolution"
)

var ErrPassExhausted = errors.New("every controller of the generation has been handed out")

// SharedSource serializes access to a Manager for parallel workers. It never
// turns a generation over by itself: once the pass is exhausted requests
// fail with ErrPassExhausted until NextGeneration is called, so no game can
// be playing while the population changes.
type SharedSource struct {
	mu      sync.Mutex
	manager *evolution.Manager
}

func NewSharedSource(manager *evolution.Manager) *SharedSource {
	return &SharedSource{manager: manager}
}

func (s *SharedSource) RequestController() (*evolution.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.manager.Exhausted() {
		return nil, ErrPassExhausted
	}
	return s.manager.RequestController()
}

func (s *SharedSource) ReportFitness(id evolution.GenomeID, delta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager.ReportFitness(id, delta)
}

func (s *SharedSource) Generation() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager.Generation()
}

func (s *SharedSource) Exhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager.Exhausted()
}

func (s *SharedSource) NextGeneration() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager.NextGeneration()
}
