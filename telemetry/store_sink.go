package telemetry

import (
	"context"
	"time"
)

const storeTimeout = 5 * time.Second

// StoreSink writes events straight into a Store. The first failed write
// disables the sink for the rest of the process.
type StoreSink struct {
	store *Store
	latch Latch
}

func NewStoreSink(store *Store) *StoreSink {
	return &StoreSink{store: store}
}

func (s *StoreSink) Enabled() bool {
	return s.latch.Enabled()
}

func (s *StoreSink) emit(write func(ctx context.Context) error) {
	if !s.latch.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := write(ctx); err != nil {
		s.latch.Trip("sqlite", err)
	}
}

func (s *StoreSink) Reset() {
	s.emit(s.store.Reset)
}

func (s *StoreSink) Birth(generation int, born []Birth) {
	s.emit(func(ctx context.Context) error {
		return s.store.SaveBirths(ctx, generation, born)
	})
}

func (s *StoreSink) Death(generation int, dead []GenomeRef) {
	s.emit(func(ctx context.Context) error {
		return s.store.SaveDeaths(ctx, generation, dead)
	})
}

func (s *StoreSink) FitnessReport(generation int, fitness []Fitness) {
	s.emit(func(ctx context.Context) error {
		return s.store.SaveFitness(ctx, generation, fitness)
	})
}
