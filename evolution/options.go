package evolution

import (
	"reversi/telemetry"

	"golang.org/x/exp/rand"
)

type Option func(m *Manager)

func WithPopulationSize(size int) Option {
	return func(m *Manager) {
		m.size = size
	}
}

func WithSurvivors(survivors int) Option {
	return func(m *Manager) {
		m.survivors = survivors
	}
}

func WithReproductionProbability(p float64) Option {
	return func(m *Manager) {
		m.reproductionProb = p
	}
}

func WithMutationProbability(p float64) Option {
	return func(m *Manager) {
		m.mutationProb = p
	}
}

// WithTopology sets the controller layer sizes and recursive buffer length.
func WithTopology(layers []int, bufferSize int) Option {
	return func(m *Manager) {
		m.layers = append([]int(nil), layers...)
		m.bufferSize = bufferSize
	}
}

// WithInitLimit sets L in the [-L/n, L/n] range of random initial weights.
func WithInitLimit(limit float64) Option {
	return func(m *Manager) {
		if limit > 0 {
			m.initLimit = limit
		}
	}
}

func WithSink(sink telemetry.Sink) Option {
	return func(m *Manager) {
		if sink != nil {
			m.sink = sink
		}
	}
}

func WithRand(rng *rand.Rand) Option {
	return func(m *Manager) {
		if rng != nil {
			m.rng = rng
		}
	}
}
