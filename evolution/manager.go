package evolution

import (
	"errors"
	"fmt"
	"time"

	"reversi/meta"
	"reversi/neural"
	"reversi/telemetry"
	"reversi/utils"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

var (
	ErrNotSpawned         = errors.New("population has not been spawned")
	ErrInconsistentCursor = errors.New("population cursor is inconsistent with its size")
	ErrGenerationActive   = errors.New("generation still has controllers to hand out")
	ErrUnknownGenome      = errors.New("genome is not part of the population")
	ErrSelectionStalled   = errors.New("too few individuals can be selected")
	ErrInvalidConfig      = errors.New("invalid evolution config")
)

// Manager owns the evolving population. Every controller is handed out once
// per generation; once all of them have been handed out the next request
// culls the population, breeds it back to full size and starts a new
// generation.
//
// Manager is not safe for concurrent use.
type Manager struct {
	size             int
	survivors        int
	reproductionProb float64
	mutationProb     float64
	layers           []int
	bufferSize       int
	initLimit        float64
	sink             telemetry.Sink
	rng              *rand.Rand

	generation int
	population []*individual
	cursor     int
}

func NewManager(options ...Option) (*Manager, error) {
	m := &Manager{ // Default values
		size:             meta.POPULATION_SIZE,
		survivors:        meta.SURVIVORS,
		reproductionProb: meta.REPRODUCTION_PROBABILITY,
		mutationProb:     meta.MUTATION_PROBABILITY,
		layers:           append([]int(nil), meta.LAYERS...),
		bufferSize:       meta.RECURSIVE_BUFFER_SIZE,
		initLimit:        meta.X_LIMIT,
		sink:             telemetry.NewNopSink(),
		rng:              rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
	}
	for _, option := range options {
		option(m)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	m.sink.Reset()
	return m, nil
}

func (m *Manager) validate() error {
	if m.survivors < 2 || m.survivors >= m.size {
		return fmt.Errorf("%w: survivors must be in [2, %d), got %d", ErrInvalidConfig, m.size, m.survivors)
	}
	if m.reproductionProb <= 0 || m.reproductionProb > 1 {
		return fmt.Errorf("%w: reproduction probability %v not in (0, 1]", ErrInvalidConfig, m.reproductionProb)
	}
	if m.mutationProb <= 0 || m.mutationProb > 1 {
		return fmt.Errorf("%w: mutation probability %v not in (0, 1]", ErrInvalidConfig, m.mutationProb)
	}
	if err := neural.Validate(m.layers, m.bufferSize); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Generation is the number of the generation currently being handed out.
func (m *Manager) Generation() int {
	return m.generation
}

func (m *Manager) Spawned() bool {
	return len(m.population) > 0
}

// Exhausted reports whether every controller of the current generation has
// been handed out.
func (m *Manager) Exhausted() bool {
	return len(m.population) > 0 && m.cursor >= len(m.population)
}

// Population returns a snapshot of every genome in population order.
func (m *Manager) Population() []Genome {
	out := make([]Genome, len(m.population))
	for i, ind := range m.population {
		out[i] = ind.snapshot()
	}
	return out
}

// RequestController hands out the next controller of the generation,
// spawning the first generation or turning over to the next one as needed.
func (m *Manager) RequestController() (*Controller, error) {
	switch {
	case len(m.population) == 0:
		if err := m.spawn(); err != nil {
			return nil, err
		}
	case len(m.population) != m.size || m.cursor < 0 || m.cursor > m.size:
		return nil, fmt.Errorf("%w: cursor %d, population %d, expected size %d",
			ErrInconsistentCursor, m.cursor, len(m.population), m.size)
	case m.cursor == m.size:
		if err := m.NextGeneration(); err != nil {
			return nil, err
		}
	}

	c := m.population[m.cursor].controller
	m.cursor++
	return c, nil
}

// ReportFitness adds delta to the accumulated fitness of a genome.
func (m *Manager) ReportFitness(id GenomeID, delta float64) error {
	for _, ind := range m.population {
		if ind.id == id {
			ind.fitness += delta
			return nil
		}
	}
	return fmt.Errorf("report fitness for %v: %w", id, ErrUnknownGenome)
}

// NextGeneration culls and reproduces an exhausted generation.
func (m *Manager) NextGeneration() error {
	if len(m.population) == 0 {
		return ErrNotSpawned
	}
	if !m.Exhausted() {
		return fmt.Errorf("%w: %d of %d handed out", ErrGenerationActive, m.cursor, len(m.population))
	}
	log.Info().Msgf("generation %d finished, culling and reproducing", m.generation)
	if err := m.cull(); err != nil {
		return err
	}
	if err := m.reproduce(); err != nil {
		return err
	}
	log.Info().Msgf("new generation (%d)", m.generation)
	return nil
}

func (m *Manager) spawn() error {
	population := make([]*individual, 0, m.size)
	born := make([]telemetry.Birth, 0, m.size)
	for i := 0; i < m.size; i++ {
		network, err := neural.New(m.layers, m.bufferSize, m.initLimit, m.rng)
		if err != nil {
			return err
		}
		population = append(population, newIndividual(GenomeID{Generation: 0, Identifier: i}, network))
		born = append(born, telemetry.Birth{Identifier: i})
	}

	m.population = population
	m.generation = 0
	m.cursor = 0
	m.sink.Birth(0, born)
	log.Info().Msgf("new generation (%d)", m.generation)
	return nil
}

// updateFitness rescales raw fitness to [0, 1] for every genome that has not
// been normalized yet. Survivors keep the value they were selected with.
func (m *Manager) updateFitness() {
	lo, hi := m.population[0].fitness, m.population[0].fitness
	report := make([]telemetry.Fitness, 0, len(m.population))
	for _, ind := range m.population {
		lo = min(lo, ind.fitness)
		hi = max(hi, ind.fitness)
		report = append(report, telemetry.Fitness{Individual: ind.id.ref(), RawFitness: ind.fitness})
	}

	spread := hi - lo
	for _, ind := range m.population {
		if ind.normalizedFitness >= 0 {
			continue
		}
		if spread == 0 {
			ind.normalizedFitness = NeutralFitness
		} else {
			ind.normalizedFitness = (ind.fitness - lo) / spread
		}
	}

	log.Info().
		Int("generation", m.generation).
		Float64("min", lo).
		Float64("max", hi).
		Msg("fitness updated")
	m.sink.FitnessReport(m.generation, report)
}

// cull keeps exactly the configured number of survivors. Candidates are taken
// from the tail and accepted with probability equal to their normalized
// fitness; a rejected candidate goes back to the head and can be tried again.
func (m *Manager) cull() error {
	if len(m.population) == 0 {
		return ErrNotSpawned
	}
	m.updateFitness()

	viable := 0
	for _, ind := range m.population {
		if ind.normalizedFitness > 0 {
			viable++
		}
	}
	if viable < m.survivors {
		return fmt.Errorf("%w: %d can survive, %d needed", ErrSelectionStalled, viable, m.survivors)
	}

	pool := append([]*individual(nil), m.population...)
	survivors := make([]*individual, 0, m.survivors)
	for len(survivors) < m.survivors {
		var ind *individual
		ind, pool = utils.PopBack(pool)
		if m.rng.Float64() < ind.normalizedFitness {
			survivors = append(survivors, ind)
		} else {
			pool = utils.PushFront(pool, ind)
		}
	}

	dead := make([]telemetry.GenomeRef, len(pool))
	for i, ind := range pool {
		dead[i] = ind.id.ref()
	}
	m.population = survivors
	log.Debug().Int("generation", m.generation).Int("killed", len(dead)).Msg("population culled")
	m.sink.Death(m.generation, dead)
	return nil
}

// reproduce breeds the survivors back up to the population size. Candidates
// are taken from the tail and always returned to the head; a candidate
// becomes a parent when one draw r satisfies both r <= reproduction
// probability and r <= its normalized fitness. The loop only stops right
// after a pair has bred, so no pending parent outlives it.
func (m *Manager) reproduce() error {
	if len(m.population) == 0 {
		return ErrNotSpawned
	}
	needed := m.size - len(m.population)
	next := m.generation + 1
	pool := m.population
	if needed > 0 && len(pool) < 2 {
		return fmt.Errorf("%w: %d parent candidates", ErrSelectionStalled, len(pool))
	}

	children := make([]*individual, 0, needed)
	born := make([]telemetry.Birth, 0, needed)
	var pending *individual
	for len(children) < needed {
		var ind *individual
		ind, pool = utils.PopBack(pool)
		r := m.rng.Float64()
		if r <= m.reproductionProb && r <= ind.normalizedFitness {
			if pending == nil {
				pending = ind
			} else {
				child, err := m.breed(GenomeID{Generation: next, Identifier: len(children)}, pending, ind)
				if err != nil {
					return err
				}
				children = append(children, child)
				born = append(born, telemetry.Birth{
					Identifier: child.id.Identifier,
					ParentA:    &telemetry.GenomeRef{Generation: pending.id.Generation, Identifier: pending.id.Identifier},
					ParentB:    &telemetry.GenomeRef{Generation: ind.id.Generation, Identifier: ind.id.Identifier},
				})
				pending = nil
			}
		}
		pool = utils.PushFront(pool, ind)
	}

	for _, ind := range pool {
		ind.fitness = 0
	}
	m.population = append(pool, children...)
	m.generation = next
	m.cursor = 0
	m.sink.Birth(next, born)
	return nil
}

func (m *Manager) breed(id GenomeID, a, b *individual) (*individual, error) {
	weights := crossover(m.rng, a.controller.Weights(), b.controller.Weights())
	mutated := mutate(m.rng, weights, m.mutationProb)
	network, err := neural.FromWeights(m.layers, m.bufferSize, weights)
	if err != nil {
		return nil, fmt.Errorf("breed %v: %w", id, err)
	}
	child := newIndividual(id, network)
	parentA, parentB := a.id, b.id
	child.parentA = &parentA
	child.parentB = &parentB
	log.Debug().Msgf("%v born from %v and %v (%d weights mutated)", id, parentA, parentB, mutated)
	return child, nil
}
