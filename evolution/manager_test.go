package evolution

import (
	"testing"

	"reversi/telemetry"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func newTestManager(t *testing.T, options ...Option) *Manager {
	t.Helper()
	options = append([]Option{
		WithTopology([]int{4, 3, 1}, 2),
		WithRand(rand.New(rand.NewSource(7))),
	}, options...)
	m, err := NewManager(options...)
	require.NoError(t, err)
	return m
}

// playGeneration hands out every controller of the current generation and
// reports fitness(i) for the i-th one.
func playGeneration(t *testing.T, m *Manager, fitness func(i int) float64) []*Controller {
	t.Helper()
	controllers := make([]*Controller, 0, m.size)
	for i := 0; i < m.size; i++ {
		c, err := m.RequestController()
		require.NoError(t, err)
		require.NoError(t, m.ReportFitness(c.ID(), fitness(i)))
		controllers = append(controllers, c)
	}
	require.True(t, m.Exhausted())
	return controllers
}

func TestNewManagerValidation(t *testing.T) {
	t.Run("survivors", func(t *testing.T) {
		for _, survivors := range []int{0, 1, 10, 11} {
			_, err := NewManager(WithSurvivors(survivors))
			require.ErrorIs(t, err, ErrInvalidConfig, "survivors=%d should be rejected", survivors)
		}
	})

	t.Run("probabilities", func(t *testing.T) {
		_, err := NewManager(WithReproductionProbability(0))
		require.ErrorIs(t, err, ErrInvalidConfig)
		_, err = NewManager(WithMutationProbability(1.5))
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("topology", func(t *testing.T) {
		_, err := NewManager(WithTopology([]int{4}, 2))
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("defaults", func(t *testing.T) {
		m, err := NewManager()
		require.NoError(t, err)
		require.Equal(t, 10, m.size)
		require.Equal(t, 5, m.survivors)
		require.False(t, m.Spawned())
	})
}

func TestSpawn(t *testing.T) {
	m := newTestManager(t)

	c, err := m.RequestController()
	require.NoError(t, err)
	require.Equal(t, GenomeID{Generation: 0, Identifier: 0}, c.ID())

	population := m.Population()
	require.Len(t, population, 10, "Population should be full after spawn")
	for i, g := range population {
		require.Equal(t, GenomeID{Generation: 0, Identifier: i}, g.ID)
		require.Equal(t, UnsetFitness, g.NormalizedFitness)
		require.Nil(t, g.ParentA)
		require.Nil(t, g.ParentB)
	}
	require.False(t, m.Exhausted())
}

func TestControllersHandedOutOncePerGeneration(t *testing.T) {
	m := newTestManager(t)
	controllers := playGeneration(t, m, func(i int) float64 { return float64(i) })

	seen := map[GenomeID]bool{}
	for _, c := range controllers {
		require.False(t, seen[c.ID()], "%v handed out twice", c.ID())
		seen[c.ID()] = true
	}
	require.Equal(t, 0, m.Generation())
}

func TestGenerationTurnover(t *testing.T) {
	m := newTestManager(t)
	playGeneration(t, m, func(i int) float64 { return float64(i) })

	c, err := m.RequestController()
	require.NoError(t, err)
	require.Equal(t, 1, m.Generation(), "Generation should increment after turnover")

	population := m.Population()
	require.Len(t, population, 10)

	var survivors, children []Genome
	for _, g := range population {
		if g.ID.Generation == 0 {
			survivors = append(survivors, g)
		} else {
			children = append(children, g)
		}
	}
	require.Len(t, survivors, 5)
	require.Len(t, children, 5)

	for _, g := range survivors {
		require.Zero(t, g.Fitness, "Survivor fitness should be reset")
		require.Greater(t, g.NormalizedFitness, 0.0, "Survivors keep their normalized fitness")
		require.LessOrEqual(t, g.NormalizedFitness, 1.0)
	}
	for i, g := range children {
		require.Equal(t, GenomeID{Generation: 1, Identifier: i}, g.ID)
		require.Zero(t, g.Fitness)
		require.Equal(t, UnsetFitness, g.NormalizedFitness)
		require.NotNil(t, g.ParentA)
		require.NotNil(t, g.ParentB)
		require.Equal(t, 0, g.ParentA.Generation)
		require.Equal(t, 0, g.ParentB.Generation)
	}

	require.Equal(t, population[0].ID, c.ID(), "First controller of the new generation")
}

func TestCullAndReproduceSizes(t *testing.T) {
	m := newTestManager(t)
	playGeneration(t, m, func(i int) float64 { return float64(i * i) })

	require.NoError(t, m.cull())
	require.Len(t, m.population, 5, "Exactly SURVIVORS after cull")
	require.NoError(t, m.reproduce())
	require.Len(t, m.population, 10, "Full population after reproduce")
	require.Zero(t, m.cursor)
}

func TestUpdateFitness(t *testing.T) {
	t.Run("normalizes to unit range", func(t *testing.T) {
		m := newTestManager(t)
		playGeneration(t, m, func(i int) float64 { return float64(3*i) - 4 })
		m.updateFitness()

		for _, ind := range m.population {
			require.GreaterOrEqual(t, ind.normalizedFitness, 0.0)
			require.LessOrEqual(t, ind.normalizedFitness, 1.0)
		}
		require.Equal(t, 0.0, m.population[0].normalizedFitness, "Minimum maps to 0")
		require.Equal(t, 1.0, m.population[9].normalizedFitness, "Maximum maps to 1")
	})

	t.Run("keeps existing values", func(t *testing.T) {
		m := newTestManager(t)
		playGeneration(t, m, func(i int) float64 { return float64(i) })
		m.population[4].normalizedFitness = 0.3
		m.population[9].fitness = 90
		m.updateFitness()

		require.Equal(t, 0.3, m.population[4].normalizedFitness, "Already normalized genome should be left alone")
		require.InDelta(t, 8.0/90, m.population[8].normalizedFitness, 1e-12)
		require.Equal(t, 1.0, m.population[9].normalizedFitness)
	})

	t.Run("equal fitness is neutral", func(t *testing.T) {
		m := newTestManager(t)
		playGeneration(t, m, func(int) float64 { return 2 })
		m.updateFitness()
		for _, ind := range m.population {
			require.Equal(t, NeutralFitness, ind.normalizedFitness)
		}

		require.NoError(t, m.NextGeneration(), "Neutral fitness should still allow selection")
		require.Len(t, m.population, 10)
	})
}

func TestInvalidCallOrder(t *testing.T) {
	m := newTestManager(t)
	require.ErrorIs(t, m.cull(), ErrNotSpawned)
	require.ErrorIs(t, m.reproduce(), ErrNotSpawned)
	require.ErrorIs(t, m.NextGeneration(), ErrNotSpawned)

	_, err := m.RequestController()
	require.NoError(t, err)
	require.ErrorIs(t, m.NextGeneration(), ErrGenerationActive)

	m.cursor = 42
	_, err = m.RequestController()
	require.ErrorIs(t, err, ErrInconsistentCursor)

	m.cursor = 0
	m.population = m.population[:3]
	_, err = m.RequestController()
	require.ErrorIs(t, err, ErrInconsistentCursor)
}

func TestSelectionStalled(t *testing.T) {
	m := newTestManager(t)
	playGeneration(t, m, func(i int) float64 {
		if i == 0 {
			return 1
		}
		return 0
	})
	_, err := m.RequestController()
	require.ErrorIs(t, err, ErrSelectionStalled)
}

func TestReportFitness(t *testing.T) {
	m := newTestManager(t)
	c, err := m.RequestController()
	require.NoError(t, err)

	require.NoError(t, m.ReportFitness(c.ID(), 0.25))
	require.NoError(t, m.ReportFitness(c.ID(), 0.5))
	require.Equal(t, 0.75, m.Population()[0].Fitness, "Fitness accumulates")

	err = m.ReportFitness(GenomeID{Generation: 3, Identifier: 0}, 1)
	require.ErrorIs(t, err, ErrUnknownGenome)
}

func TestTelemetry(t *testing.T) {
	recorder := telemetry.NewRecorder()
	m := newTestManager(t, WithSink(recorder))
	require.Equal(t, []string{"reset"}, recorder.Kinds(), "Reset is sent at construction")

	playGeneration(t, m, func(i int) float64 { return float64(i) })
	_, err := m.RequestController()
	require.NoError(t, err)

	require.Equal(t, []string{"reset", "birth", "fitness", "death", "birth"}, recorder.Kinds())
	events := recorder.Events()

	require.Equal(t, 0, events[1].Generation)
	require.Len(t, events[1].Born, 10)
	require.Nil(t, events[1].Born[0].ParentA)

	require.Len(t, events[2].Fitness, 10)
	require.Equal(t, 9.0, events[2].Fitness[9].RawFitness)

	require.Equal(t, 0, events[3].Generation)
	require.Len(t, events[3].Dead, 5)

	require.Equal(t, 1, events[4].Generation)
	require.Len(t, events[4].Born, 5)
	for i, b := range events[4].Born {
		require.Equal(t, i, b.Identifier)
		require.NotNil(t, b.ParentA)
		require.NotNil(t, b.ParentB)
	}
}

func TestCrossover(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, n := range []int{1, 6, 7} {
		a := make([]float64, n)
		b := make([]float64, n)
		for i := range a {
			a[i], b[i] = 1, 2
		}
		child := crossover(rng, a, b)

		fromB := 0
		for _, w := range child {
			if w == 2 {
				fromB++
			}
		}
		require.Equal(t, (n+1)/2, fromB, "Half of %d weights should come from the second parent", n)
		require.Equal(t, 1.0, a[0], "Parents are not modified")
	}
}

func TestMutate(t *testing.T) {
	rng := rand.New(rand.NewSource(5))

	t.Run("zero weight cannot move", func(t *testing.T) {
		weights := []float64{0, 0, 0}
		require.Equal(t, 3, mutate(rng, weights, 1))
		require.Equal(t, []float64{0, 0, 0}, weights)
	})

	t.Run("perturbation is multiplicative", func(t *testing.T) {
		weights := []float64{1, -2, 4}
		mutate(rng, weights, 1)
		require.True(t, weights[0] >= 0 && weights[0] <= 2)
		require.True(t, weights[1] >= -4 && weights[1] <= 0)
		require.True(t, weights[2] >= 0 && weights[2] <= 8)
	})

	t.Run("zero probability", func(t *testing.T) {
		weights := []float64{1, 2, 3}
		require.Zero(t, mutate(rng, weights, 0))
		require.Equal(t, []float64{1, 2, 3}, weights)
	})
}

// scriptedSource replays fixed Float64 draws. Each value must be a multiple
// of 2^-53 to come back unchanged from Rand.Float64.
type scriptedSource struct {
	t     *testing.T
	draws []float64
}

func (s *scriptedSource) Uint64() uint64 {
	require.NotEmpty(s.t, s.draws, "Ran out of scripted draws")
	f := s.draws[0]
	s.draws = s.draws[1:]
	return uint64(f * (1 << 53))
}

func (s *scriptedSource) Seed(uint64) {}

// scriptedManager spawns a population of the given normalized fitness values
// and switches the manager to the scripted draws.
func scriptedManager(t *testing.T, fitness []float64, options ...Option) (*Manager, *scriptedSource) {
	t.Helper()
	m := newTestManager(t, append([]Option{WithPopulationSize(len(fitness))}, options...)...)
	_, err := m.RequestController()
	require.NoError(t, err)
	for i, nf := range fitness {
		m.population[i].normalizedFitness = nf
	}
	src := &scriptedSource{t: t}
	m.rng = rand.New(src)
	return m, src
}

func ids(population []*individual) []GenomeID {
	out := make([]GenomeID, len(population))
	for i, ind := range population {
		out[i] = ind.id
	}
	return out
}

func TestCullRequeuesAtHead(t *testing.T) {
	recorder := telemetry.NewRecorder()
	m, src := scriptedManager(t, []float64{0.9, 0.5, 0.5, 0.5}, WithSurvivors(2), WithSink(recorder))
	a, b, c, d := m.population[0].id, m.population[1].id, m.population[2].id, m.population[3].id

	// d, c and b are rejected and go back to the head, which makes a the tail.
	// a is accepted, then d is retried before b and c and accepted.
	src.draws = []float64{0.75, 0.75, 0.75, 0.75, 0.25}
	require.NoError(t, m.cull())

	require.Equal(t, []GenomeID{a, d}, ids(m.population), "Survivors in acceptance order")
	require.Empty(t, src.draws)

	events := recorder.Events()
	death := events[len(events)-1]
	require.Equal(t, "death", death.Kind)
	require.Equal(t, []telemetry.GenomeRef{b.ref(), c.ref()}, death.Dead)
}

func TestReproducePairsAndRequeues(t *testing.T) {
	recorder := telemetry.NewRecorder()
	m, src := scriptedManager(t, []float64{1, 0.1, 1, 0.5},
		WithSurvivors(2),
		WithReproductionProbability(1),
		WithMutationProbability(0.5),
		WithSink(recorder),
	)
	// Four survivors and room for two children.
	m.size = 6
	a, b, c, d := m.population[0].id, m.population[1].id, m.population[2].id, m.population[3].id

	// breed draws one value per weight for the crossover permutation and one
	// per weight for mutation; 0.75 >= 0.5 leaves every weight untouched.
	weights := len(m.population[0].controller.Weights())
	breed := make([]float64, 0, 2*weights)
	for i := 0; i < weights; i++ {
		breed = append(breed, 0)
	}
	for i := 0; i < weights; i++ {
		breed = append(breed, 0.75)
	}

	var draws []float64
	draws = append(draws, 0.75) // d: 0.75 > 0.5, not a parent
	draws = append(draws, 0.25) // c: pending
	draws = append(draws, 0.25) // b: 0.25 > 0.1, not a parent
	draws = append(draws, 0.25) // a: pairs with c
	draws = append(draws, breed...)
	draws = append(draws, 0.25) // d: pending
	draws = append(draws, 0.5)  // c: pairs with d
	draws = append(draws, breed...)
	src.draws = draws

	require.NoError(t, m.reproduce())
	require.Empty(t, src.draws)

	// Every inspected genome went back to the head; nobody was lost.
	require.Equal(t, []GenomeID{
		c, d, a, b,
		{Generation: 1, Identifier: 0},
		{Generation: 1, Identifier: 1},
	}, ids(m.population))

	events := recorder.Events()
	birth := events[len(events)-1]
	require.Equal(t, "birth", birth.Kind)
	require.Equal(t, 1, birth.Generation)
	require.Equal(t, []telemetry.Birth{
		{Identifier: 0, ParentA: ptr(c.ref()), ParentB: ptr(a.ref())},
		{Identifier: 1, ParentA: ptr(d.ref()), ParentB: ptr(c.ref())},
	}, birth.Born)

	child := m.population[4].snapshot()
	require.Equal(t, c, *child.ParentA)
	require.Equal(t, a, *child.ParentB)
}

func ptr[T any](v T) *T {
	return &v
}

func TestParseGenomeID(t *testing.T) {
	id, err := ParseGenomeID("12/3")
	require.NoError(t, err)
	require.Equal(t, GenomeID{Generation: 12, Identifier: 3}, id)
	require.Equal(t, "12/3", id.String())

	for _, bad := range []string{"", "12", "a/3", "1/-2", "1/2/3"} {
		_, err := ParseGenomeID(bad)
		require.Error(t, err, "%q should be rejected", bad)
	}
}
