package telemetry

// GenomeRef identifies an individual across generations.
type GenomeRef struct {
	Generation int
	Identifier int
}

// Birth describes one newborn individual. Parents are nil for the initial
// random generation.
type Birth struct {
	Identifier int
	ParentA    *GenomeRef
	ParentB    *GenomeRef
}

type Fitness struct {
	Individual GenomeRef
	RawFitness float64
}

// Sink receives lineage and fitness history. Implementations are fire and
// forget: they never return errors to the caller and must not block
// gameplay on a failing transport.
type Sink interface {
	Reset()
	Birth(generation int, born []Birth)
	Death(generation int, dead []GenomeRef)
	FitnessReport(generation int, fitness []Fitness)
}

type nopSink struct{}

func NewNopSink() Sink {
	return nopSink{}
}

func (nopSink) Reset()                       {}
func (nopSink) Birth(int, []Birth)           {}
func (nopSink) Death(int, []GenomeRef)       {}
func (nopSink) FitnessReport(int, []Fitness) {}
