package telemetry

import "sync"

// Event is one call recorded by a Recorder.
type Event struct {
	Kind       string
	Generation int
	Born       []Birth
	Dead       []GenomeRef
	Fitness    []Fitness
}

// Recorder keeps every event in memory, in arrival order.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) Reset() {
	r.add(Event{Kind: "reset", Generation: -1})
}

func (r *Recorder) Birth(generation int, born []Birth) {
	r.add(Event{Kind: "birth", Generation: generation, Born: append([]Birth(nil), born...)})
}

func (r *Recorder) Death(generation int, dead []GenomeRef) {
	r.add(Event{Kind: "death", Generation: generation, Dead: append([]GenomeRef(nil), dead...)})
}

func (r *Recorder) FitnessReport(generation int, fitness []Fitness) {
	r.add(Event{Kind: "fitness", Generation: generation, Fitness: append([]Fitness(nil), fitness...)})
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Kinds lists the recorded event kinds in order.
func (r *Recorder) Kinds() []string {
	events := r.Events()
	kinds := make([]string, len(events))
	for i, e := range events {
		kinds[i] = e.Kind
	}
	return kinds
}
