package evolution

import (
	"fmt"
	"strconv"
	"strings"

	"reversi/neural"
	"reversi/telemetry"
)

// UnsetFitness marks a genome whose fitness has not been normalized yet.
const UnsetFitness = -1.0

// NeutralFitness is assigned to every pending genome when the whole
// population reached the same raw fitness.
const NeutralFitness = 0.5

// GenomeID identifies a genome by its birth generation and its index within
// that generation.
type GenomeID struct {
	Generation int
	Identifier int
}

func (id GenomeID) String() string {
	return fmt.Sprintf("%d/%d", id.Generation, id.Identifier)
}

// ParseGenomeID reads the "generation/identifier" form produced by String.
func ParseGenomeID(s string) (GenomeID, error) {
	gen, ident, ok := strings.Cut(s, "/")
	if !ok {
		return GenomeID{}, fmt.Errorf("genome id %q: expected generation/identifier", s)
	}
	var id GenomeID
	var err error
	if id.Generation, err = strconv.Atoi(gen); err != nil || id.Generation < 0 {
		return GenomeID{}, fmt.Errorf("genome id %q: bad generation", s)
	}
	if id.Identifier, err = strconv.Atoi(ident); err != nil || id.Identifier < 0 {
		return GenomeID{}, fmt.Errorf("genome id %q: bad identifier", s)
	}
	return id, nil
}

func (id GenomeID) ref() telemetry.GenomeRef {
	return telemetry.GenomeRef{Generation: id.Generation, Identifier: id.Identifier}
}

// Genome is a snapshot of one individual.
type Genome struct {
	ID                GenomeID
	Weights           []float64
	Fitness           float64
	NormalizedFitness float64
	ParentA           *GenomeID
	ParentB           *GenomeID
}

// Controller is a network checked out of the population. It is owned by one
// game at a time: its recursive buffer is not safe for concurrent use.
type Controller struct {
	*neural.Network
	id GenomeID
}

func (c *Controller) ID() GenomeID {
	return c.id
}

type individual struct {
	id                GenomeID
	fitness           float64
	normalizedFitness float64
	parentA           *GenomeID
	parentB           *GenomeID
	controller        *Controller
}

func newIndividual(id GenomeID, network *neural.Network) *individual {
	return &individual{
		id:                id,
		normalizedFitness: UnsetFitness,
		controller:        &Controller{Network: network, id: id},
	}
}

func (ind *individual) snapshot() Genome {
	return Genome{
		ID:                ind.id,
		Weights:           ind.controller.Weights(),
		Fitness:           ind.fitness,
		NormalizedFitness: ind.normalizedFitness,
		ParentA:           ind.parentA,
		ParentB:           ind.parentB,
	}
}
