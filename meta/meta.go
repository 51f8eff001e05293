// meta/meta.go
package meta

// POPULATION_SIZE is the number of individuals in every generation.
const POPULATION_SIZE = 10

// SURVIVORS is the number of individuals kept when a generation is culled.
const SURVIVORS = 5

// REPRODUCTION_PROBABILITY caps the chance of a survivor being picked as a parent.
const REPRODUCTION_PROBABILITY = 0.5

// MUTATION_PROBABILITY is the chance of each child weight being perturbed.
const MUTATION_PROBABILITY = 0.001

// LAYERS is the controller topology: 60 board cells in, a single score out.
var LAYERS = []int{60, 30, 50, 1}

// RECURSIVE_BUFFER_SIZE is the number of past outputs fed back to the first hidden layer.
const RECURSIVE_BUFFER_SIZE = 60

// X_LIMIT keeps initial sigmoid outputs at least 1e-5 away from 0 and 1.
const X_LIMIT = 11.5129

// MAX_MOVES bounds the plies of a single game, passes included.
const MAX_MOVES = 128
