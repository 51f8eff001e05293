package evolution

import "golang.org/x/exp/rand"

// crossover starts from a and overwrites half of the positions, picked
// uniformly without replacement, with b's value at the same index. An odd
// length rounds the replaced share up.
func crossover(rng *rand.Rand, a, b []float64) []float64 {
	child := append([]float64(nil), a...)
	replaced := (len(child) + 1) / 2
	for _, idx := range rng.Perm(len(child))[:replaced] {
		child[idx] = b[idx]
	}
	return child
}

// mutate perturbs each weight with probability p by w*U(-1,1). A zero weight
// stays zero.
func mutate(rng *rand.Rand, weights []float64, p float64) int {
	mutated := 0
	for i, w := range weights {
		if rng.Float64() < p {
			weights[i] = w + w*(rng.Float64()*2-1)
			mutated++
		}
	}
	return mutated
}
