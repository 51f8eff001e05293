package neural

import "math"

type Activation func(float64) float64

// activation picks the function of layer k: hidden layers squash, the output
// layer is linear.
func activation(k, last int) Activation {
	if k == last {
		return Identity
	}
	return Sigmoid
}

func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func Identity(x float64) float64 {
	return x
}

// InitLimit returns the bound L for which a weighted sum in [-L, L] keeps the
// sigmoid at least d away from its asymptotes: L = -ln(d/(1-d)).
func InitLimit(d float64) float64 {
	return -math.Log(d / (1 - d))
}
