package neural

import (
	"errors"
	"fmt"

	"golang.org/x/exp/rand"
)

// BufferFill is the value every recursive buffer slot holds before the first
// evaluation.
const BufferFill = -1.0

var ErrTopology = errors.New("invalid network topology")

// Network is a fixed topology feedforward network. Layer 0 echoes its inputs,
// hidden layers use Sigmoid and the output layer uses Identity. The most
// recent outputs are kept in a recursive buffer and fed to every neuron of
// the first hidden layer on the next call.
//
// The buffer is mutable state: a Network must not be evaluated from two games
// at once.
type Network struct {
	layers     []int
	bufferSize int
	weights    [][][]float64 // [layer][neuron][input], layer 0 is empty
	values     [][]float64
	buffer     []float64 // newest first
}

// Validate checks that a topology has an input and an output layer, only
// positive layer sizes and a non-negative buffer.
func Validate(layers []int, bufferSize int) error {
	if len(layers) < 2 {
		return fmt.Errorf("%w: need at least an input and an output layer, got %d layers", ErrTopology, len(layers))
	}
	for k, size := range layers {
		if size <= 0 {
			return fmt.Errorf("%w: layer %d has %d neurons", ErrTopology, k, size)
		}
	}
	if bufferSize < 0 {
		return fmt.Errorf("%w: negative buffer size %d", ErrTopology, bufferSize)
	}
	return nil
}

// fanIn is the number of weighted inputs of every neuron in layer k.
func fanIn(layers []int, bufferSize, k int) int {
	switch k {
	case 0:
		return 0
	case 1:
		return layers[0] + bufferSize
	default:
		return layers[k-1]
	}
}

// WeightCount is the length of the flat weight vector for a topology.
func WeightCount(layers []int, bufferSize int) int {
	total := 0
	for k := range layers {
		total += layers[k] * fanIn(layers, bufferSize, k)
	}
	return total
}

func newNetwork(layers []int, bufferSize int) *Network {
	n := &Network{
		layers:     append([]int(nil), layers...),
		bufferSize: bufferSize,
		weights:    make([][][]float64, len(layers)),
		values:     make([][]float64, len(layers)),
		buffer:     make([]float64, bufferSize),
	}
	for k, size := range layers {
		n.values[k] = make([]float64, size)
		n.weights[k] = make([][]float64, size)
		for i := range n.weights[k] {
			n.weights[k][i] = make([]float64, fanIn(layers, bufferSize, k))
		}
	}
	for i := range n.buffer {
		n.buffer[i] = BufferFill
	}
	return n
}

// New builds a network with weights drawn uniformly from [-limit/n, limit/n]
// where n is the fan-in of the neuron.
func New(layers []int, bufferSize int, limit float64, rng *rand.Rand) (*Network, error) {
	if err := Validate(layers, bufferSize); err != nil {
		return nil, err
	}
	n := newNetwork(layers, bufferSize)
	for k := 1; k < len(layers); k++ {
		bound := limit / float64(fanIn(layers, bufferSize, k))
		for _, neuron := range n.weights[k] {
			for j := range neuron {
				neuron[j] = rng.Float64()*2*bound - bound
			}
		}
	}
	return n, nil
}

// FromWeights builds a network from a flat vector in the order produced by
// Weights.
func FromWeights(layers []int, bufferSize int, weights []float64) (*Network, error) {
	if err := Validate(layers, bufferSize); err != nil {
		return nil, err
	}
	n := newNetwork(layers, bufferSize)
	if err := n.LoadWeights(weights); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Network) Layers() []int {
	return append([]int(nil), n.layers...)
}

func (n *Network) BufferSize() int {
	return n.bufferSize
}

// Buffer returns a snapshot of the recursive buffer, newest first.
func (n *Network) Buffer() []float64 {
	return append([]float64(nil), n.buffer...)
}

// Weights flattens layer by layer, neuron by neuron, input by input.
func (n *Network) Weights() []float64 {
	flat := make([]float64, 0, WeightCount(n.layers, n.bufferSize))
	for _, layer := range n.weights {
		for _, neuron := range layer {
			flat = append(flat, neuron...)
		}
	}
	return flat
}

// LoadWeights overwrites every weight from a flat vector in Weights order.
func (n *Network) LoadWeights(weights []float64) error {
	want := WeightCount(n.layers, n.bufferSize)
	if len(weights) != want {
		return fmt.Errorf("%w: expected %d weights, got %d", ErrTopology, want, len(weights))
	}
	offset := 0
	for _, layer := range n.weights {
		for _, neuron := range layer {
			offset += copy(neuron, weights[offset:offset+len(neuron)])
		}
	}
	return nil
}

// Evaluate runs one forward pass and then pushes the outputs into the
// recursive buffer. The outputs of this call are only visible to the next one.
func (n *Network) Evaluate(inputs []float64) ([]float64, error) {
	if len(inputs) != n.layers[0] {
		return nil, fmt.Errorf("expected %d inputs, got %d", n.layers[0], len(inputs))
	}
	copy(n.values[0], inputs)

	last := len(n.layers) - 1
	for k := 1; k <= last; k++ {
		activate := activation(k, last)
		prev := n.values[k-1]
		for i, w := range n.weights[k] {
			sum := 0.0
			for j, v := range prev {
				sum += w[j] * v
			}
			if k == 1 {
				for j, v := range n.buffer {
					sum += w[len(prev)+j] * v
				}
			}
			n.values[k][i] = activate(sum)
		}
	}

	outputs := append([]float64(nil), n.values[last]...)
	for _, y := range outputs {
		n.push(y)
	}
	return outputs, nil
}

func (n *Network) push(y float64) {
	if n.bufferSize == 0 {
		return
	}
	copy(n.buffer[1:], n.buffer[:n.bufferSize-1])
	n.buffer[0] = y
}
