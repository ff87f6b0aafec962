package recommend

import (
	"math"
	"math/rand"
)

// hiddenDims fixes the layer stack: 64-wide concatenated input through
// 64→32→16 hidden layers to a single sigmoid output.
var hiddenDims = []int{64, 32, 16}

// Dense is one fully connected layer. W is row-major [out][in].
type Dense struct {
	W [][]float64 `json:"w"`
	B []float64   `json:"b"`
}

// MLP is the scoring network applied to the concatenated embedding pair.
// ReLU between layers, sigmoid on the final scalar.
type MLP struct {
	Layers []Dense `json:"layers"`
}

// newMLP builds the fixed stack with Xavier-uniform weights and zero biases.
func newMLP(inputDim int, rng *rand.Rand) *MLP {
	dims := append([]int{inputDim}, hiddenDims...)
	dims = append(dims, 1)

	layers := make([]Dense, 0, len(dims)-1)
	for l := 0; l < len(dims)-1; l++ {
		in, out := dims[l], dims[l+1]
		limit := math.Sqrt(6.0 / float64(in+out))

		w := make([][]float64, out)
		for i := range w {
			w[i] = make([]float64, in)
			for j := range w[i] {
				w[i][j] = (rng.Float64()*2 - 1) * limit
			}
		}
		layers = append(layers, Dense{W: w, B: make([]float64, out)})
	}
	return &MLP{Layers: layers}
}

// Forward runs the network on a single input vector and returns the sigmoid
// output. Read-only; safe to call concurrently.
func (m *MLP) Forward(x []float64) float64 {
	a := x
	last := len(m.Layers) - 1
	for l, layer := range m.Layers {
		z := make([]float64, len(layer.W))
		for i, row := range layer.W {
			sum := layer.B[i]
			for j, wij := range row {
				sum += wij * a[j]
			}
			z[i] = sum
		}
		if l < last {
			for i := range z {
				if z[i] < 0 {
					z[i] = 0
				}
			}
		}
		a = z
	}
	return sigmoid(a[0])
}

// forwardTrace runs the network retaining pre-activations and activations
// per layer for backpropagation. zs[l] and as[l] belong to layer l; as[-1]
// is conceptually the input, passed separately.
func (m *MLP) forwardTrace(x []float64) (zs, as [][]float64) {
	a := x
	last := len(m.Layers) - 1
	zs = make([][]float64, len(m.Layers))
	as = make([][]float64, len(m.Layers))
	for l, layer := range m.Layers {
		z := make([]float64, len(layer.W))
		for i, row := range layer.W {
			sum := layer.B[i]
			for j, wij := range row {
				sum += wij * a[j]
			}
			z[i] = sum
		}
		zs[l] = z

		act := make([]float64, len(z))
		copy(act, z)
		if l < last {
			for i := range act {
				if act[i] < 0 {
					act[i] = 0
				}
			}
		}
		as[l] = act
		a = act
	}
	return zs, as
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
