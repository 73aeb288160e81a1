package ppo

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// Layer is a dense layer; W is row-major Out x In.
type Layer struct {
	In  int       `json:"in"`
	Out int       `json:"out"`
	W   []float64 `json:"w"`
	B   []float64 `json:"b"`
}

// Network is a tanh MLP with a linear output layer.
type Network struct {
	Layers []Layer `json:"layers"`
}

// newNetwork builds an MLP through sizes (input first, output last) with
// LeCun-uniform weights and zero biases.
func newNetwork(sizes []int, r *rand.Rand) Network {
	var n Network
	for i := 0; i+1 < len(sizes); i++ {
		in, out := sizes[i], sizes[i+1]
		limit := math.Sqrt(3 / float64(in))
		w := make([]float64, in*out)
		for k := range w {
			w[k] = limit * (2*r.Float64() - 1)
		}
		n.Layers = append(n.Layers, Layer{In: in, Out: out, W: w, B: make([]float64, out)})
	}
	return n
}

func (n Network) clone() Network {
	out := Network{Layers: make([]Layer, len(n.Layers))}
	for i, l := range n.Layers {
		out.Layers[i] = Layer{
			In:  l.In,
			Out: l.Out,
			W:   append([]float64(nil), l.W...),
			B:   append([]float64(nil), l.B...),
		}
	}
	return out
}

// zeros returns a network of the same shape with zero parameters.
func (n Network) zeros() Network {
	out := Network{Layers: make([]Layer, len(n.Layers))}
	for i, l := range n.Layers {
		out.Layers[i] = Layer{In: l.In, Out: l.Out, W: make([]float64, len(l.W)), B: make([]float64, len(l.B))}
	}
	return out
}

func (n Network) inputSize() int  { return n.Layers[0].In }
func (n Network) outputSize() int { return n.Layers[len(n.Layers)-1].Out }

// forward evaluates a batch (one row per sample). cache holds the input and
// every layer's activation for backward.
func (n Network) forward(x *mat.Dense) (*mat.Dense, []*mat.Dense) {
	cache := make([]*mat.Dense, 0, len(n.Layers)+1)
	cache = append(cache, x)
	a := x
	for i, l := range n.Layers {
		w := mat.NewDense(l.Out, l.In, l.W)
		z := new(mat.Dense)
		z.Mul(a, w.T())
		last := i == len(n.Layers)-1
		b := l.B
		z.Apply(func(_, j int, v float64) float64 {
			if last {
				return v + b[j]
			}
			return math.Tanh(v + b[j])
		}, z)
		cache = append(cache, z)
		a = z
	}
	return a, cache
}

// apply evaluates a single input vector.
func (n Network) apply(x []float64) []float64 {
	out, _ := n.forward(mat.NewDense(1, len(x), append([]float64(nil), x...)))
	return mat.Row(nil, 0, out)
}

// backward accumulates parameter gradients into grad given dOut, the
// gradient of the loss with respect to the network output.
func (n Network) backward(cache []*mat.Dense, dOut *mat.Dense, grad Network) {
	d := dOut
	for i := len(n.Layers) - 1; i >= 0; i-- {
		l := n.Layers[i]
		if i < len(n.Layers)-1 {
			act := cache[i+1]
			dz := new(mat.Dense)
			dz.Apply(func(r, c int, v float64) float64 {
				a := act.At(r, c)
				return v * (1 - a*a)
			}, d)
			d = dz
		}

		dw := new(mat.Dense)
		dw.Mul(d.T(), cache[i])
		g := grad.Layers[i]
		gw := mat.NewDense(l.Out, l.In, g.W)
		gw.Add(gw, dw)
		rows, _ := d.Dims()
		for r := 0; r < rows; r++ {
			for c := 0; c < l.Out; c++ {
				g.B[c] += d.At(r, c)
			}
		}

		if i > 0 {
			dx := new(mat.Dense)
			dx.Mul(d, mat.NewDense(l.Out, l.In, l.W))
			d = dx
		}
	}
}

func (n Network) tensors() [][]float64 {
	out := make([][]float64, 0, 2*len(n.Layers))
	for _, l := range n.Layers {
		out = append(out, l.W, l.B)
	}
	return out
}
