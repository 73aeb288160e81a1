package ppo

import "math"

const (
	adamBeta1 = 0.9
	adamBeta2 = 0.999
	adamEps   = 1e-8
)

type adam struct {
	lr   float64
	step int
	m    [][]float64
	v    [][]float64
}

func newAdam(lr float64, shapes [][]float64) *adam {
	a := &adam{lr: lr}
	for _, s := range shapes {
		a.m = append(a.m, make([]float64, len(s)))
		a.v = append(a.v, make([]float64, len(s)))
	}
	return a
}

// update applies one Adam step to params in place.
func (a *adam) update(params, grads [][]float64) {
	a.step++
	c1 := 1 - math.Pow(adamBeta1, float64(a.step))
	c2 := 1 - math.Pow(adamBeta2, float64(a.step))
	for t := range params {
		p, g, m, v := params[t], grads[t], a.m[t], a.v[t]
		for i := range p {
			m[i] = adamBeta1*m[i] + (1-adamBeta1)*g[i]
			v[i] = adamBeta2*v[i] + (1-adamBeta2)*g[i]*g[i]
			p[i] -= a.lr * (m[i] / c1) / (math.Sqrt(v[i]/c2) + adamEps)
		}
	}
}
