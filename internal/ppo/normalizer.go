package ppo

import "math"

// Normalizer tracks running observation statistics.
type Normalizer struct {
	Enabled bool      `json:"enabled"`
	Count   float64   `json:"count"`
	Mean    []float64 `json:"mean"`
	M2      []float64 `json:"m2"`
}

const minStd = 1e-6

func newNormalizer(size int, enabled bool) Normalizer {
	return Normalizer{Enabled: enabled, Mean: make([]float64, size), M2: make([]float64, size)}
}

func (n Normalizer) clone() Normalizer {
	return Normalizer{
		Enabled: n.Enabled,
		Count:   n.Count,
		Mean:    append([]float64(nil), n.Mean...),
		M2:      append([]float64(nil), n.M2...),
	}
}

// Update folds a batch into the statistics with Chan's parallel update.
func (n *Normalizer) Update(batch [][]float64) {
	if !n.Enabled || len(batch) == 0 {
		return
	}
	nb := float64(len(batch))
	for k := range n.Mean {
		mean := 0.0
		for _, x := range batch {
			mean += x[k]
		}
		mean /= nb
		m2 := 0.0
		for _, x := range batch {
			d := x[k] - mean
			m2 += d * d
		}

		delta := mean - n.Mean[k]
		total := n.Count + nb
		n.Mean[k] += delta * nb / total
		n.M2[k] += m2 + delta*delta*n.Count*nb/total
	}
	n.Count += nb
}

// Normalize returns a normalised copy of obs.
func (n Normalizer) Normalize(obs []float64) []float64 {
	out := append([]float64(nil), obs...)
	if !n.Enabled || n.Count == 0 {
		return out
	}
	for k := range out {
		std := math.Sqrt(n.M2[k] / n.Count)
		if std < minStd {
			std = minStd
		}
		out[k] = (out[k] - n.Mean[k]) / std
	}
	return out
}
