package ppo

// gae computes value targets and advantages for one unroll. Truncated steps
// are masked out; terminated steps do not bootstrap.
func gae(rewards, values []float64, bootstrap float64, terminated, truncated []bool, discount, lambda float64) (vs, adv []float64) {
	n := len(rewards)
	vs = make([]float64, n)
	adv = make([]float64, n)

	next := func(xs []float64, t int) float64 {
		if t+1 < n {
			return xs[t+1]
		}
		return bootstrap
	}
	mask := func(b bool) float64 {
		if b {
			return 0
		}
		return 1
	}

	acc := 0.0
	for t := n - 1; t >= 0; t-- {
		cont := discount * mask(terminated[t])
		keep := mask(truncated[t])
		delta := (rewards[t] + cont*next(values, t) - values[t]) * keep
		acc = delta + cont*keep*lambda*acc
		vs[t] = acc + values[t]
	}
	for t := 0; t < n; t++ {
		cont := discount * mask(terminated[t])
		adv[t] = (rewards[t] + cont*next(vs, t) - values[t]) * mask(truncated[t])
	}
	return vs, adv
}
