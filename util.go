package hmm

import "math/rand"

// categorical is a cumulative-weight distribution over indices, built once
// from a slice of non-negative linear-scale weights and then sampled
// cheaply many times. It backs the posterior sampler's per-cell caching:
// one categorical is constructed per (i, s) cell and reused for every
// sample drawn in a single call.
type categorical struct {
	cumulative []float64
	total      float64
}

func newCategorical(weights []float64) categorical {
	cumulative := make([]float64, len(weights))
	var total float64
	for i, w := range weights {
		total += w
		cumulative[i] = total
	}
	return categorical{cumulative: cumulative, total: total}
}

// sample draws an index proportional to the weights the categorical was
// built from. Panics if every weight was zero: callers must not invoke
// sample on a cell with no positive mass.
func (c categorical) sample(rng *rand.Rand) int {
	if c.total <= 0 {
		panic("hmm: cannot sample from a categorical with zero total weight")
	}
	target := rng.Float64() * c.total
	for i, cum := range c.cumulative {
		if target < cum {
			return i
		}
	}
	return len(c.cumulative) - 1
}
