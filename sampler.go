package hmm

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// ForwardMatrix is the dynamic-programming table used both to report the
// total forward probability mass and to drive posterior path sampling
// (forward-filtering backward-sampling). Cell (i, s, k) holds the total
// probability mass of paths ending at state s after i observations via
// incoming edge k (k indexes HMM.InvTransitions[s]).
//
// Weights are kept in linear scale rather than log scale: each cell is
// bounded above by 1, and linear weights are what a categorical sampler
// needs directly, avoiding an exp() per draw.
type ForwardMatrix struct {
	hmm          *HMM
	numEmissions int
	// weights[i][s] is nil for the initial state (which has no incoming
	// edges by topology invariant) and for any other state with no
	// incoming edges at all; otherwise it has one entry per edge in
	// hmm.InvTransitions[s].
	weights [][][]float64
}

// Forward computes the forward matrix for emissions against the HMM's
// topology and the states array it was built from.
//
// F[0][initialState] is a virtual entry of weight 1 representing zero
// emissions consumed; since no transition may target the initial state,
// this value is never stored in the table itself but is folded in by
// sumIncoming wherever a recurrence reads from the initial state.
//
// If a row's total mass collapses to zero while earlier rows carried mass,
// Forward reports ErrUnderflow rather than silently returning a matrix
// every later sample would fail against.
func (h *HMM) Forward(states []State, emissions []float64) (*ForwardMatrix, error) {
	if err := h.checkStates(states); err != nil {
		return nil, err
	}
	n := len(emissions)
	fm := &ForwardMatrix{hmm: h, numEmissions: n, weights: make([][][]float64, n+1)}

	for i := 0; i <= n; i++ {
		fm.weights[i] = make([][]float64, h.NumStates)
		for s := 0; s < h.NumStates; s++ {
			if s == h.InitialState {
				continue
			}
			incoming := h.InvTransitions[s]
			if len(incoming) == 0 {
				continue
			}
			w := make([]float64, len(incoming))
			silent := states[s].IsSilent()
			for k, edge := range incoming {
				src := edge.ToState
				var base float64
				switch {
				case silent:
					base = fm.sumIncoming(i, src)
				case i == 0:
					base = 0
				default:
					base = fm.sumIncoming(i-1, src)
				}
				val := edge.Prob.Value() * base
				if !silent && i > 0 {
					val *= states[s].Prob(emissions[i-1]).Value()
				}
				w[k] = val
			}
			fm.weights[i][s] = w
		}
		if i >= 1 && fm.rowMass(i) == 0 {
			return nil, fmt.Errorf("%w: row %d collapsed to zero mass", ErrUnderflow, i)
		}
	}
	return fm, nil
}

// sumIncoming returns the total incoming weight at state s after i
// observations (sum over k of F[i][s][k]), treating the initial state's
// virtual weight specially.
func (fm *ForwardMatrix) sumIncoming(i, s int) float64 {
	if s == fm.hmm.InitialState {
		if i == 0 {
			return 1
		}
		return 0
	}
	weights := fm.weights[i][s]
	if len(weights) == 0 {
		return 0
	}
	return floats.Sum(weights)
}

func (fm *ForwardMatrix) rowMass(i int) float64 {
	perState := make([]float64, fm.hmm.NumStates)
	for s := 0; s < fm.hmm.NumStates; s++ {
		perState[s] = fm.sumIncoming(i, s)
	}
	return floats.Sum(perState)
}

// Sample draws numSamples independent paths from the posterior
// distribution over hidden state sequences given the emissions, using
// forward-filtering backward-sampling against the already-computed
// forward matrix. rng is owned by the caller: no process-wide random
// state is touched, so concurrent calls with distinct *rand.Rand values
// are safe.
func (fm *ForwardMatrix) Sample(states []State, numSamples int, rng *rand.Rand) ([][]int, error) {
	if err := fm.hmm.checkStates(states); err != nil {
		return nil, err
	}

	terminalWeights := make([]float64, fm.hmm.NumStates)
	for s := 0; s < fm.hmm.NumStates; s++ {
		terminalWeights[s] = fm.sumIncoming(fm.numEmissions, s)
	}
	terminal := newCategorical(terminalWeights)

	// Built once per (i, s) cell and reused across every sample drawn
	// in this call.
	cache := map[[2]int]categorical{}
	cellDist := func(i, s int) categorical {
		key := [2]int{i, s}
		if c, ok := cache[key]; ok {
			return c
		}
		c := newCategorical(fm.weights[i][s])
		cache[key] = c
		return c
	}

	samples := make([][]int, numSamples)
	for n := 0; n < numSamples; n++ {
		s := terminal.sample(rng)
		path := []int{s}
		i := fm.numEmissions
		for !(i == 0 && s == fm.hmm.InitialState) {
			k := cellDist(i, s).sample(rng)
			src := fm.hmm.InvTransitions[s][k].ToState
			path = append(path, src)
			if states[s].IsSilent() {
				s = src
			} else {
				s = src
				i--
			}
		}
		reverseInts(path)
		samples[n] = path
	}
	return samples, nil
}
