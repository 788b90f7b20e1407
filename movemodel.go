package hmm

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// MoveKmer is one (move, k-mer) call in a training read: move is the
// number of bases the basecaller advanced from the previous k-mer call.
type MoveKmer struct {
	Move int
	Kmer string
}

// ReadSource abstractly yields training reads. It is exhausted once
// HasNextRead returns false; NextRead must not be called past that point.
type ReadSource interface {
	HasNextRead() bool
	NextRead() []MoveKmer
}

// GaussianParamsKmer is a per-k-mer Gaussian emission parameter record
// supplied to ConstructEmissions, typically fit upstream from labelled
// nanopore signal segments.
type GaussianParamsKmer struct {
	Kmer  string
	Mu    float64
	Sigma float64
}

// ConstructEmissions builds the length-(4^k + 1) states array for a k-mer
// HMM: index 0 is the silent initial state, and the state id of each
// k-mer (per KmerCodec.StateID) is populated with a Gaussian state from
// params. params must cover every k-mer exactly once.
func ConstructEmissions(k int, params []GaussianParamsKmer) ([]State, error) {
	codec, err := NewKmerCodec(k)
	if err != nil {
		return nil, err
	}
	numKmers := codec.NumKmers()
	if len(params) != numKmers {
		return nil, fmt.Errorf("%w: expected %d gaussian params for k=%d, got %d", ErrInvalidInput, numKmers, k, len(params))
	}

	states := make([]State, numKmers+1)
	states[0] = NewSilentState()
	seen := make([]bool, numKmers+1)
	for _, p := range params {
		id, err := codec.StateID(p.Kmer)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: k-mer %q supplied more than once", ErrInvalidInput, p.Kmer)
		}
		seen[id] = true
		g, err := NewGaussianState(p.Mu, p.Sigma)
		if err != nil {
			return nil, err
		}
		states[id] = g
	}
	for id := 1; id <= numKmers; id++ {
		if !seen[id] {
			kmer, _ := codec.KmerForState(id)
			return nil, fmt.Errorf("%w: missing gaussian params for k-mer %q", ErrInvalidInput, kmer)
		}
	}
	return states, nil
}

// ConstructTransitions builds the length-(4^k + 1) outgoing-transitions
// table for a k-mer HMM from training reads, using move-distance
// constraints and pseudocount smoothing.
//
// For each emitting state s, its reachable set N(s) is every k-mer within
// moveThreshold moves of decode(s) (always including decode(s) itself);
// the probability of s->t is (pseudoCount + observed count(s,t)) /
// (sum over N(s) of pseudoCount + observed count). The initial state gets
// a uniform transition to every k-mer.
//
// Destinations within each state's row are ordered by ascending state id,
// so that InvTransitions (and therefore the forward matrix's incoming-edge
// indexing used by posterior sampling) is reproducible across runs that
// supply the same reads in the same order.
func ConstructTransitions(moveThreshold, pseudoCount, k int, reads ReadSource) ([][]Transition, error) {
	codec, err := NewKmerCodec(k)
	if err != nil {
		return nil, err
	}
	numKmers := codec.NumKmers()
	numStates := numKmers + 1

	counts := map[[2]int]int{}
	for reads.HasNextRead() {
		read := reads.NextRead()
		for i := 1; i < len(read); i++ {
			if read[i].Move > moveThreshold {
				return nil, fmt.Errorf("%w: found move %d longer than %d", ErrInvalidInput, read[i].Move, moveThreshold)
			}
			prevID, err := codec.StateID(read[i-1].Kmer)
			if err != nil {
				return nil, err
			}
			currID, err := codec.StateID(read[i].Kmer)
			if err != nil {
				return nil, err
			}
			counts[[2]int{prevID, currID}]++
		}
	}

	transitions := make([][]Transition, numStates)
	for s := 1; s < numStates; s++ {
		kmer, err := codec.KmerForState(s)
		if err != nil {
			return nil, err
		}
		reachable, err := codec.AllNextKmers(kmer, moveThreshold)
		if err != nil {
			return nil, err
		}
		destIDs := make([]int, 0, len(reachable))
		for next := range reachable {
			id, err := codec.StateID(next)
			if err != nil {
				return nil, err
			}
			destIDs = append(destIDs, id)
		}
		sort.Ints(destIDs)

		rowCounts := make([]float64, len(destIDs))
		for i, t := range destIDs {
			rowCounts[i] = float64(pseudoCount + counts[[2]int{s, t}])
		}
		total := floats.Sum(rowCounts)

		row := make([]Transition, len(destIDs))
		for i, t := range destIDs {
			prob, err := NewLogProb(rowCounts[i] / total)
			if err != nil {
				return nil, err
			}
			row[i] = Transition{ToState: t, Prob: prob}
		}
		transitions[s] = row
	}

	uniform, err := NewLogProb(1.0 / float64(numKmers))
	if err != nil {
		return nil, err
	}
	initial := make([]Transition, numKmers)
	for id := 1; id <= numKmers; id++ {
		initial[id-1] = Transition{ToState: id, Prob: uniform}
	}
	transitions[0] = initial

	return transitions, nil
}

// MoveModelBuilder bundles the parameters needed to train a k-mer HMM from
// annotated reads, gluing ConstructEmissions and ConstructTransitions into
// a single validated HMM.
type MoveModelBuilder struct {
	K             int
	MoveThreshold int
	PseudoCount   int
}

// Build trains a k-mer HMM: transitions come from reads, emission
// parameters come from params (one Gaussian per k-mer, supplied
// separately since the builder does not fit emission parameters itself —
// see the no-Baum-Welch non-goal).
func (b MoveModelBuilder) Build(reads ReadSource, params []GaussianParamsKmer) (*HMM, []State, error) {
	states, err := ConstructEmissions(b.K, params)
	if err != nil {
		return nil, nil, err
	}
	transitions, err := ConstructTransitions(b.MoveThreshold, b.PseudoCount, b.K, reads)
	if err != nil {
		return nil, nil, err
	}
	h, err := NewHMM(0, transitions, states)
	if err != nil {
		return nil, nil, err
	}
	return h, states, nil
}
