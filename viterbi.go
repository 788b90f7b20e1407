package hmm

import "fmt"

// noState marks the absence of a predecessor: the initial cell of row 0,
// or a cell that no positive-probability path reaches.
const noState = -1

// viterbiCell holds the best probability of any path reaching a state
// after a given number of observations, plus the predecessor state id on
// that path.
type viterbiCell struct {
	prob LogProb
	pred int
}

// Viterbi computes the single most probable hidden state path explaining
// emissions, given the HMM's topology and the states array it was built
// from.
//
// The "steps" dimension counts observations consumed, not transitions:
// silent states are traversed without incrementing it, while an emitting
// state entered at step i emits emissions[i-1]. Evaluating a row in
// ascending state id covers both recurrences, because a silent
// destination's sources all have smaller ids (by topology invariant 3)
// and an emitting destination reads only from the previous row.
//
// If no state is reachable from the initial state with positive
// probability after consuming the whole sequence, Viterbi returns
// ErrNoViablePath.
func (h *HMM) Viterbi(states []State, emissions []float64) ([]int, error) {
	if err := h.checkStates(states); err != nil {
		return nil, err
	}
	n := len(emissions)
	rows := make([][]viterbiCell, n+1)
	for i := range rows {
		rows[i] = make([]viterbiCell, h.NumStates)
	}
	rows[0][h.InitialState] = viterbiCell{prob: One(), pred: noState}

	for i := 0; i <= n; i++ {
		row := rows[i]
		for s := 0; s < h.NumStates; s++ {
			if i == 0 && s == h.InitialState {
				continue
			}
			if states[s].IsSilent() {
				row[s] = h.bestIncoming(row, h.InvTransitions[s])
				continue
			}
			if i == 0 {
				row[s] = viterbiCell{prob: Zero(), pred: noState}
				continue
			}
			best := h.bestIncoming(rows[i-1], h.InvTransitions[s])
			row[s] = viterbiCell{
				prob: best.prob.Mul(states[s].Prob(emissions[i-1])),
				pred: best.pred,
			}
		}
	}

	bestState, bestProb := h.InitialState, Zero()
	for s := 0; s < h.NumStates; s++ {
		if rows[n][s].prob.Compare(bestProb) > 0 {
			bestState, bestProb = s, rows[n][s].prob
		}
	}
	if bestProb.IsZero() {
		return nil, fmt.Errorf("%w: no state reachable after %d emissions", ErrNoViablePath, n)
	}

	return backtrack(h, states, rows, n, bestState), nil
}

// bestIncoming scans the candidates' row in ascending source-id order (the
// order InvTransitions was built in) and keeps the first strict maximum,
// which implements the "smallest predecessor id" tie-break.
func (h *HMM) bestIncoming(row []viterbiCell, incoming []Transition) viterbiCell {
	best := viterbiCell{prob: Zero(), pred: noState}
	for _, edge := range incoming {
		src := edge.ToState // reinterpreted as source id in InvTransitions
		cand := row[src].prob.Mul(edge.Prob)
		if cand.Compare(best.prob) > 0 {
			best = viterbiCell{prob: cand, pred: src}
		}
	}
	return best
}

// backtrack follows stored predecessors from (n, bestState) back to the
// initial state at row 0, stepping back a row only when leaving an
// emitting state (a silent predecessor lives in the same row).
func backtrack(h *HMM, states []State, rows [][]viterbiCell, n, bestState int) []int {
	path := []int{}
	i, s := n, bestState
	for {
		path = append(path, s)
		if i == 0 && s == h.InitialState {
			break
		}
		pred := rows[i][s].pred
		if states[s].IsSilent() {
			s = pred
		} else {
			s = pred
			i--
		}
	}
	reverseInts(path)
	return path
}

func reverseInts(xs []int) {
	for i, j := 0, len(xs)-1; i < j; i, j = i+1, j-1 {
		xs[i], xs[j] = xs[j], xs[i]
	}
}

func (h *HMM) checkStates(states []State) error {
	if len(states) != h.NumStates {
		return fmt.Errorf("%w: %d states supplied for an HMM with %d states", ErrInvalidInput, len(states), h.NumStates)
	}
	return nil
}
