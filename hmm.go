package hmm

import "fmt"

// Transition is an edge to ToState carrying log-probability Prob.
// Inside HMM.Transitions, ToState is the destination state id; inside
// HMM.InvTransitions, ToState is reinterpreted as the source state id (see
// NewHMM).
type Transition struct {
	ToState int
	Prob    LogProb
}

// HMM is a hidden Markov model whose topology may mix silent
// (non-emitting) states with emitting states. It is constructed once and
// then used read-only for an arbitrary number of inference calls; States
// are owned by the caller and passed into each inference call separately.
type HMM struct {
	// InitialState is the id of the (necessarily silent) initial state.
	InitialState int

	// NumStates is the number of states, including the initial state.
	NumStates int

	// Transitions[s] lists the outgoing edges from state s, in the order
	// they were supplied to NewHMM.
	Transitions [][]Transition

	// InvTransitions[s] lists the edges incoming to s, derived from
	// Transitions. Entry k's ToState field holds the source state id of
	// the k-th incoming edge; this k is the index used by the forward
	// matrix (see Forward).
	InvTransitions [][]Transition
}

// NewHMM validates topology and builds the inverse-transition index.
//
// Three invariants are checked, matching the single-pass ascending-id
// dynamic program that Viterbi and Forward rely on:
//  1. The initial state is silent.
//  2. No transition targets the initial state.
//  3. For every transition s -> t where t is silent, s < t.
//
// states must have length equal to len(transitions); it is consulted only
// to determine which states are silent.
func NewHMM(initialState int, transitions [][]Transition, states []State) (*HMM, error) {
	numStates := len(transitions)
	if len(states) != numStates {
		return nil, fmt.Errorf("%w: %d states supplied for %d transition rows", ErrInvalidInput, len(states), numStates)
	}
	if initialState < 0 || initialState >= numStates {
		return nil, fmt.Errorf("%w: initial state %d out of range [0,%d)", ErrInvalidTopology, initialState, numStates)
	}
	if !states[initialState].IsSilent() {
		return nil, fmt.Errorf("%w: initial state %d is not silent", ErrInvalidTopology, initialState)
	}
	for s, outgoing := range transitions {
		for _, t := range outgoing {
			if t.ToState == initialState {
				return nil, fmt.Errorf("%w: transition %d->%d targets the initial state", ErrInvalidTopology, s, t.ToState)
			}
			if states[t.ToState].IsSilent() && !(s < t.ToState) {
				return nil, fmt.Errorf("%w: transition %d->%d targets a silent state without s<t", ErrInvalidTopology, s, t.ToState)
			}
		}
	}

	h := &HMM{
		InitialState: initialState,
		NumStates:    numStates,
		Transitions:  transitions,
	}
	h.InvTransitions = computeInvTransitions(transitions)
	return h, nil
}

// computeInvTransitions scans Transitions once, in ascending source-state
// order, so that InvTransitions[t] lists its incoming edges in ascending
// source-id order. Viterbi's tie-break (smallest predecessor id) and the
// forward matrix's edge indexing both depend on this order.
func computeInvTransitions(transitions [][]Transition) [][]Transition {
	inv := make([][]Transition, len(transitions))
	for s, outgoing := range transitions {
		for _, t := range outgoing {
			inv[t.ToState] = append(inv[t.ToState], Transition{ToState: s, Prob: t.Prob})
		}
	}
	return inv
}
