package hmm

import (
	"errors"
	"testing"
)

// testGaussian builds a Gaussian state, panicking on the (statically
// impossible, sigma>0) error, purely to keep test tables terse.
func testGaussian(mu, sigma float64) State {
	s, err := NewGaussianState(mu, sigma)
	if err != nil {
		panic(err)
	}
	return s
}

func TestNewHMMRejectsNonSilentInitial(t *testing.T) {
	states := []State{testGaussian(0, 1)}
	transitions := [][]Transition{{}}
	if _, err := NewHMM(0, transitions, states); !errors.Is(err, ErrInvalidTopology) {
		t.Fatalf("expected ErrInvalidTopology but got %v", err)
	}
}

func TestNewHMMRejectsTransitionIntoInitial(t *testing.T) {
	states := []State{NewSilentState(), testGaussian(0, 1)}
	transitions := [][]Transition{
		{{ToState: 1, Prob: One()}},
		{{ToState: 0, Prob: One()}},
	}
	if _, err := NewHMM(0, transitions, states); !errors.Is(err, ErrInvalidTopology) {
		t.Fatalf("expected ErrInvalidTopology but got %v", err)
	}
}

func TestNewHMMRejectsBackwardSilentTransition(t *testing.T) {
	// State 1 is silent and state 2 emits; the edge 2->1 enters a silent
	// state from a higher id, which violates s<t.
	states := []State{NewSilentState(), NewSilentState(), testGaussian(0, 1)}
	transitions := [][]Transition{
		{{ToState: 2, Prob: One()}},
		{},
		{{ToState: 1, Prob: One()}},
	}
	if _, err := NewHMM(0, transitions, states); !errors.Is(err, ErrInvalidTopology) {
		t.Fatalf("expected ErrInvalidTopology but got %v", err)
	}
}

func TestNewHMMAccepts(t *testing.T) {
	states := []State{NewSilentState(), testGaussian(0, 1), testGaussian(1, 1)}
	transitions := [][]Transition{
		{{ToState: 1, Prob: One()}},
		{{ToState: 2, Prob: One()}},
		{},
	}
	h, err := NewHMM(0, transitions, states)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.NumStates != 3 {
		t.Errorf("expected 3 states but got %d", h.NumStates)
	}
}

func TestInvTransitionsMatchForward(t *testing.T) {
	states := []State{NewSilentState(), testGaussian(0, 1), testGaussian(1, 1)}
	p01 := mustLogProb(t, 0.3)
	p12 := mustLogProb(t, 0.7)
	transitions := [][]Transition{
		{{ToState: 1, Prob: p01}},
		{{ToState: 2, Prob: p12}},
		{},
	}
	h, err := NewHMM(0, transitions, states)
	if err != nil {
		t.Fatal(err)
	}
	for s, outgoing := range h.Transitions {
		for _, trans := range outgoing {
			found := false
			for _, inv := range h.InvTransitions[trans.ToState] {
				if inv.ToState == s && inv.Prob.Compare(trans.Prob) == 0 {
					found = true
				}
			}
			if !found {
				t.Errorf("edge %d->%d missing from InvTransitions[%d]", s, trans.ToState, trans.ToState)
			}
		}
	}
}
