package hmm

import (
	"errors"
	"testing"
)

// sliceReadSource is the simplest possible ReadSource: a fixed slice of
// reads, consumed front to back.
type sliceReadSource struct {
	reads [][]MoveKmer
	pos   int
}

func (s *sliceReadSource) HasNextRead() bool {
	return s.pos < len(s.reads)
}

func (s *sliceReadSource) NextRead() []MoveKmer {
	r := s.reads[s.pos]
	s.pos++
	return r
}

func TestConstructEmissionsK1(t *testing.T) {
	params := []GaussianParamsKmer{
		{Kmer: "G", Mu: 1, Sigma: 0.1},
		{Kmer: "A", Mu: 0, Sigma: 0.5},
		{Kmer: "T", Mu: 0.5, Sigma: 0.2},
		{Kmer: "C", Mu: 0.5, Sigma: 0.1},
	}
	states, err := ConstructEmissions(1, params)
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != 5 {
		t.Fatalf("expected 5 states but got %d", len(states))
	}
	if !states[0].IsSilent() {
		t.Error("expected state 0 to be silent")
	}
	expected := []State{
		{}, // unused, index 0 checked above
		testGaussian(0, 0.5),   // A
		testGaussian(0.5, 0.1), // C
		testGaussian(0.5, 0.2), // T
		testGaussian(1, 0.1),   // G
	}
	for id := 1; id <= 4; id++ {
		if !states[id].Equal(expected[id]) {
			t.Errorf("state %d: expected %v but got %v", id, expected[id], states[id])
		}
	}
}

func TestConstructEmissionsRejectsMissingKmer(t *testing.T) {
	params := []GaussianParamsKmer{
		{Kmer: "A", Mu: 0, Sigma: 1},
		{Kmer: "C", Mu: 0, Sigma: 1},
		{Kmer: "T", Mu: 0, Sigma: 1},
	}
	if _, err := ConstructEmissions(1, params); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput but got %v", err)
	}
}

func transitionProb(t *testing.T, transitions [][]Transition, codec *KmerCodec, from, to string) (float64, bool) {
	t.Helper()
	fromID, err := codec.StateID(from)
	if err != nil {
		t.Fatal(err)
	}
	toID, err := codec.StateID(to)
	if err != nil {
		t.Fatal(err)
	}
	for _, trans := range transitions[fromID] {
		if trans.ToState == toID {
			return trans.Prob.Value(), true
		}
	}
	return 0, false
}

func TestConstructTransitionsSmall(t *testing.T) {
	reads := &sliceReadSource{reads: [][]MoveKmer{{
		{Move: 0, Kmer: "AG"},
		{Move: 1, Kmer: "GA"},
		{Move: 1, Kmer: "AG"},
		{Move: 1, Kmer: "GA"},
		{Move: 1, Kmer: "AG"},
		{Move: 2, Kmer: "TG"},
	}}}

	transitions, err := ConstructTransitions(3, 1, 2, reads)
	if err != nil {
		t.Fatal(err)
	}
	if len(transitions) != 17 {
		t.Fatalf("expected 17 rows (16 kmers + initial) but got %d", len(transitions))
	}
	if len(transitions[0]) != 16 {
		t.Fatalf("expected 16 outgoing transitions from the initial state but got %d", len(transitions[0]))
	}
	for _, trans := range transitions[0] {
		if !approxEqual(trans.Prob.Value(), 1.0/16.0) {
			t.Errorf("expected uniform 1/16 but got %v", trans.Prob.Value())
		}
	}

	codec, _ := NewKmerCodec(2)
	if p, ok := transitionProb(t, transitions, codec, "AG", "GA"); !ok || !approxEqual(p, 3.0/19.0) {
		t.Errorf("AG->GA: expected 3/19 but got %v (found=%v)", p, ok)
	}
	if p, ok := transitionProb(t, transitions, codec, "AG", "TG"); !ok || !approxEqual(p, 2.0/19.0) {
		t.Errorf("AG->TG: expected 2/19 but got %v (found=%v)", p, ok)
	}
	if p, ok := transitionProb(t, transitions, codec, "AG", "AG"); !ok || !approxEqual(p, 1.0/19.0) {
		t.Errorf("AG->AG: expected 1/19 but got %v (found=%v)", p, ok)
	}
}

func TestConstructTransitionsMoveThresholdEnforced(t *testing.T) {
	reads := &sliceReadSource{reads: [][]MoveKmer{{
		{Move: 0, Kmer: "ACG"},
		{Move: 2, Kmer: "GTG"},
	}}}
	if _, err := ConstructTransitions(1, 1, 3, reads); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput but got %v", err)
	}
}

func TestConstructTransitionsInvariants(t *testing.T) {
	reads := &sliceReadSource{reads: [][]MoveKmer{{
		{Move: 0, Kmer: "AA"},
		{Move: 1, Kmer: "AC"},
		{Move: 2, Kmer: "CG"},
	}}}
	const moveThreshold, pseudoCount, k = 2, 1, 2

	transitions, err := ConstructTransitions(moveThreshold, pseudoCount, k, reads)
	if err != nil {
		t.Fatal(err)
	}
	codec, _ := NewKmerCodec(k)

	for s := 1; s <= codec.NumKmers(); s++ {
		kmer, _ := codec.KmerForState(s)
		reachable, err := codec.AllNextKmers(kmer, moveThreshold)
		if err != nil {
			t.Fatal(err)
		}
		if len(transitions[s]) != len(reachable) {
			t.Errorf("state %d (%s): expected %d outgoing transitions but got %d", s, kmer, len(reachable), len(transitions[s]))
		}
		var total float64
		for _, trans := range transitions[s] {
			total += trans.Prob.Value()
		}
		if !approxEqual(total, 1.0) {
			t.Errorf("state %d (%s): transition probabilities sum to %v, not 1", s, kmer, total)
		}
	}

	for _, trans := range transitions[0] {
		if !approxEqual(trans.Prob.Value(), 1.0/float64(codec.NumKmers())) {
			t.Errorf("initial transition to %d: expected uniform but got %v", trans.ToState, trans.Prob.Value())
		}
	}
}

func TestMoveModelBuilderBuild(t *testing.T) {
	params := make([]GaussianParamsKmer, 0, 4)
	for _, kmer := range []string{"A", "C", "T", "G"} {
		params = append(params, GaussianParamsKmer{Kmer: kmer, Mu: 0, Sigma: 1})
	}
	reads := &sliceReadSource{reads: [][]MoveKmer{{
		{Move: 0, Kmer: "A"},
		{Move: 1, Kmer: "C"},
		{Move: 1, Kmer: "T"},
	}}}
	builder := MoveModelBuilder{K: 1, MoveThreshold: 1, PseudoCount: 1}
	h, states, err := builder.Build(reads, params)
	if err != nil {
		t.Fatal(err)
	}
	if h.NumStates != 5 {
		t.Fatalf("expected 5 states but got %d", h.NumStates)
	}
	if len(states) != 5 {
		t.Fatalf("expected 5 states but got %d", len(states))
	}
}
