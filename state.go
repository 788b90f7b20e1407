package hmm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// StateKind tags which emission behavior a State has.
type StateKind int

const (
	// Silent states emit nothing; their emission probability is the
	// multiplicative identity for any observation.
	Silent StateKind = iota
	// Gaussian states emit a real-valued observation drawn from N(Mu, Sigma^2).
	Gaussian
)

// State is a polymorphic emission unit: a silent variant that emits
// nothing, and a Gaussian variant over a real-valued observation.
//
// New emission kinds extend StateKind and the per-kind branches in Prob,
// Equal, String and the document tags of NewDocument/ToHMM; this mirrors the source's virtual-base-class State
// hierarchy re-architected as a tagged variant.
type State struct {
	Kind  StateKind
	Mu    float64
	Sigma float64
}

// NewSilentState returns a State that emits nothing.
func NewSilentState() State {
	return State{Kind: Silent}
}

// NewGaussianState returns a State emitting N(mu, sigma^2). sigma must be
// strictly positive.
func NewGaussianState(mu, sigma float64) (State, error) {
	if sigma <= 0 {
		return State{}, fmt.Errorf("%w: gaussian state sigma must be positive, got %v", ErrInvalidInput, sigma)
	}
	return State{Kind: Gaussian, Mu: mu, Sigma: sigma}, nil
}

// IsSilent reports whether the state emits nothing.
func (s State) IsSilent() bool {
	return s.Kind == Silent
}

// Prob returns the emission probability of x in this state, in log-space.
// A silent state always returns One(); a Gaussian state returns the
// density of N(Mu, Sigma^2) at x, converted from natural log to base 2.
func (s State) Prob(x float64) LogProb {
	if s.IsSilent() {
		return One()
	}
	dist := distuv.Normal{Mu: s.Mu, Sigma: s.Sigma}
	return fromLog2(dist.LogProb(x) / math.Ln2)
}

// Equal reports whether s and other are the same variant with the same
// parameters.
func (s State) Equal(other State) bool {
	if s.Kind != other.Kind {
		return false
	}
	if s.Kind == Silent {
		return true
	}
	return s.Mu == other.Mu && s.Sigma == other.Sigma
}

func (s State) String() string {
	if s.IsSilent() {
		return "Silent"
	}
	return fmt.Sprintf("Gaussian(mu=%v, sigma=%v)", s.Mu, s.Sigma)
}
