package hmm

import "errors"

// Sentinel error kinds. Call sites wrap these with fmt.Errorf("%w: ...", ErrX)
// so errors.Is classification survives an attached detail message.
var (
	// ErrInvalidInput covers a negative probability, a base character
	// outside {A,C,T,G}, a move exceeding the configured threshold, or
	// otherwise malformed training input.
	ErrInvalidInput = errors.New("hmm: invalid input")

	// ErrInvalidTopology covers a non-silent initial state, a transition
	// into the initial state, or a transition into a silent state from a
	// state with an equal or greater id.
	ErrInvalidTopology = errors.New("hmm: invalid topology")

	// ErrNoViablePath is returned by Viterbi when no state can be reached
	// from the initial state with positive probability after consuming
	// the full emission sequence.
	ErrNoViablePath = errors.New("hmm: no viable path")

	// ErrUnderflow is returned by Forward when a row's linear-scale
	// weights collapse to zero across every state.
	ErrUnderflow = errors.New("hmm: forward pass underflowed")

	// ErrDeserialization covers a serialized document missing a required
	// field or carrying an unknown state tag.
	ErrDeserialization = errors.New("hmm: deserialization error")
)
