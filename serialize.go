package hmm

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/unixpickle/essentials"
)

// Document is the JSON wire representation of an HMM and its emission
// states: initial_state, number_of_states, states (by ascending id) and
// transitions (one row per state, also by ascending id).
type Document struct {
	InitialState   int                    `json:"initial_state"`
	NumberOfStates int                    `json:"number_of_states"`
	States         []StateDocument        `json:"states"`
	Transitions    [][]TransitionDocument `json:"transitions"`
}

// StateDocument describes one emission state. Tag is "SilentState" or
// "GaussianState"; Mu and Sigma are only meaningful for "GaussianState" and
// are omitted from silent states.
type StateDocument struct {
	Tag   string  `json:"tag"`
	Mu    float64 `json:"mu,omitempty"`
	Sigma float64 `json:"sigma,omitempty"`
}

// TransitionDocument is one outgoing edge, with its probability stored in
// linear scale (not log2) for readability and interop with tooling that
// does not speak log probabilities.
type TransitionDocument struct {
	ToState int     `json:"to_state"`
	Prob    float64 `json:"prob"`
}

const (
	tagSilent   = "SilentState"
	tagGaussian = "GaussianState"
)

// NewDocument builds the wire representation of h and its emission states.
func NewDocument(h *HMM, states []State) (*Document, error) {
	if err := h.checkStates(states); err != nil {
		return nil, err
	}
	d := &Document{
		InitialState:   h.InitialState,
		NumberOfStates: h.NumStates,
		States:         make([]StateDocument, h.NumStates),
		Transitions:    make([][]TransitionDocument, h.NumStates),
	}
	for i, s := range states {
		if s.IsSilent() {
			d.States[i] = StateDocument{Tag: tagSilent}
		} else {
			d.States[i] = StateDocument{Tag: tagGaussian, Mu: s.Mu, Sigma: s.Sigma}
		}
	}
	for i, row := range h.Transitions {
		docRow := make([]TransitionDocument, len(row))
		for j, trans := range row {
			docRow[j] = TransitionDocument{ToState: trans.ToState, Prob: trans.Prob.Value()}
		}
		d.Transitions[i] = docRow
	}
	return d, nil
}

// ToHMM reconstructs the HMM and states a Document describes, revalidating
// the topology invariants exactly as NewHMM does for any other caller.
func (d *Document) ToHMM() (h *HMM, states []State, err error) {
	defer essentials.AddCtxTo("convert document to HMM", &err)

	if d.NumberOfStates != len(d.States) || d.NumberOfStates != len(d.Transitions) {
		return nil, nil, fmt.Errorf("%w: number_of_states=%d but have %d states and %d transition rows",
			ErrDeserialization, d.NumberOfStates, len(d.States), len(d.Transitions))
	}

	states = make([]State, len(d.States))
	for i, sd := range d.States {
		switch sd.Tag {
		case tagSilent:
			states[i] = NewSilentState()
		case tagGaussian:
			g, err := NewGaussianState(sd.Mu, sd.Sigma)
			if err != nil {
				return nil, nil, err
			}
			states[i] = g
		default:
			return nil, nil, fmt.Errorf("%w: unknown state tag %q", ErrDeserialization, sd.Tag)
		}
	}

	transitions := make([][]Transition, len(d.Transitions))
	for i, row := range d.Transitions {
		outRow := make([]Transition, len(row))
		for j, td := range row {
			prob, err := NewLogProb(td.Prob)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %v", ErrDeserialization, err)
			}
			outRow[j] = Transition{ToState: td.ToState, Prob: prob}
		}
		transitions[i] = outRow
	}

	h, err = NewHMM(d.InitialState, transitions, states)
	if err != nil {
		return nil, nil, err
	}
	return h, states, nil
}

// LoadDocument reads and parses a Document from r without validating HMM
// topology; call ToHMM for that. A document lacking any of initial_state,
// number_of_states, states or transitions fails with ErrDeserialization.
func LoadDocument(r io.Reader) (doc *Document, err error) {
	defer essentials.AddCtxTo("load document", &err)

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeserialization, err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeserialization, err)
	}
	for _, name := range []string{"initial_state", "number_of_states", "states", "transitions"} {
		if _, ok := fields[name]; !ok {
			return nil, fmt.Errorf("%w: missing field %q", ErrDeserialization, name)
		}
	}
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeserialization, err)
	}
	return &d, nil
}

// Save writes d to w as indented JSON.
func (d *Document) Save(w io.Writer) (err error) {
	defer essentials.AddCtxTo("save document", &err)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}
