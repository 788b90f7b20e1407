package hmm

import (
	"fmt"
	"math"
)

// LogProb is a non-negative real number carried by its base-2 logarithm, so
// that products of many small probabilities (as occur along a long Viterbi
// or forward path) never underflow the way a plain float64 product would.
//
// The zero value of LogProb represents 1 (it equals One()), not 0; use
// Zero() for the value 0.
type LogProb struct {
	isZero bool
	log2   float64
}

// Zero returns the LogProb representing the value 0.
func Zero() LogProb {
	return LogProb{isZero: true}
}

// One returns the LogProb representing the value 1 (the multiplicative
// identity), used as the emission probability of a silent state.
func One() LogProb {
	return LogProb{log2: 0}
}

// NewLogProb constructs a LogProb from a real number. Negative values are a
// precondition violation.
func NewLogProb(x float64) (LogProb, error) {
	if x < 0 {
		return LogProb{}, fmt.Errorf("%w: negative probability %v", ErrInvalidInput, x)
	}
	if x == 0 {
		return Zero(), nil
	}
	return LogProb{log2: math.Log2(x)}, nil
}

// fromLog2 constructs a LogProb directly from a base-2 logarithm, skipping
// the exp/log round trip NewLogProb would otherwise require. Used where the
// log is already known to be finite, e.g. a Gaussian log-density.
func fromLog2(log2x float64) LogProb {
	return LogProb{log2: log2x}
}

// IsZero reports whether the LogProb represents the value 0.
func (p LogProb) IsZero() bool {
	return p.isZero
}

// Mul returns p*q. If either operand is zero, the result is zero; otherwise
// the logarithms add.
func (p LogProb) Mul(q LogProb) LogProb {
	if p.isZero || q.isZero {
		return Zero()
	}
	return fromLog2(p.log2 + q.log2)
}

// Add returns p+q via log-sum-exp in base 2. If one operand is zero, the
// other is returned unchanged.
func (p LogProb) Add(q LogProb) LogProb {
	if p.isZero {
		return q
	}
	if q.isZero {
		return p
	}
	return fromLog2(addLog2(p.log2, q.log2))
}

// Compare orders LogProb values, with Zero as the minimum. It returns a
// negative number, zero, or a positive number, matching the cmp.Compare
// convention.
func (p LogProb) Compare(q LogProb) int {
	if p.isZero && q.isZero {
		return 0
	}
	if p.isZero {
		return -1
	}
	if q.isZero {
		return 1
	}
	switch {
	case p.log2 < q.log2:
		return -1
	case p.log2 > q.log2:
		return 1
	default:
		return 0
	}
}

// Less reports whether p orders strictly before q.
func (p LogProb) Less(q LogProb) bool {
	return p.Compare(q) < 0
}

// Value converts back to a real number via exponentiation. Very negative
// logs may underflow to 0.0; this is acceptable at the boundary where a
// LogProb is finally reported to a caller.
func (p LogProb) Value() float64 {
	if p.isZero {
		return 0
	}
	return math.Exp2(p.log2)
}

// String renders the linear value, mainly so LogProb reads naturally in
// test failure messages via %v.
func (p LogProb) String() string {
	if p.isZero {
		return "0"
	}
	return fmt.Sprintf("%v", p.Value())
}

// addLog2 computes log2(2^a + 2^b) without leaving log-space, using the
// standard log-sum-exp shift: max + log2(1 + 2^(min-max)).
func addLog2(a, b float64) float64 {
	hi, lo := a, b
	if lo > hi {
		hi, lo = lo, hi
	}
	return hi + math.Log2(1+math.Exp2(lo-hi))
}
