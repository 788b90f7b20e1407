package hmm

import (
	"fmt"
	"strings"
)

// bases is the alphabet ordering used throughout this package: A<C<T<G.
// KmerCodec's encoding and the move-model builder's state ids both rely on
// this exact ordering.
const bases = "ACTG"

// KmerCodec converts between DNA k-mers over {A,C,T,G} and a dense
// lexicographic integer index, and back.
//
// Encoding of a k-mer b0 b1 ... b(k-1) is 1*4^k + sum(bi * 4^(k-1-i)): the
// leading 1 digit is a sentinel that preserves leading-A zeros under
// round-trip, since a plain base-4 number would drop them.
type KmerCodec struct {
	K int
}

// NewKmerCodec constructs a codec for k-mers of length k.
func NewKmerCodec(k int) (*KmerCodec, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k-mer length must be positive, got %d", ErrInvalidInput, k)
	}
	return &KmerCodec{K: k}, nil
}

// NumKmers returns 4^k, the number of distinct k-mers.
func (c *KmerCodec) NumKmers() int {
	return pow4(c.K)
}

// BaseToIndex maps a DNA base character to its index in the alphabet
// ordering [A=0, C=1, T=2, G=3].
func BaseToIndex(ch byte) (int, error) {
	idx := strings.IndexByte(bases, ch)
	if idx < 0 {
		return 0, fmt.Errorf("%w: character %q is not a DNA base", ErrInvalidInput, ch)
	}
	return idx, nil
}

// IndexToBase is the inverse of BaseToIndex.
func IndexToBase(idx int) (byte, error) {
	if idx < 0 || idx >= len(bases) {
		return 0, fmt.Errorf("%w: base index %d out of range", ErrInvalidInput, idx)
	}
	return bases[idx], nil
}

// Encode returns the dense lexicographic index of kmer.
func (c *KmerCodec) Encode(kmer string) (int, error) {
	if len(kmer) != c.K {
		return 0, fmt.Errorf("%w: expected a %d-mer, got %q", ErrInvalidInput, c.K, kmer)
	}
	code := pow4(c.K)
	for i := 0; i < c.K; i++ {
		digit, err := BaseToIndex(kmer[i])
		if err != nil {
			return 0, err
		}
		code += digit * pow4(c.K-1-i)
	}
	return code, nil
}

// Decode is the inverse of Encode.
func (c *KmerCodec) Decode(code int) (string, error) {
	firstOne := pow4(c.K)
	if code < firstOne || code >= 2*firstOne {
		return "", fmt.Errorf("%w: code %d is not a valid %d-mer encoding", ErrInvalidInput, code, c.K)
	}
	v := code - firstOne
	buf := make([]byte, c.K)
	for i := c.K - 1; i >= 0; i-- {
		digit := v % 4
		v /= 4
		base, err := IndexToBase(digit)
		if err != nil {
			return "", err
		}
		buf[i] = base
	}
	return string(buf), nil
}

// StateID maps a k-mer to its HMM state id: state 0 is reserved for the
// silent initial state, so the id of a k-mer is its encoding shifted down
// by one past the sentinel digit.
func (c *KmerCodec) StateID(kmer string) (int, error) {
	code, err := c.Encode(kmer)
	if err != nil {
		return 0, err
	}
	return code - pow4(c.K) + 1, nil
}

// KmerForState is the inverse of StateID: it returns the k-mer whose
// emitting state id is stateID. stateID must be in [1, NumKmers()].
func (c *KmerCodec) KmerForState(stateID int) (string, error) {
	if stateID < 1 || stateID > c.NumKmers() {
		return "", fmt.Errorf("%w: state id %d has no k-mer (not in [1,%d])", ErrInvalidInput, stateID, c.NumKmers())
	}
	return c.Decode(stateID + pow4(c.K) - 1)
}

// AllNextKmers returns every k-mer reachable from kmer by a move of 0..dist
// bases: for each d' in [0,dist], the suffix of kmer of length k-d' followed
// by every sequence of length d' over the alphabet. The result always
// contains kmer itself (d'=0).
func (c *KmerCodec) AllNextKmers(kmer string, dist int) (map[string]struct{}, error) {
	if len(kmer) != c.K {
		return nil, fmt.Errorf("%w: expected a %d-mer, got %q", ErrInvalidInput, c.K, kmer)
	}
	result := map[string]struct{}{}
	for d := 0; d <= dist && d <= c.K; d++ {
		suffix := kmer[d:]
		for _, tail := range allSequences(d) {
			result[suffix+tail] = struct{}{}
		}
	}
	return result, nil
}

// allSequences returns every string of length n over the alphabet.
func allSequences(n int) []string {
	if n == 0 {
		return []string{""}
	}
	shorter := allSequences(n - 1)
	result := make([]string, 0, len(shorter)*len(bases))
	for _, s := range shorter {
		for i := 0; i < len(bases); i++ {
			result = append(result, s+string(bases[i]))
		}
	}
	return result
}

// SlidingKmerIterator emits successive k-mer encodings from a longer string
// in O(1) per step, by subtracting the departing base's contribution,
// shifting, and adding the new base, all while preserving the codec's
// leading-sentinel digit.
type SlidingKmerIterator struct {
	codec    *KmerCodec
	s        string
	pos      int // start index of the window Next() will return
	code     int // encoding (including the sentinel) of the window at pos
	mostSig  int // 4^(k-1)
	firstOne int // 4^k
}

// NewSlidingKmerIterator constructs an iterator over the k-mers of s. If
// len(s) < k, HasNext immediately returns false.
func NewSlidingKmerIterator(codec *KmerCodec, s string) (*SlidingKmerIterator, error) {
	it := &SlidingKmerIterator{
		codec:    codec,
		s:        s,
		mostSig:  pow4(codec.K - 1),
		firstOne: pow4(codec.K),
	}
	if len(s) >= codec.K {
		code, err := codec.Encode(s[:codec.K])
		if err != nil {
			return nil, err
		}
		it.code = code
	}
	return it, nil
}

// HasNext reports whether another full k-mer window remains in the string.
func (it *SlidingKmerIterator) HasNext() bool {
	return it.pos+it.codec.K <= len(it.s)
}

// Next returns the encoding of the current window and advances past it.
func (it *SlidingKmerIterator) Next() (int, error) {
	if !it.HasNext() {
		return 0, fmt.Errorf("%w: sliding k-mer iterator exhausted", ErrInvalidInput)
	}
	current := it.code
	nextWindowEnd := it.pos + it.codec.K + 1
	if nextWindowEnd <= len(it.s) {
		departing, err := BaseToIndex(it.s[it.pos])
		if err != nil {
			return 0, err
		}
		arriving, err := BaseToIndex(it.s[it.pos+it.codec.K])
		if err != nil {
			return 0, err
		}
		v := it.code - it.firstOne
		v = (v-departing*it.mostSig)*4 + arriving
		it.code = it.firstOne + v
	}
	it.pos++
	return current, nil
}

func pow4(n int) int {
	result := 1
	for i := 0; i < n; i++ {
		result *= 4
	}
	return result
}
