// Package minhash provides MinHash signature generation for set similarity
// estimation.
//
// A Sketch compresses a multiset of byte strings into a fixed-length vector
// of k independent hash minima. The Jaccard similarity between two sets can
// then be estimated by comparing sketches position-by-position in O(k) time,
// avoiding the O(n) cost of comparing the underlying sets directly.
//
// This implementation uses FNV-1a base hashing with per-permutation seeds
// mixed via a splitmix64 finalizer (see internal/hashutil) to produce k
// independent hash values from a single base hash computation, exactly the
// "min-of-random-permutation" construction: P[sketch_A[i] == sketch_B[i]] =
// J(A, B), so averaging matches across k permutations gives an unbiased
// Jaccard estimator with variance O(1/k).
//
// Per the concurrency model, a Sketch is not safe for concurrent mutation;
// callers owning a Sketch across goroutines must synchronize externally.
package minhash

import (
	"errors"
	"math"

	"github.com/Sumatoshi-tech/simlsh/internal/hashutil"
	"github.com/Sumatoshi-tech/simlsh/pkg/simerr"
)

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = simerr.Invalid(errors.New("minhash: k must be positive"))

	// ErrSizeMismatch is returned when comparing sketches built with
	// different k.
	ErrSizeMismatch = simerr.Invalid(errors.New("minhash: sketches have different k"))
)

// HashFamily is a deterministic family of k universal hash functions,
// seeded once at construction so two processes building a HashFamily with
// the same k always derive the same permutations (testable property 1,
// sketch determinism).
type HashFamily struct {
	seeds []uint64
}

// NewHashFamily builds a family of k permutation functions. k must be
// positive; callers go through Sketch's constructor, which validates this.
func NewHashFamily(k int) *HashFamily {
	return &HashFamily{seeds: hashutil.GenerateSeeds(k, hashutil.Splitmix64)}
}

// K reports the number of permutations in the family.
func (hf *HashFamily) K() int { return len(hf.seeds) }

// Apply computes the family's k hash values for v: a single base FNV-1a
// hash of v, mixed against each permutation's seed.
func (hf *HashFamily) Apply(v []byte) []uint64 {
	base := hashutil.FNV64a(v)
	out := make([]uint64, len(hf.seeds))

	for i, seed := range hf.seeds {
		out[i] = hashutil.MixHash(base, seed)
	}

	return out
}

// Sketch is a fixed-length MinHash signature over k permutations.
type Sketch struct {
	family     *HashFamily
	hashValues []uint64
}

// New constructs an empty Sketch with k permutations. Every entry starts at
// math.MaxUint64, meaning "no value seen yet by this permutation". Returns
// ErrInvalidK if k is not positive.
func New(k int) (*Sketch, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}

	hashValues := make([]uint64, k)
	for i := range hashValues {
		hashValues[i] = math.MaxUint64
	}

	return &Sketch{
		family:     NewHashFamily(k),
		hashValues: hashValues,
	}, nil
}

// Update folds v into the sketch: for every permutation i, hashValues[i] is
// lowered to min(hashValues[i], h_i(v)). Update is idempotent for values
// already seen and monotonically non-increasing per entry (testable
// property 2). Callers must filter out nil/absent values themselves; a nil
// or empty v is hashed like any other byte string.
func (s *Sketch) Update(v []byte) {
	hashes := s.family.Apply(v)

	for i, h := range hashes {
		if h < s.hashValues[i] {
			s.hashValues[i] = h
		}
	}
}

// HashValues returns a read-only view over the sketch's current minima. The
// returned slice must not be mutated by callers; lshindex relies on it
// remaining an accurate snapshot of sketch state at call time.
func (s *Sketch) HashValues() []uint64 {
	return s.hashValues
}

// K returns the number of permutations in the sketch.
func (s *Sketch) K() int {
	return len(s.hashValues)
}

// EstimateJaccard returns the fraction of positions at which this sketch
// and other agree, an unbiased estimator of the Jaccard similarity between
// the two sets the sketches summarize. Returns ErrSizeMismatch if the two
// sketches were built with different k.
func (s *Sketch) EstimateJaccard(other *Sketch) (float64, error) {
	if other == nil || len(s.hashValues) != len(other.hashValues) {
		return 0, ErrSizeMismatch
	}

	matches := 0

	for i, v := range s.hashValues {
		if v == other.hashValues[i] {
			matches++
		}
	}

	return float64(matches) / float64(len(s.hashValues)), nil
}
