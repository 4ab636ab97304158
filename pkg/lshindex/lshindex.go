// Package lshindex provides a banded Locality-Sensitive Hashing index over
// MinHash sketches: it maps sketches into buckets by hashing contiguous
// bands of their hash values, so that approximate nearest-neighbor
// retrieval runs in time proportional to the number of bands rather than
// to the number of indexed sets.
//
// The index is parameterized by bands and rows with bands*rows <= k. Two
// sketches are candidates for a match if they share at least one band
// signature. Higher bands (at fixed k) lowers the similarity at which two
// sets become likely candidates; the lshopt package chooses bands/rows from
// a target threshold.
//
// Per the concurrency model, an Index is not safe for concurrent mutation.
// Concurrent read-only Query calls against a fully-populated, otherwise
// untouched Index are safe, since Query performs no interior mutation.
package lshindex

import (
	"errors"

	"github.com/Sumatoshi-tech/simlsh/internal/hashutil"
	"github.com/Sumatoshi-tech/simlsh/pkg/lshopt"
	"github.com/Sumatoshi-tech/simlsh/pkg/minhash"
	"github.com/Sumatoshi-tech/simlsh/pkg/simerr"
)

var (
	// ErrInvalidThreshold is returned when threshold is outside [0, 1].
	ErrInvalidThreshold = simerr.Invalid(errors.New("lshindex: threshold must be in [0, 1]"))

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = simerr.Invalid(errors.New("lshindex: k must be positive"))

	// ErrInvalidBandsRows is returned when bands or rows is not positive, or
	// bands*rows exceeds k.
	ErrInvalidBandsRows = simerr.Invalid(errors.New("lshindex: bands and rows must be positive with bands*rows <= k"))

	// ErrWidthMismatch is returned when a sketch's k does not match the
	// index's k at Insert or Query time.
	ErrWidthMismatch = simerr.Invalid(errors.New("lshindex: sketch k does not match index k"))
)

// Weights overrides the false-positive/false-negative trade-off used by
// FromThreshold when deriving bands/rows via lshopt.Optimal.
type Weights struct {
	FP float64
	FN float64
}

// Index is a banded LSH index over MinHash sketches keyed by K, an opaque
// identifier chosen by the caller. K must be comparable so it can be both a
// map key (bucket membership) and compared for set deduplication in Query.
type Index[K comparable] struct {
	threshold float64
	k         int
	bands     int
	rows      int
	bandStart []int
	tables    []map[uint64][]K
}

// FromThreshold derives bands and rows from threshold and k via
// lshopt.Optimal, using an optional Weights override (defaults to
// lshopt.DefaultFPWeight / lshopt.DefaultFNWeight when omitted).
func FromThreshold[K comparable](threshold float64, k int, weights ...Weights) (*Index[K], error) {
	fpWeight, fnWeight := lshopt.DefaultFPWeight, lshopt.DefaultFNWeight
	if len(weights) > 0 {
		fpWeight, fnWeight = weights[0].FP, weights[0].FN
	}

	if threshold < 0 || threshold > 1 {
		return nil, ErrInvalidThreshold
	}

	if k <= 0 {
		return nil, ErrInvalidK
	}

	bands, rows, err := lshopt.Optimal(threshold, k, fpWeight, fnWeight)
	if err != nil {
		return nil, err
	}

	return newIndex[K](threshold, k, bands, rows)
}

// FromParams constructs an index with an explicit bands/rows split,
// bypassing the optimizer. Returns ErrInvalidBandsRows if bands*rows > k.
func FromParams[K comparable](threshold float64, k, bands, rows int) (*Index[K], error) {
	if threshold < 0 || threshold > 1 {
		return nil, ErrInvalidThreshold
	}

	if k <= 0 {
		return nil, ErrInvalidK
	}

	return newIndex[K](threshold, k, bands, rows)
}

func newIndex[K comparable](threshold float64, k, bands, rows int) (*Index[K], error) {
	if bands <= 0 || rows <= 0 || bands*rows > k {
		return nil, ErrInvalidBandsRows
	}

	bandStart := make([]int, bands)
	tables := make([]map[uint64][]K, bands)

	for i := range bands {
		bandStart[i] = i * rows
		tables[i] = make(map[uint64][]K)
	}

	return &Index[K]{
		threshold: threshold,
		k:         k,
		bands:     bands,
		rows:      rows,
		bandStart: bandStart,
		tables:    tables,
	}, nil
}

// Threshold returns the similarity threshold this index was built for.
func (idx *Index[K]) Threshold() float64 { return idx.threshold }

// K returns the sketch width this index expects.
func (idx *Index[K]) K() int { return idx.k }

// Bands returns the number of bands.
func (idx *Index[K]) Bands() int { return idx.bands }

// Rows returns the number of rows per band.
func (idx *Index[K]) Rows() int { return idx.rows }

// bandSignatures computes the index's bands signatures for sig, one per
// band, using the same mixing function Insert and Query both call.
func (idx *Index[K]) bandSignatures(sig *minhash.Sketch) []uint64 {
	hashValues := sig.HashValues()
	signatures := make([]uint64, idx.bands)

	for b, start := range idx.bandStart {
		signatures[b] = hashutil.BandSignature(b, hashValues[start:start+idx.rows])
	}

	return signatures
}

// Insert appends key to every band bucket sig's signatures land in.
// Duplicate (key, sig) inserts are permitted and are not deduplicated
// (invariant 2): the bucket is an append sequence, not a set. Returns
// ErrWidthMismatch if sig.K() does not equal the index's K().
func (idx *Index[K]) Insert(key K, sig *minhash.Sketch) (bool, error) {
	if sig == nil || sig.K() != idx.k {
		return false, ErrWidthMismatch
	}

	signatures := idx.bandSignatures(sig)

	for b, sigValue := range signatures {
		idx.tables[b][sigValue] = append(idx.tables[b][sigValue], key)
	}

	return true, nil
}

// BucketSizes returns, for each band, the number of keys stored in the
// bucket sig's signature currently lands in. Intended for observability
// (simlsh.index.bucket_fill) rather than query logic: the sizes reflect
// state at call time and are not part of the core's compatibility surface.
// Returns ErrWidthMismatch if sig.K() does not equal the index's K().
func (idx *Index[K]) BucketSizes(sig *minhash.Sketch) ([]int, error) {
	if sig == nil || sig.K() != idx.k {
		return nil, ErrWidthMismatch
	}

	signatures := idx.bandSignatures(sig)
	sizes := make([]int, idx.bands)

	for b, sigValue := range signatures {
		sizes[b] = len(idx.tables[b][sigValue])
	}

	return sizes, nil
}

// Query returns the deduplicated set of keys whose signature shares at
// least one band with sig. Returns ErrWidthMismatch if sig.K() does not
// equal the index's K().
func (idx *Index[K]) Query(sig *minhash.Sketch) (map[K]struct{}, error) {
	if sig == nil || sig.K() != idx.k {
		return nil, ErrWidthMismatch
	}

	signatures := idx.bandSignatures(sig)
	result := make(map[K]struct{})

	for b, sigValue := range signatures {
		for _, key := range idx.tables[b][sigValue] {
			result[key] = struct{}{}
		}
	}

	return result, nil
}
