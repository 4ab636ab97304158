// Package lshopt chooses the band/row split for a banded LSH index from a
// desired similarity threshold.
//
// Two sets colliding in at least one band of r rows hashed b ways have
// probability S(x; b, r) = 1 - (1 - x^r)^b at true Jaccard similarity x —
// the "S-curve". Optimal chooses (b, r) minimizing a weighted sum of the
// expected false-positive mass below threshold and false-negative mass
// above it, integrating the S-curve (and its complement) numerically.
//
// This mirrors the integration approach used across the MinHash-LSH
// implementations in the wild (e.g. the "optimalKL" routines found in
// ekzhu/minhash-lsh-style ports): a left-Riemann sum sampled at each step's
// midpoint. Unlike at least one such port, the false-negative integrand
// here is the true complement of the S-curve — see the package-level Open
// Question recorded in this repository's DESIGN.md: a plausible source bug
// combines the S-curve and its complement within a single FN term, and
// reimplementations should not blindly copy that arithmetic.
package lshopt

import (
	"errors"
	"math"

	"github.com/Sumatoshi-tech/simlsh/pkg/simerr"
)

// DefaultFPWeight and DefaultFNWeight are the weights Optimal uses when the
// caller has no preference between false positives and false negatives.
const (
	DefaultFPWeight = 0.5
	DefaultFNWeight = 0.5
)

// integrationStep is the left-Riemann step IP from the specification.
const integrationStep = 0.001

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = simerr.Invalid(errors.New("lshopt: k must be positive"))

	// ErrInvalidThreshold is returned when threshold is outside [0, 1].
	ErrInvalidThreshold = simerr.Invalid(errors.New("lshopt: threshold must be in [0, 1]"))

	// ErrNoCandidate is a defensive error: the search space was empty. Given
	// k >= 1 this is unreachable; it exists so a future change to the
	// search bounds fails loudly instead of returning zero values.
	ErrNoCandidate = simerr.Internal(errors.New("lshopt: no (bands, rows) candidate explored"))
)

// sCurve is the LSH collision probability at true similarity x for a
// b-band, r-row split.
func sCurve(x float64, bands, rows int) float64 {
	return 1 - math.Pow(1-math.Pow(x, float64(rows)), float64(bands))
}

// falsePositiveMass integrates the S-curve from 0 to threshold: the
// expected collision probability for pairs that are NOT truly similar.
func falsePositiveMass(threshold float64, bands, rows int) float64 {
	var area float64

	for x := 0.0; x < threshold; x += integrationStep {
		area += sCurve(x+0.5*integrationStep, bands, rows) * integrationStep
	}

	return area
}

// falseNegativeMass integrates the complement of the S-curve from
// threshold to 1: the expected miss probability for pairs that ARE truly
// similar.
func falseNegativeMass(threshold float64, bands, rows int) float64 {
	var area float64

	for x := threshold; x < 1.0; x += integrationStep {
		area += (1 - sCurve(x+0.5*integrationStep, bands, rows)) * integrationStep
	}

	return area
}

// Optimal searches b in [1, k] and r in [1, k/b] for the (bands, rows)
// split minimizing fpWeight*FP(b,r) + fnWeight*FN(b,r), breaking ties by
// first-found (b ascending outer loop, r ascending inner loop). Returns
// ErrInvalidK if k is not positive, ErrInvalidThreshold if threshold falls
// outside [0, 1].
func Optimal(threshold float64, k int, fpWeight, fnWeight float64) (bands, rows int, err error) {
	if k <= 0 {
		return 0, 0, ErrInvalidK
	}

	if threshold < 0 || threshold > 1 {
		return 0, 0, ErrInvalidThreshold
	}

	bestCost := math.Inf(1)
	found := false

	for b := 1; b <= k; b++ {
		for r := 1; r <= k/b; r++ {
			cost := fpWeight*falsePositiveMass(threshold, b, r) + fnWeight*falseNegativeMass(threshold, b, r)

			if cost < bestCost {
				bestCost = cost
				bands, rows = b, r
				found = true
			}
		}
	}

	if !found {
		return 0, 0, ErrNoCandidate
	}

	return bands, rows, nil
}
