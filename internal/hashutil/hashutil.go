// Package hashutil provides shared hash mixing constants and functions for
// MinHash and the banded LSH index. The ingest-side Bloom filter and
// HyperLogLog estimator carry their own hash functions and do not use it.
//
// The mixing functions (Mix64, Splitmix64, MixHash) use the splitmix64
// finalizer by Vigna (2014), which provides full-avalanche mixing across all
// 64 bits, so independently-seeded derivations stay decorrelated without the
// cost of a cryptographic hash. FNV64a and BandSignature are plain FNV-1a.
package hashutil

import "hash/fnv"

// Splitmix64 constants from the splitmix64 finalizer by Vigna (2014).
const (
	// BaseSeed is the starting seed for deterministic seed generation.
	BaseSeed = 0x517cc1b727220a95

	// MixShift1 is the first right-shift in the splitmix64 finalizer.
	MixShift1 = 30

	// MixMul1 is the first multiplier in the splitmix64 finalizer.
	MixMul1 = 0xbf58476d1ce4e5b9

	// MixShift2 is the second right-shift in the splitmix64 finalizer.
	MixShift2 = 27

	// MixMul2 is the second multiplier in the splitmix64 finalizer.
	MixMul2 = 0x94d049bb133111eb

	// MixShift3 is the third right-shift in the splitmix64 finalizer.
	MixShift3 = 31

	// splitmix64Increment is the golden-ratio-derived increment used in the
	// Splitmix64 state-advance function.
	splitmix64Increment = 0x9e3779b97f4a7c15
)

// Mix64 applies the splitmix64 finalizer for full-avalanche mixing.
// This is a pure output function — it does NOT advance any state.
func Mix64(v uint64) uint64 {
	v ^= v >> MixShift1
	v *= MixMul1
	v ^= v >> MixShift2
	v *= MixMul2
	v ^= v >> MixShift3

	return v
}

// Splitmix64 advances the state by the golden-ratio increment and applies
// the Mix64 finalizer. This is a full PRNG step that both advances state
// and produces output.
func Splitmix64(state uint64) uint64 {
	state += splitmix64Increment
	z := state
	z = (z ^ (z >> MixShift1)) * MixMul1
	z = (z ^ (z >> MixShift2)) * MixMul2
	z ^= z >> MixShift3

	return z
}

// MixHash combines a base hash with a seed using XOR and the splitmix64
// finalizer. This produces a deterministic hash variation for a given
// (base, seed) pair — the construction MinHash uses to derive k
// independent-looking permutations from one base hash evaluation.
func MixHash(base, seed uint64) uint64 {
	x := base ^ seed
	x = (x ^ (x >> MixShift1)) * MixMul1
	x = (x ^ (x >> MixShift2)) * MixMul2
	x ^= x >> MixShift3

	return x
}

// FNV64a computes a 64-bit FNV-1a hash of the given data.
func FNV64a(data []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(data)

	return h.Sum64()
}

// GenerateSeeds creates n deterministic seeds using the given advance
// function. Use Mix64 for Bloom/HLL-style seeds or Splitmix64 for
// MinHash-style permutation seeds.
func GenerateSeeds(n int, advance func(uint64) uint64) []uint64 {
	seeds := make([]uint64, n)
	state := uint64(BaseSeed)

	for i := range n {
		state = advance(state)
		seeds[i] = state
	}

	return seeds
}

// BandSignature computes a deterministic 64-bit signature for one LSH band:
// a contiguous slice of a MinHash signature's hash values. The band index is
// folded in for domain separation, so identical row values landing in
// different bands never collide.
func BandSignature(bandIndex int, rows []uint64) uint64 {
	h := fnv.New64a()

	var buf [8]byte

	putUint64(buf[:], uint64(bandIndex))
	_, _ = h.Write(buf[:])

	for _, v := range rows {
		putUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}

	return h.Sum64()
}

// putUint64 writes v into buf in big-endian order. buf must have length 8.
func putUint64(buf []byte, v uint64) {
	buf[0] = byte(v >> 56)
	buf[1] = byte(v >> 48)
	buf[2] = byte(v >> 40)
	buf[3] = byte(v >> 32)
	buf[4] = byte(v >> 24)
	buf[5] = byte(v >> 16)
	buf[6] = byte(v >> 8)
	buf[7] = byte(v)
}
