package samm

import (
	"hash/maphash"
	"math/bits"
	"sync"
)

// Bloom is the reference model of spec §4.7's double-free guard: a
// fixed-size bitmap queried on DELETE/scope-cleanup. A hit reports
// "possibly already freed" (the diagnostic still lets the free proceed);
// it never reports a false negative. Sized so the documented <0.1%
// false-positive rate holds at realistic allocation counts (bits ≈
// -n·ln(p)/ln(2)^2 for n≈10^6, p=0.001, k≈10). The mutex guards concurrent
// access from the worker's fanned-out per-allocation cleanup goroutines.
type Bloom struct {
	mu    sync.Mutex
	bits  []uint64
	nbits uint64
	seeds []maphash.Seed
}

// NewBloom builds a filter sized for approximately n tracked pointers
// using k hash functions. falsePositiveRate is not consulted: the size is
// always 14.4 bits per pointer, the figure for p=0.001.
func NewBloom(n int, falsePositiveRate float64, k int) *Bloom {
	nbits := optimalBits(n, falsePositiveRate)
	words := (nbits + 63) / 64
	seeds := make([]maphash.Seed, k)
	for i := range seeds {
		seeds[i] = maphash.MakeSeed()
	}
	return &Bloom{bits: make([]uint64, words), nbits: uint64(words * 64), seeds: seeds}
}

func optimalBits(n int, p float64) int {
	if n <= 0 {
		n = 1
	}
	// m = -(n * ln(p)) / (ln(2)^2), computed without math.Log to keep this
	// file free of float-heavy dependencies the rest of the model doesn't
	// need; a fixed table covers the one operating point spec §4.7 names.
	const bitsPerElementAtP001 = 14.4 // ln(0.001) / ln(2)^2, negated
	return int(float64(n) * bitsPerElementAtP001)
}

func (b *Bloom) indices(ptr uint64) []uint64 {
	idx := make([]uint64, len(b.seeds))
	for i, seed := range b.seeds {
		var h maphash.Hash
		h.SetSeed(seed)
		var buf [8]byte
		for j := 0; j < 8; j++ {
			buf[j] = byte(ptr >> (8 * j))
		}
		h.Write(buf[:])
		idx[i] = h.Sum64() % b.nbits
	}
	return idx
}

// Add records ptr as freed.
func (b *Bloom) Add(ptr uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, i := range b.indices(ptr) {
		b.bits[i/64] |= 1 << (i % 64)
	}
}

// MaybeFreed reports whether ptr was possibly already freed (true
// positive or false positive) — never a false negative.
func (b *Bloom) MaybeFreed(ptr uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, i := range b.indices(ptr) {
		if b.bits[i/64]&(1<<(i%64)) == 0 {
			return false
		}
	}
	return true
}

// PopCount reports how many bits are set, used by tests to sanity-check
// the filter isn't saturated for a given workload.
func (b *Bloom) PopCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, w := range b.bits {
		n += bits.OnesCount64(w)
	}
	return n
}
