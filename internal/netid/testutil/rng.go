package testutil

import (
	"math/rand"
	"sync"
)

// FakeRNG is a seeded, deterministic interfaces.RNG double: same seed,
// same call sequence, same results, so P3-style determinism tests are
// reproducible.
type FakeRNG struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewFakeRNG constructs an RNG seeded with seed.
func NewFakeRNG(seed int64) *FakeRNG {
	return &FakeRNG{r: rand.New(rand.NewSource(seed))}
}

// Uint64 implements interfaces.RNG.
func (f *FakeRNG) Uint64() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.r.Uint64()
}

// Float64 implements interfaces.RNG.
func (f *FakeRNG) Float64() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.r.Float64()
}

// Int32 implements interfaces.RNG.
func (f *FakeRNG) Int32() int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.r.Int31()
}
