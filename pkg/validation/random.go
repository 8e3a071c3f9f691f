package validation

import (
	"math/rand/v2"
	"sync"
)

// RandomSource supplies the draws that decide mock outcomes.
// Implementations must be safe for concurrent use.
type RandomSource interface {
	// Intn returns a value in [0, n).
	Intn(n int) int
	// Float32 returns a value in [0, 1).
	Float32() float32
}

// NewRandomSource returns a source seeded with seed, or the process-wide
// generator when seed is zero.
func NewRandomSource(seed uint64) RandomSource {
	if seed == 0 {
		return globalSource{}
	}
	return &seededSource{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

type globalSource struct{}

func (globalSource) Intn(n int) int    { return rand.IntN(n) }
func (globalSource) Float32() float32 { return rand.Float32() }

// seededSource guards a *rand.Rand, which is not safe for concurrent use.
type seededSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (s *seededSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(n)
}

func (s *seededSource) Float32() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float32()
}
