// Package rng provides the random source used by market, event and business
// simulation. Game balancing only, nothing here is security sensitive.
package rng

import (
	"math/rand"
	"sync"
	"time"
)

// Source is the random source every stochastic formula takes as an argument.
type Source interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
	// Intn returns a value in [0, n). n must be > 0.
	Intn(n int) int
}

// Seeded wraps math/rand with a mutex so one source can be shared by sessions.
type Seeded struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSeeded creates a pseudo-random source. Seed 0 means "seed from the clock".
func NewSeeded(seed int64) *Seeded {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Seeded{r: rand.New(rand.NewSource(seed))}
}

func (s *Seeded) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

func (s *Seeded) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Intn(n)
}

// Scripted replays a fixed list of values cyclically. Used by tests to force
// deterministic outcomes (e.g. "event fires", "no fluctuation").
type Scripted struct {
	mu   sync.Mutex
	vals []float64
	pos  int
}

// NewScripted returns a source replaying vals. With no values it always yields 0.5.
func NewScripted(vals ...float64) *Scripted {
	if len(vals) == 0 {
		vals = []float64{0.5}
	}
	return &Scripted{vals: vals}
}

func (s *Scripted) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.vals[s.pos%len(s.vals)]
	s.pos++
	if v < 0 {
		return 0
	}
	if v >= 1 {
		return 0.999999
	}
	return v
}

func (s *Scripted) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	i := int(s.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// Symmetric maps a [0,1) draw onto (-1, 1).
func Symmetric(src Source) float64 {
	return src.Float64()*2 - 1
}
