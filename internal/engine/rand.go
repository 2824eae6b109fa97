package engine

import (
	"math/rand"
	"sync"
	"time"
)

// Rand is the source of every probability draw the engine makes.
// Float64 must return a value in [0, 1).
type Rand interface {
	Float64() float64
}

// lockedRand lets one seeded source serve sessions driven from several goroutines.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRand returns a goroutine-safe source seeded with seed.
// A zero seed uses the current time.
func NewRand(seed int64) Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// chance draws once from r and succeeds when the draw exceeds miss.
// miss is the failure threshold, so the success band is (miss, 1).
func chance(r Rand, miss float64) bool {
	return r.Float64() > miss
}
