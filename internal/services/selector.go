package services

import (
	"math/rand"
	"sort"
	"sync"
	"time"
)

// Sampler is the source of randomness for winner selection. *rand.Rand satisfies it.
type Sampler interface {
	Intn(n int) int
}

// WinnerSelector draws winners uniformly at random without replacement.
type WinnerSelector struct {
	mu  sync.Mutex
	rng Sampler
}

// NewWinnerSelector creates a selector. A nil sampler uses a time-seeded source.
func NewWinnerSelector(rng Sampler) *WinnerSelector {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &WinnerSelector{rng: rng}
}

// Select returns min(requested, len(eligible)) entries of eligible.
// Keys are sorted before sampling so a seeded sampler gives reproducible draws.
func (s *WinnerSelector) Select(eligible map[string]string, requested int) map[string]string {
	winners := make(map[string]string)
	if requested <= 0 || len(eligible) == 0 {
		return winners
	}

	ids := make([]string, 0, len(eligible))
	for id := range eligible {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	k := min(requested, len(ids))

	s.mu.Lock()
	// partial Fisher-Yates: ids[:k] is a uniform k-subset
	for i := 0; i < k; i++ {
		j := i + s.rng.Intn(len(ids)-i)
		ids[i], ids[j] = ids[j], ids[i]
	}
	s.mu.Unlock()

	for _, id := range ids[:k] {
		winners[id] = eligible[id]
	}
	return winners
}
