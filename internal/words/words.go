package words

import (
	"math/rand"
	"strings"
)

// Supply hands out prompts from a fixed pool.
type Supply struct {
	pool    []string
	shuffle func(n int, swap func(i, j int))
}

// NewSupply builds a supply over pool, ignoring blank entries. An empty pool
// falls back to DefaultBank.
func NewSupply(pool []string) *Supply {
	cleaned := make([]string, 0, len(pool))
	for _, w := range pool {
		if w = strings.TrimSpace(w); w != "" {
			cleaned = append(cleaned, w)
		}
	}
	if len(cleaned) == 0 {
		cleaned = append(cleaned, DefaultBank...)
	}
	return &Supply{pool: cleaned, shuffle: rand.Shuffle}
}

// Size is the number of distinct prompts available.
func (s *Supply) Size() int {
	return len(s.pool)
}

// Draw returns count prompts without replacement, in random order. Only when
// count exceeds the pool do prompts repeat.
func (s *Supply) Draw(count int) []string {
	if count <= 0 {
		return nil
	}

	shuffled := make([]string, len(s.pool))
	copy(shuffled, s.pool)
	s.shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	if count <= len(shuffled) {
		return shuffled[:count]
	}

	out := make([]string, 0, count)
	for len(out) < count {
		n := count - len(out)
		if n > len(shuffled) {
			n = len(shuffled)
		}
		out = append(out, shuffled[:n]...)
	}
	return out
}
