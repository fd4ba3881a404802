package challenge

import (
	"hash/fnv"
	"math/rand"
)

// SelectionStrategy picks which templates a period instance generates.
// Implementations must be deterministic for a given (user, period key)
// pair so that retried or concurrent generation calls agree on the set.
type SelectionStrategy interface {
	Select(templates []Template, count int, userID, periodKey string) []Template
}

// SeededShuffleStrategy derives a seed from the user and period key,
// shuffles the template list with it, and takes the first count
// entries. The same user gets the same picks for the whole period, and
// different users get independent ones.
type SeededShuffleStrategy struct{}

func NewSeededShuffleStrategy() *SeededShuffleStrategy {
	return &SeededShuffleStrategy{}
}

func (s *SeededShuffleStrategy) Select(templates []Template, count int, userID, periodKey string) []Template {
	if count >= len(templates) {
		out := make([]Template, len(templates))
		copy(out, templates)
		return out
	}

	h := fnv.New64a()
	h.Write([]byte(userID))
	h.Write([]byte{0})
	h.Write([]byte(periodKey))

	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	shuffled := make([]Template, len(templates))
	copy(shuffled, templates)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:count]
}

// FixedOrderStrategy takes the first count templates in catalog order.
// Used in tests where the exact picks matter.
type FixedOrderStrategy struct{}

func (FixedOrderStrategy) Select(templates []Template, count int, userID, periodKey string) []Template {
	if count > len(templates) {
		count = len(templates)
	}
	out := make([]Template, count)
	copy(out, templates[:count])
	return out
}
