package brackets

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/Dosada05/swiss-system/models"
)

// RandomGenerator pairs a shuffled copy of the roster two by two.
type RandomGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomGenerator uses src as its randomness; nil seeds from the clock.
func NewRandomGenerator(src rand.Source) *RandomGenerator {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &RandomGenerator{rng: rand.New(src)}
}

func (g *RandomGenerator) GetName() string {
	return "Random"
}

func (g *RandomGenerator) GeneratePairings(ctx context.Context, params GeneratePairingsParams) ([]models.Pairing, error) {
	n := len(params.Players)
	if n < 2 {
		return nil, errors.New("not enough players to pair (minimum 2)")
	}

	shuffled := make([]*models.Player, n)
	copy(shuffled, params.Players)

	g.mu.Lock()
	g.rng.Shuffle(n, func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	g.mu.Unlock()

	pairs := make([]models.Pairing, 0, n/2)
	for i := 0; i+1 < n; i += 2 {
		pairs = append(pairs, models.Pairing{First: shuffled[i].ID, Second: shuffled[i+1].ID})
	}
	numberBoards(pairs)

	if n%2 != 0 {
		return pairs, &PairingExhaustedError{
			Round:    params.Round,
			Unpaired: []models.PlayerID{shuffled[n-1].ID},
		}
	}
	return pairs, nil
}
