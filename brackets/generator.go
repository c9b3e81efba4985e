package brackets

import (
	"context"

	"github.com/Dosada05/swiss-system/models"
)

type GeneratePairingsParams struct {
	Round   int
	Players []*models.Player
}

// PairingGenerator produces the pairings of a single round.
type PairingGenerator interface {
	GeneratePairings(ctx context.Context, params GeneratePairingsParams) ([]models.Pairing, error)

	GetName() string
}

// Generators bundles the strategies used over a tournament's lifetime.
type Generators struct {
	FirstRound PairingGenerator
	Swiss      PairingGenerator
}

func NewGenerators(random *RandomGenerator) Generators {
	return Generators{
		FirstRound: random,
		Swiss:      NewSwissGenerator(),
	}
}

// ForRound picks random pairing for round 1 and Swiss pairing afterwards.
func (g Generators) ForRound(round int) PairingGenerator {
	if round <= 1 {
		return g.FirstRound
	}
	return g.Swiss
}

func numberBoards(pairs []models.Pairing) {
	for i := range pairs {
		pairs[i].Board = i + 1
	}
}
