package brackets

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Dosada05/swiss-system/models"
)

// ErrPairingExhausted reports that the greedy pass left players unpaired.
var ErrPairingExhausted = errors.New("pairing exhausted: some players could not be paired")

// PairingExhaustedError lists the players the organizer has to pair by hand.
type PairingExhaustedError struct {
	Round    int
	Unpaired []models.PlayerID
}

func (e *PairingExhaustedError) Error() string {
	names := make([]string, len(e.Unpaired))
	for i, id := range e.Unpaired {
		names[i] = id.String()
	}
	return fmt.Sprintf("%v (round %d, unpaired: %s)", ErrPairingExhausted, e.Round, strings.Join(names, ", "))
}

func (e *PairingExhaustedError) Unwrap() error {
	return ErrPairingExhausted
}

// SwissGenerator pairs players of similar score without repeating opponents.
//
// It is greedy: players are ranked by score (desc) then name (asc), and each
// unpaired player takes the highest ranked unpaired player they have not met.
// There is no backtracking, so a pairing that exists can still be missed when
// histories are dense; in that case the partial list is returned together
// with a *PairingExhaustedError.
type SwissGenerator struct{}

func NewSwissGenerator() *SwissGenerator {
	return &SwissGenerator{}
}

func (g *SwissGenerator) GetName() string {
	return "Swiss"
}

func (g *SwissGenerator) GeneratePairings(ctx context.Context, params GeneratePairingsParams) ([]models.Pairing, error) {
	if len(params.Players) < 2 {
		return nil, errors.New("not enough players to pair (minimum 2)")
	}

	sorted := SortByScore(params.Players)
	paired := make(map[models.PlayerID]bool, len(sorted))
	pairs := make([]models.Pairing, 0, len(sorted)/2)

	for _, p := range sorted {
		if paired[p.ID] {
			continue
		}
		for _, q := range sorted {
			if paired[q.ID] || q.ID == p.ID || p.Opponents.Has(q.ID) {
				continue
			}
			pairs = append(pairs, models.Pairing{First: p.ID, Second: q.ID})
			paired[p.ID] = true
			paired[q.ID] = true
			break
		}
	}
	numberBoards(pairs)

	var unpaired []models.PlayerID
	for _, p := range sorted {
		if !paired[p.ID] {
			unpaired = append(unpaired, p.ID)
		}
	}
	if len(unpaired) > 0 {
		return pairs, &PairingExhaustedError{Round: params.Round, Unpaired: unpaired}
	}
	return pairs, nil
}

// SortByScore returns a copy of players ordered by score descending, then
// name ascending.
func SortByScore(players []*models.Player) []*models.Player {
	sorted := make([]*models.Player, len(players))
	copy(sorted, players)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].Name < sorted[j].Name
	})
	return sorted
}
