package services

import (
	"fmt"
	"sort"

	"github.com/Dosada05/swiss-system/models"
)

// ApplyResults records one round of outcomes on the roster. results is keyed
// by the 0-based index into pairs. Everything is validated before the first
// mutation, so an error leaves players untouched.
func ApplyResults(players []*models.Player, pairs []models.Pairing, results map[int]models.Outcome) error {
	for idx := range results {
		if idx < 0 || idx >= len(pairs) {
			return fmt.Errorf("%w: no pairing at index %d (round has %d)", ErrPairingMismatch, idx, len(pairs))
		}
	}

	index := models.PlayerIndex(players)
	for _, pair := range pairs {
		if index[pair.First] == nil || index[pair.Second] == nil {
			return fmt.Errorf("%w: board %d references an unknown player", ErrPairingMismatch, pair.Board)
		}
	}

	var undecided []int
	for i := range pairs {
		if !results[i].Decided() {
			undecided = append(undecided, i)
		}
	}
	if len(undecided) > 0 {
		sort.Ints(undecided)
		return fmt.Errorf("%w: pairing indices %v", ErrIncompleteResults, undecided)
	}

	for i, pair := range pairs {
		first, second := index[pair.First], index[pair.Second]
		a, b := results[i].Points()
		first.Score += a
		second.Score += b
		first.Opponents.Add(second.ID)
		second.Opponents.Add(first.ID)
		first.Games++
		second.Games++
	}
	return nil
}
