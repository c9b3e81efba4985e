package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/swiss-system/brackets"
	"github.com/Dosada05/swiss-system/models"
)

// The functions in this file are the tournament state machine. Each takes the
// current state and returns the next one; the input is never modified, so a
// rejected transition leaves the caller's state exactly as it was.
//
//	not_started (round 0) -> in_round (1..total) -> completed (total+1)

var now = func() time.Time { return time.Now().UTC() }

// Setup registers names and starts round 1 with no pairings yet. prev may
// be nil; otherwise it must be not started or completed and only its ID is
// kept.
func Setup(prev *models.Tournament, names []string, roundMin, roundMax int) (*models.Tournament, error) {
	if prev != nil {
		if err := checkTransition(prev, opSetup); err != nil {
			return nil, err
		}
	}
	if len(names) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidParticipantCount, len(names))
	}
	if len(names)%2 != 0 {
		return nil, fmt.Errorf("%w: got %d, byes are not supported", ErrInvalidParticipantCount, len(names))
	}
	if roundMin < 1 || roundMax < 1 {
		return nil, fmt.Errorf("%w: round bounds must be positive (min %d, max %d)", ErrValidationFailed, roundMin, roundMax)
	}
	clean, err := normalizeNames(names)
	if err != nil {
		return nil, err
	}

	t := models.NewTournament("")
	if prev != nil {
		t.ID = prev.ID
	}
	for _, name := range clean {
		t.Players = append(t.Players, models.NewPlayer(name))
	}
	t.RoundMin = roundMin
	t.RoundMax = roundMax
	t.TotalRounds = brackets.ChooseRounds(len(t.Players), roundMin, roundMax)
	t.Round = 1
	t.CreatedAt = now()
	t.UpdatedAt = t.CreatedAt
	return t, nil
}

// EnterRound returns the pairings of the active round, generating them on
// first use. A second call without a commit returns the same list. When the
// Swiss pass exhausts, nothing is stored and the partial pairings are
// returned with the error.
func EnterRound(ctx context.Context, t *models.Tournament, gens brackets.Generators) (*models.Tournament, []models.Pairing, error) {
	if err := checkTransition(t, opEnterRound); err != nil {
		return t, nil, err
	}
	if len(t.PendingPairs) > 0 {
		return t, clonePairs(t.PendingPairs), nil
	}

	pairs, err := gens.ForRound(t.Round).GeneratePairings(ctx, brackets.GeneratePairingsParams{
		Round:   t.Round,
		Players: t.Players,
	})
	if err != nil {
		var exhausted *brackets.PairingExhaustedError
		if errors.As(err, &exhausted) {
			return t, pairs, err
		}
		return t, nil, fmt.Errorf("round %d pairing failed: %w", t.Round, err)
	}

	next := t.Clone()
	next.PendingPairs = pairs
	next.UpdatedAt = now()
	return next, clonePairs(pairs), nil
}

// SetPairings replaces the active round's pairings with an organizer supplied
// set. It must be a perfect matching over the roster; repeat opponents are
// allowed, which is how an exhausted round gets unblocked.
func SetPairings(t *models.Tournament, pairs [][2]models.PlayerID) (*models.Tournament, []models.Pairing, error) {
	if err := checkTransition(t, opSetPairings); err != nil {
		return t, nil, err
	}
	if len(pairs)*2 != len(t.Players) {
		return t, nil, fmt.Errorf("%w: %d pairings for %d players", ErrPairingMismatch, len(pairs), len(t.Players))
	}

	roster := models.PlayerIndex(t.Players)
	seen := make(map[models.PlayerID]bool, len(t.Players))
	out := make([]models.Pairing, 0, len(pairs))
	for i, pair := range pairs {
		for _, id := range pair {
			if roster[id] == nil {
				return t, nil, fmt.Errorf("%w: unknown player %q", ErrPairingMismatch, id)
			}
			if seen[id] {
				return t, nil, fmt.Errorf("%w: player %q paired twice", ErrPairingMismatch, id)
			}
			seen[id] = true
		}
		if pair[0] == pair[1] {
			return t, nil, fmt.Errorf("%w: player %q paired with themselves", ErrPairingMismatch, pair[0])
		}
		out = append(out, models.Pairing{Board: i + 1, First: pair[0], Second: pair[1]})
	}

	next := t.Clone()
	next.PendingPairs = out
	next.UpdatedAt = now()
	return next, clonePairs(out), nil
}

// CommitRound applies results (keyed by pairing index) and advances to the
// next round, or to completed after the last one.
func CommitRound(t *models.Tournament, results map[int]models.Outcome) (*models.Tournament, error) {
	if err := checkTransition(t, opCommitRound); err != nil {
		return t, err
	}
	if len(t.PendingPairs) == 0 {
		return t, fmt.Errorf("%w: round %d has no pairings to commit", ErrStateMismatch, t.Round)
	}

	next := t.Clone()
	if err := ApplyResults(next.Players, next.PendingPairs, results); err != nil {
		return t, err
	}
	next.PendingPairs = []models.Pairing{}
	next.Round++
	next.UpdatedAt = now()
	return next, nil
}

// Standings ranks the roster in any state.
func Standings(t *models.Tournament, scale float64) []models.Standing {
	return RankStandings(t.Players, scale)
}

func clonePairs(pairs []models.Pairing) []models.Pairing {
	out := make([]models.Pairing, len(pairs))
	copy(out, pairs)
	return out
}
