package services

import (
	"fmt"
	"strings"

	"github.com/Dosada05/swiss-system/models"
)

type operation string

const (
	opSetup       operation = "setup"
	opEnterRound  operation = "enter round"
	opSetPairings operation = "set pairings"
	opCommitRound operation = "commit round"
)

var allowedStatuses = map[operation][]models.TournamentStatus{
	opSetup:       {models.StatusNotStarted, models.StatusCompleted},
	opEnterRound:  {models.StatusInRound},
	opSetPairings: {models.StatusInRound},
	opCommitRound: {models.StatusInRound},
}

func checkTransition(t *models.Tournament, op operation) error {
	current := t.Status()
	for _, allowed := range allowedStatuses[op] {
		if current == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot %s while tournament is %s", ErrStateMismatch, op, current)
}

// --- Views ---

type PlayerView struct {
	ID          models.PlayerID   `json:"id"`
	Name        string            `json:"name"`
	Score       float64           `json:"score"`
	Opponents   []models.PlayerID `json:"opponents"`
	GamesPlayed int               `json:"games_played"`
}

type TournamentView struct {
	ID           string                  `json:"id"`
	Status       models.TournamentStatus `json:"status"`
	Round        int                     `json:"round"`
	TotalRounds  int                     `json:"total_rounds"`
	RoundMin     int                     `json:"round_min"`
	RoundMax     int                     `json:"round_max"`
	Players      []PlayerView            `json:"players"`
	PendingPairs []models.Pairing        `json:"pending_pairs"`
}

func toTournamentView(t *models.Tournament) TournamentView {
	view := TournamentView{
		ID:           t.ID,
		Status:       t.Status(),
		Round:        t.Round,
		TotalRounds:  t.TotalRounds,
		RoundMin:     t.RoundMin,
		RoundMax:     t.RoundMax,
		Players:      make([]PlayerView, 0, len(t.Players)),
		PendingPairs: make([]models.Pairing, len(t.PendingPairs)),
	}
	copy(view.PendingPairs, t.PendingPairs)
	for _, p := range t.Players {
		view.Players = append(view.Players, PlayerView{
			ID:          p.ID,
			Name:        p.Name,
			Score:       p.Score,
			Opponents:   p.Opponents.Sorted(),
			GamesPlayed: p.GamesPlayed(),
		})
	}
	return view
}

func normalizeNames(names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	seen := make(map[models.PlayerID]bool, len(names))
	for i, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%w: player %d has an empty name", ErrValidationFailed, i+1)
		}
		id := models.NewPlayerID(name)
		if seen[id] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePlayer, name)
		}
		seen[id] = true
		out = append(out, name)
	}
	return out, nil
}
