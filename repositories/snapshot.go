package repositories

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dosada05/swiss-system/models"
)

type playerSnapshot struct {
	Name      string   `json:"name"`
	Score     float64  `json:"score"`
	Opponents []string `json:"opponents"`
	Buchholz  float64  `json:"buchholz"`
	Games     int      `json:"games,omitempty"`
}

type pairingSnapshot struct {
	Board  int    `json:"board"`
	First  string `json:"first"`
	Second string `json:"second"`
}

type tournamentSnapshot struct {
	ID           string            `json:"id"`
	Players      []playerSnapshot  `json:"players"`
	Round        int               `json:"round"`
	TotalRounds  int               `json:"totalRounds"`
	RoundMin     int               `json:"roundMin,omitempty"`
	RoundMax     int               `json:"roundMax,omitempty"`
	PendingPairs []pairingSnapshot `json:"pendingPairs,omitempty"`
	CreatedAt    time.Time         `json:"createdAt,omitempty"`
	UpdatedAt    time.Time         `json:"updatedAt,omitempty"`
}

// EncodeSnapshot renders the persisted layout of a tournament. buchholz is
// written with the same scale the standings use; it is informational and
// recomputed on read.
func EncodeSnapshot(t *models.Tournament, buchholzScale float64) ([]byte, error) {
	roster := models.PlayerIndex(t.Players)
	snap := tournamentSnapshot{
		ID:          t.ID,
		Players:     make([]playerSnapshot, 0, len(t.Players)),
		Round:       t.Round,
		TotalRounds: t.TotalRounds,
		RoundMin:    t.RoundMin,
		RoundMax:    t.RoundMax,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	for _, p := range t.Players {
		opponents := make([]string, 0, len(p.Opponents))
		for _, id := range p.Opponents.Sorted() {
			opponents = append(opponents, id.String())
		}
		snap.Players = append(snap.Players, playerSnapshot{
			Name:      p.Name,
			Score:     p.Score,
			Opponents: opponents,
			Buchholz:  models.ScaleTieBreak(p.OpponentScoreSum(roster), buchholzScale),
			Games:     p.Games,
		})
	}
	for _, pair := range t.PendingPairs {
		snap.PendingPairs = append(snap.PendingPairs, pairingSnapshot{
			Board:  pair.Board,
			First:  pair.First.String(),
			Second: pair.Second.String(),
		})
	}
	return json.MarshalIndent(snap, "", "  ")
}

// DecodeSnapshot rebuilds a tournament from its persisted layout. Fields
// added after the first format (buchholz, round bounds, pending pairs,
// timestamps) are optional.
func DecodeSnapshot(data []byte) (*models.Tournament, error) {
	var snap tournamentSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshotCorrupt, err)
	}
	return snap.toModel()
}

func (snap tournamentSnapshot) toModel() (*models.Tournament, error) {
	if snap.Round < 0 || snap.TotalRounds < 0 {
		return nil, fmt.Errorf("%w: negative round counters", ErrSnapshotCorrupt)
	}

	t := models.NewTournament(snap.ID)
	t.Round = snap.Round
	t.TotalRounds = snap.TotalRounds
	t.RoundMin = snap.RoundMin
	t.RoundMax = snap.RoundMax
	t.CreatedAt = snap.CreatedAt
	t.UpdatedAt = snap.UpdatedAt

	for _, ps := range snap.Players {
		p := models.NewPlayer(ps.Name)
		if p.Name == "" {
			return nil, fmt.Errorf("%w: player without a name", ErrSnapshotCorrupt)
		}
		p.Score = ps.Score
		p.Games = ps.Games
		for _, o := range ps.Opponents {
			p.Opponents.Add(models.NewPlayerID(o))
		}
		t.Players = append(t.Players, p)
	}

	roster := models.PlayerIndex(t.Players)
	for _, ps := range snap.PendingPairs {
		pair := models.Pairing{Board: ps.Board, First: models.NewPlayerID(ps.First), Second: models.NewPlayerID(ps.Second)}
		if roster[pair.First] == nil || roster[pair.Second] == nil {
			return nil, fmt.Errorf("%w: pending pairing on board %d references an unknown player", ErrSnapshotCorrupt, ps.Board)
		}
		t.PendingPairs = append(t.PendingPairs, pair)
	}
	return t, nil
}
