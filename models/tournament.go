package models

import "time"

// TournamentStatus is derived from the round counters, never stored.
type TournamentStatus string

const (
	StatusNotStarted TournamentStatus = "not_started"
	StatusInRound    TournamentStatus = "in_round"
	StatusCompleted  TournamentStatus = "completed"
)

// Tournament is the whole persisted state of one Swiss event.
type Tournament struct {
	ID           string    `json:"id" db:"id"`
	Players      []*Player `json:"players" db:"-"`
	Round        int       `json:"round" db:"round"`
	TotalRounds  int       `json:"total_rounds" db:"total_rounds"`
	RoundMin     int       `json:"round_min" db:"round_min"`
	RoundMax     int       `json:"round_max" db:"round_max"`
	PendingPairs []Pairing `json:"pending_pairs" db:"pending_pairs"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// NewTournament returns an empty, not started tournament.
func NewTournament(id string) *Tournament {
	return &Tournament{
		ID:           id,
		Players:      []*Player{},
		PendingPairs: []Pairing{},
	}
}

func (t *Tournament) Status() TournamentStatus {
	switch {
	case t.Round <= 0:
		return StatusNotStarted
	case t.Round > t.TotalRounds:
		return StatusCompleted
	default:
		return StatusInRound
	}
}

// Clone deep-copies the state so transitions can work on a scratch value.
func (t *Tournament) Clone() *Tournament {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Players = make([]*Player, len(t.Players))
	for i, p := range t.Players {
		cp.Players[i] = p.Clone()
	}
	cp.PendingPairs = make([]Pairing, len(t.PendingPairs))
	copy(cp.PendingPairs, t.PendingPairs)
	return &cp
}

func (t *Tournament) Player(id PlayerID) (*Player, bool) {
	for _, p := range t.Players {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}
