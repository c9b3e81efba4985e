package models

import (
	"sort"
	"strings"
)

// PlayerID is the key used for opponent history. It is derived from the
// registration name but kept as its own type so history never depends on
// a display string.
type PlayerID string

// NewPlayerID builds the key for a registered name.
func NewPlayerID(name string) PlayerID {
	return PlayerID(strings.TrimSpace(name))
}

func (id PlayerID) String() string {
	return string(id)
}

// OpponentSet holds the players already faced. It only grows.
type OpponentSet map[PlayerID]struct{}

func (s OpponentSet) Has(id PlayerID) bool {
	_, ok := s[id]
	return ok
}

func (s OpponentSet) Add(id PlayerID) {
	s[id] = struct{}{}
}

// Sorted returns the members in ascending order, for stable output.
func (s OpponentSet) Sorted() []PlayerID {
	ids := make([]PlayerID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s OpponentSet) Clone() OpponentSet {
	out := make(OpponentSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Player is a registered participant and their running statistics.
type Player struct {
	ID        PlayerID    `json:"id" db:"-"`
	Name      string      `json:"name" db:"name"`
	Score     float64     `json:"score" db:"score"`
	Opponents OpponentSet `json:"-" db:"opponents"`
	// Games counts committed rounds. It can exceed len(Opponents) once a
	// manual pairing repeats an opponent.
	Games int `json:"games" db:"games"`
}

func NewPlayer(name string) *Player {
	name = strings.TrimSpace(name)
	return &Player{
		ID:        NewPlayerID(name),
		Name:      name,
		Opponents: make(OpponentSet),
	}
}

// GamesPlayed is the number of completed rounds; there are no byes.
// Snapshots written before Games was tracked fall back to the opponent count.
func (p *Player) GamesPlayed() int {
	return max(p.Games, len(p.Opponents))
}

// OpponentScoreSum adds up the current scores of everyone p has faced.
// Opponents missing from roster count as zero.
func (p *Player) OpponentScoreSum(roster map[PlayerID]*Player) float64 {
	var sum float64
	for id := range p.Opponents {
		if o, ok := roster[id]; ok {
			sum += o.Score
		}
	}
	return sum
}

func (p *Player) Clone() *Player {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Opponents = p.Opponents.Clone()
	return &cp
}

// PlayerIndex maps IDs to players of a roster.
func PlayerIndex(players []*Player) map[PlayerID]*Player {
	index := make(map[PlayerID]*Player, len(players))
	for _, p := range players {
		index[p.ID] = p
	}
	return index
}
