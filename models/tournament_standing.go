package models

import "math"

// DefaultBuchholzScale shrinks the tie-break below the score for display.
const DefaultBuchholzScale = 0.1

// Standing is one row of the ranked table. TieBreak is the scaled Buchholz
// value used for display.
type Standing struct {
	Rank        int      `json:"rank"`
	PlayerID    PlayerID `json:"player_id"`
	Name        string   `json:"name"`
	Score       float64  `json:"score"`
	TieBreak    float64  `json:"tie_break"`
	GamesPlayed int      `json:"games_played"`
}

// ScaleTieBreak applies the display scale, rounded to two decimals.
// A non-positive scale leaves the raw value. Standings and stored snapshots
// both go through it so the two never disagree.
func ScaleTieBreak(raw, scale float64) float64 {
	if scale <= 0 {
		scale = 1
	}
	return math.Round(raw*scale*100) / 100
}
