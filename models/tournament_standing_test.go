package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScaleTieBreak(t *testing.T) {
	assert.Equal(t, 0.25, ScaleTieBreak(2.5, 0.1))
	assert.Equal(t, 0.15, ScaleTieBreak(1.5, 0.1))
	assert.Equal(t, 2.5, ScaleTieBreak(2.5, 0))
	assert.Equal(t, 2.5, ScaleTieBreak(2.5, 1))
	assert.Equal(t, 0.33, ScaleTieBreak(1, 1.0/3))
}

func TestPlayer_GamesPlayedCountsRepeatOpponents(t *testing.T) {
	a, b := NewPlayer("A"), NewPlayer("B")
	assert.Equal(t, 0, a.GamesPlayed())

	a.Opponents.Add(b.ID)
	assert.Equal(t, 1, a.GamesPlayed(), "history without a game count")

	a.Games = 2
	assert.Equal(t, 2, a.GamesPlayed())
}
