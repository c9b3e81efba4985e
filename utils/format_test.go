package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Dosada05/swiss-system/models"
)

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "0", FormatScore(0))
	assert.Equal(t, "½", FormatScore(0.5))
	assert.Equal(t, "1", FormatScore(1))
	assert.Equal(t, "2½", FormatScore(2.5))
}

func TestBuildPairingsOutput(t *testing.T) {
	out := BuildPairingsOutput(2, []models.Pairing{
		{Board: 1, First: "Alice", Second: "Carol"},
		{Board: 2, First: "Dave", Second: "Bob"},
	})
	want := "Round 2 pairings:\n\n" +
		"Board  First  Second\n" +
		"1      Alice  Carol \n" +
		"2      Dave   Bob   \n"
	assert.Equal(t, want, out)

	assert.Equal(t, "No pairings for round 3\n", BuildPairingsOutput(3, nil))
}

func TestBuildStandingsOutput(t *testing.T) {
	out := BuildStandingsOutput([]models.Standing{
		{Rank: 1, Name: "A", Score: 1.5, TieBreak: 0.15},
		{Rank: 2, Name: "C", Score: 1, TieBreak: 0.25},
		{Rank: 3, Name: "D", Score: 1, TieBreak: 0.25},
		{Rank: 4, Name: "B", Score: 0.5, TieBreak: 0.25},
	})
	want := "Place  Name  Score  Buchholz\n" +
		"1.     A     1½     0.15    \n" +
		"2.     C     1      0.25    \n" +
		"3.     D     1      0.25    \n" +
		"4.     B     ½      0.25    \n"
	assert.Equal(t, want, out)
}

func TestBuildStandingsOutput_TiedRowsKeepTheirRank(t *testing.T) {
	out := BuildStandingsOutput([]models.Standing{
		{Rank: 1, Name: "Ann", Score: 1, TieBreak: 0.1},
		{Rank: 2, Name: "Bob", Score: 1, TieBreak: 0.1},
	})
	want := "Place  Name  Score  Buchholz\n" +
		"1.     Ann   1      0.10    \n" +
		"2.     Bob   1      0.10    \n"
	assert.Equal(t, want, out)
}
