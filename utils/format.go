package utils

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Dosada05/swiss-system/models"
)

// FormatScore prints half points the way a crosstable does: 1, 1½, ½.
func FormatScore(score float64) string {
	whole := int(score)
	half := score-float64(whole) >= 0.5
	switch {
	case half && whole == 0:
		return "½"
	case half:
		return strconv.Itoa(whole) + "½"
	default:
		return strconv.Itoa(whole)
	}
}

// BuildPairingsOutput renders a round's boards as an aligned text table.
func BuildPairingsOutput(round int, pairs []models.Pairing) string {
	var sb strings.Builder
	if len(pairs) == 0 {
		sb.WriteString(fmt.Sprintf("No pairings for round %d\n", round))
		return sb.String()
	}

	maxB, maxF, maxS := len("Board"), len("First"), len("Second")
	for _, p := range pairs {
		maxB = max(maxB, len(strconv.Itoa(p.Board)))
		maxF = max(maxF, len(p.First))
		maxS = max(maxS, len(p.Second))
	}

	sb.WriteString(fmt.Sprintf("Round %d pairings:\n\n", round))
	sb.WriteString(fmt.Sprintf("%-*s  %-*s  %-*s\n", maxB, "Board", maxF, "First", maxS, "Second"))
	for _, p := range pairs {
		sb.WriteString(fmt.Sprintf("%-*d  %-*s  %-*s\n", maxB, p.Board, maxF, p.First, maxS, p.Second))
	}
	return sb.String()
}

// BuildStandingsOutput renders ranked standings as an aligned text table.
// Every row carries its own rank, tied rows included.
func BuildStandingsOutput(standings []models.Standing) string {
	type row struct{ rank, name, score, tieBreak string }
	rows := make([]row, 0, len(standings))
	for _, s := range standings {
		rows = append(rows, row{
			rank:     fmt.Sprintf("%d.", s.Rank),
			name:     s.Name,
			score:    FormatScore(s.Score),
			tieBreak: strconv.FormatFloat(s.TieBreak, 'f', 2, 64),
		})
	}

	maxP, maxN, maxS, maxT := len("Place"), len("Name"), len("Score"), len("Buchholz")
	for _, r := range rows {
		maxP = max(maxP, len(r.rank))
		maxN = max(maxN, len(r.name))
		maxS = max(maxS, len([]rune(r.score)))
		maxT = max(maxT, len(r.tieBreak))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-*s  %-*s  %-*s  %-*s\n", maxP, "Place", maxN, "Name", maxS, "Score", maxT, "Buchholz"))
	for _, r := range rows {
		// Pad by runes so "½" lines up.
		score := r.score + strings.Repeat(" ", maxS-len([]rune(r.score)))
		sb.WriteString(fmt.Sprintf("%-*s  %-*s  %s  %-*s\n", maxP, r.rank, maxN, r.name, score, maxT, r.tieBreak))
	}
	return sb.String()
}
