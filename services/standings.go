package services

import (
	"sort"

	"github.com/Dosada05/swiss-system/models"
)

const DefaultBuchholzScale = models.DefaultBuchholzScale

// Buchholz sums the current scores of everyone p has faced. It is computed
// on read, so it moves whenever an opponent's score does.
func Buchholz(p *models.Player, roster map[models.PlayerID]*models.Player) float64 {
	return p.OpponentScoreSum(roster)
}

// RankStandings orders players by score, then Buchholz, then name, and
// numbers them from 1.
func RankStandings(players []*models.Player, scale float64) []models.Standing {
	roster := models.PlayerIndex(players)

	type row struct {
		player *models.Player
		raw    float64
	}
	rows := make([]row, 0, len(players))
	for _, p := range players {
		rows = append(rows, row{player: p, raw: Buchholz(p, roster)})
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.player.Score != b.player.Score {
			return a.player.Score > b.player.Score
		}
		if a.raw != b.raw {
			return a.raw > b.raw
		}
		return a.player.Name < b.player.Name
	})

	standings := make([]models.Standing, 0, len(rows))
	for i, r := range rows {
		standings = append(standings, models.Standing{
			Rank:        i + 1,
			PlayerID:    r.player.ID,
			Name:        r.player.Name,
			Score:       r.player.Score,
			TieBreak:    models.ScaleTieBreak(r.raw, scale),
			GamesPlayed: r.player.GamesPlayed(),
		})
	}
	return standings
}
