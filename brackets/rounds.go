package brackets

import "math"

// ChooseRounds derives the number of rounds for n participants:
// ceil(log2(n)) clamped to [rMin, rMax]. When rMin > rMax, rMin wins.
// Callers must reject n < 2 first.
func ChooseRounds(n, rMin, rMax int) int {
	ideal := 0
	if n > 1 {
		ideal = int(math.Ceil(math.Log2(float64(n))))
	}
	return max(rMin, min(rMax, ideal))
}
