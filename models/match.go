package models

import (
	"fmt"
	"strings"
)

// Outcome is the result of one pairing. The zero value means undecided.
type Outcome string

const (
	OutcomeUndecided  Outcome = ""
	OutcomeFirstWins  Outcome = "first_wins"
	OutcomeDraw       Outcome = "draw"
	OutcomeSecondWins Outcome = "second_wins"
)

func (o Outcome) Decided() bool {
	return o == OutcomeFirstWins || o == OutcomeDraw || o == OutcomeSecondWins
}

// Points returns what each side earns for the outcome.
func (o Outcome) Points() (first, second float64) {
	switch o {
	case OutcomeFirstWins:
		return 1, 0
	case OutcomeDraw:
		return 0.5, 0.5
	case OutcomeSecondWins:
		return 0, 1
	default:
		return 0, 0
	}
}

// ParseOutcome accepts the canonical names and the usual score notation
// ("1-0", "0-1", "½-½", "0.5-0.5", "draw", "=").
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "undecided", "pending", "-":
		return OutcomeUndecided, nil
	case string(OutcomeFirstWins), "1-0", "first", "white":
		return OutcomeFirstWins, nil
	case string(OutcomeDraw), "½-½", "1/2-1/2", "0.5-0.5", "=":
		return OutcomeDraw, nil
	case string(OutcomeSecondWins), "0-1", "second", "black":
		return OutcomeSecondWins, nil
	default:
		return OutcomeUndecided, fmt.Errorf("unknown result %q", s)
	}
}

// Notation renders the outcome in score notation.
func (o Outcome) Notation() string {
	switch o {
	case OutcomeFirstWins:
		return "1-0"
	case OutcomeDraw:
		return "½-½"
	case OutcomeSecondWins:
		return "0-1"
	default:
		return "-"
	}
}

// Pairing puts two distinct players against each other for one round.
type Pairing struct {
	Board  int      `json:"board" db:"board"`
	First  PlayerID `json:"first" db:"first"`
	Second PlayerID `json:"second" db:"second"`
}

func (p Pairing) Involves(id PlayerID) bool {
	return p.First == id || p.Second == id
}
