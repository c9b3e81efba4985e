package services

import (
	"errors"

	"github.com/Dosada05/swiss-system/brackets"
	"github.com/Dosada05/swiss-system/repositories"
)

var (
	// Roster validation
	ErrInvalidParticipantCount = errors.New("invalid participant count: an even number of at least 2 players is required")
	ErrDuplicatePlayer         = errors.New("player name is registered twice")
	ErrValidationFailed        = errors.New("validation failed")

	// Round lifecycle
	ErrIncompleteResults = errors.New("round has pairings without a result")
	ErrPairingMismatch   = errors.New("results or pairings do not match the current round")
	ErrPairingExhausted  = brackets.ErrPairingExhausted
	ErrStateMismatch     = errors.New("operation not allowed in the current tournament state")

	// Persistence
	ErrTournamentNotFound = repositories.ErrTournamentNotFound
)
