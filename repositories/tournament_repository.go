package repositories

import (
	"context"
	"errors"

	"github.com/Dosada05/swiss-system/models"
)

var (
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrSnapshotCorrupt    = errors.New("tournament snapshot is corrupt")
)

// TournamentRepository is the load/save contract for tournament state. Save
// stores the whole structure; Load returns ErrTournamentNotFound or
// ErrSnapshotCorrupt when nothing usable is stored.
type TournamentRepository interface {
	Load(ctx context.Context, id string) (*models.Tournament, error)
	Save(ctx context.Context, t *models.Tournament) error
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
}
