package repositories

import (
	"context"
	"sort"
	"sync"

	"github.com/Dosada05/swiss-system/models"
)

// MemoryTournamentRepository keeps deep copies of tournaments in a map.
type MemoryTournamentRepository struct {
	mu          sync.RWMutex
	tournaments map[string]*models.Tournament
}

func NewMemoryTournamentRepository() *MemoryTournamentRepository {
	return &MemoryTournamentRepository{tournaments: make(map[string]*models.Tournament)}
}

func (r *MemoryTournamentRepository) Load(ctx context.Context, id string) (*models.Tournament, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tournaments[id]
	if !ok {
		return nil, ErrTournamentNotFound
	}
	return t.Clone(), nil
}

func (r *MemoryTournamentRepository) Save(ctx context.Context, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tournaments[t.ID] = t.Clone()
	return nil
}

func (r *MemoryTournamentRepository) List(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.tournaments))
	for id := range r.tournaments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *MemoryTournamentRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tournaments[id]; !ok {
		return ErrTournamentNotFound
	}
	delete(r.tournaments, id)
	return nil
}
