package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/swiss-system/brackets"
	"github.com/Dosada05/swiss-system/models"
	"github.com/Dosada05/swiss-system/repositories"
)

type recordingHub struct {
	mu       sync.Mutex
	messages []brackets.WebSocketMessage
}

func (h *recordingHub) BroadcastToRoom(roomID string, message interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, message.(brackets.WebSocketMessage))
}

func (h *recordingHub) types() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.messages))
	for i, m := range h.messages {
		out[i] = m.Type
	}
	return out
}

type failingRepo struct {
	repositories.TournamentRepository
}

func (failingRepo) Save(ctx context.Context, t *models.Tournament) error {
	return errors.New("mirror unavailable")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, repo repositories.TournamentRepository, extra ...PersistTarget) (TournamentService, *Persister, *recordingHub) {
	t.Helper()
	targets := append([]PersistTarget{{Name: "primary", Repo: repo}}, extra...)
	p := NewPersister(discardLogger(), nil, targets...)
	hub := &recordingHub{}
	svc := NewTournamentService(
		TournamentServiceConfig{DefaultRoundMin: 2, DefaultRoundMax: 3},
		repo, p, testGenerators(), hub, nil, discardLogger(),
	)
	t.Cleanup(svc.Close)
	return svc, p, hub
}

func TestTournamentService_FullTournament(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMemoryTournamentRepository()
	svc, p, hub := newTestService(t, repo)

	view, err := svc.SetupTournament(ctx, "club", SetupInput{Names: []string{"A", "B", "C", "D"}})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInRound, view.Status)
	assert.Equal(t, 2, view.TotalRounds)

	pairs, err := svc.GetCurrentPairings(ctx, "club")
	require.NoError(t, err)
	again, err := svc.GetCurrentPairings(ctx, "club")
	require.NoError(t, err)
	assert.Equal(t, pairs, again)

	_, err = svc.CommitRound(ctx, "club", map[int]models.Outcome{0: models.OutcomeFirstWins})
	require.ErrorIs(t, err, ErrIncompleteResults)

	_, err = svc.CommitRound(ctx, "club", map[int]models.Outcome{0: models.OutcomeFirstWins, 1: models.OutcomeDraw})
	require.NoError(t, err)

	_, err = svc.GetCurrentPairings(ctx, "club")
	require.NoError(t, err)
	view, err = svc.CommitRound(ctx, "club", allResults(2, models.OutcomeDraw))
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, view.Status)

	standings, err := svc.GetStandings(ctx, "club")
	require.NoError(t, err)
	require.Len(t, standings, 4)
	assert.Equal(t, "A", standings[0].Name)
	assert.Equal(t, "B", standings[3].Name)

	require.NoError(t, p.Flush(ctx))
	stored, err := repo.Load(ctx, "club")
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Round)
	assert.Equal(t, map[string]float64{"A": 1.5, "B": 0.5, "C": 1, "D": 1}, scores(stored))

	assert.Equal(t, []string{
		brackets.MessageTournamentSetup,
		brackets.MessagePairingsReady,
		brackets.MessageRoundCommitted,
		brackets.MessagePairingsReady,
		brackets.MessageRoundCommitted,
		brackets.MessageTournamentCompleted,
	}, hub.types())
}

func TestTournamentService_ReloadsPendingPairs(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMemoryTournamentRepository()

	first, p, _ := newTestService(t, repo)
	_, err := first.SetupTournament(ctx, "club", SetupInput{Names: []string{"A", "B", "C", "D"}})
	require.NoError(t, err)
	pairs, err := first.GetCurrentPairings(ctx, "club")
	require.NoError(t, err)
	require.NoError(t, p.Flush(ctx))

	second, _, _ := newTestService(t, repo)
	reloaded, err := second.GetCurrentPairings(ctx, "club")
	require.NoError(t, err)
	assert.Equal(t, pairs, reloaded)
}

func TestTournamentService_UnknownTournament(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, repositories.NewMemoryTournamentRepository())

	_, err := svc.GetTournament(ctx, "nobody")
	assert.ErrorIs(t, err, ErrTournamentNotFound)
	_, err = svc.GetStandings(ctx, "nobody")
	assert.ErrorIs(t, err, ErrTournamentNotFound)
	assert.ErrorIs(t, svc.DeleteTournament(ctx, "nobody"), ErrTournamentNotFound)

	_, err = svc.GetTournament(ctx, "../etc")
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestTournamentService_CorruptSnapshotStartsEmpty(t *testing.T) {
	ctx := context.Background()
	repo := corruptRepo{repositories.NewMemoryTournamentRepository()}
	svc, _, _ := newTestService(t, repo)

	view, err := svc.GetTournament(ctx, "club")
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotStarted, view.Status)
	assert.Empty(t, view.Players)

	standings, err := svc.GetStandings(ctx, "club")
	require.NoError(t, err)
	assert.Empty(t, standings)
}

type corruptRepo struct {
	repositories.TournamentRepository
}

func (corruptRepo) Load(ctx context.Context, id string) (*models.Tournament, error) {
	return nil, repositories.ErrSnapshotCorrupt
}

func TestTournamentService_GeneratesIDAndLists(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, repositories.NewMemoryTournamentRepository())

	view, err := svc.SetupTournament(ctx, "", SetupInput{Names: []string{"A", "B"}})
	require.NoError(t, err)
	assert.Len(t, view.ID, 36)

	ids, err := svc.ListTournaments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{view.ID}, ids)

	require.NoError(t, svc.DeleteTournament(ctx, view.ID))
	ids, err = svc.ListTournaments(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestTournamentService_MirrorFailureKeepsPrimary(t *testing.T) {
	ctx := context.Background()
	primary := repositories.NewMemoryTournamentRepository()
	svc, p, _ := newTestService(t, primary, PersistTarget{Name: "mirror", Repo: failingRepo{}})

	_, err := svc.SetupTournament(ctx, "club", SetupInput{Names: []string{"A", "B"}})
	require.NoError(t, err)
	require.NoError(t, p.Flush(ctx))

	stored, err := primary.Load(ctx, "club")
	require.NoError(t, err)
	assert.Len(t, stored.Players, 2)
}

func TestTournamentService_ExhaustionThenOverride(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMemoryTournamentRepository()

	// Round 2 of 3 where the greedy pass strands B and C.
	tour, err := Setup(nil, []string{"A", "B", "C", "D"}, 3, 3)
	require.NoError(t, err)
	tour.ID = "club"
	tour.Round = 2
	meetAll := [][2]int{{0, 1}, {0, 2}, {1, 2}}
	for _, m := range meetAll {
		tour.Players[m[0]].Opponents.Add(tour.Players[m[1]].ID)
		tour.Players[m[1]].Opponents.Add(tour.Players[m[0]].ID)
	}
	require.NoError(t, repo.Save(ctx, tour))

	svc, _, hub := newTestService(t, repo)
	partial, err := svc.GetCurrentPairings(ctx, "club")
	var exhausted *brackets.PairingExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, []models.PlayerID{"B", "C"}, exhausted.Unpaired)
	assert.Len(t, partial, 1)
	assert.Empty(t, hub.types())

	pairs, err := svc.SetPairings(ctx, "club", [][2]string{{"A", "D"}, {"B", "C"}})
	require.NoError(t, err)
	assert.Len(t, pairs, 2)

	current, err := svc.GetCurrentPairings(ctx, "club")
	require.NoError(t, err)
	assert.Equal(t, pairs, current)
}

func TestTournamentService_ConcurrentReaders(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, repositories.NewMemoryTournamentRepository())
	_, err := svc.SetupTournament(ctx, "club", SetupInput{Names: []string{"A", "B", "C", "D", "E", "F"}})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([][]models.Pairing, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pairs, err := svc.GetCurrentPairings(ctx, "club")
			assert.NoError(t, err)
			results[i] = pairs
		}(i)
	}
	wg.Wait()

	for _, r := range results[1:] {
		assert.Equal(t, results[0], r)
	}
}

// heldRepo parks the first Load or Delete until the test lets it go.
type heldRepo struct {
	*repositories.MemoryTournamentRepository
	mu      sync.Mutex
	holds   map[string]chan struct{}
	entered chan string
}

func newHeldRepo(ops ...string) *heldRepo {
	r := &heldRepo{
		MemoryTournamentRepository: repositories.NewMemoryTournamentRepository(),
		holds:                      make(map[string]chan struct{}),
		entered:                    make(chan string, len(ops)),
	}
	for _, op := range ops {
		r.holds[op] = make(chan struct{})
	}
	return r
}

func (r *heldRepo) wait(op string) {
	r.mu.Lock()
	release, ok := r.holds[op]
	delete(r.holds, op)
	r.mu.Unlock()
	if ok {
		r.entered <- op
		<-release
	}
}

func (r *heldRepo) Load(ctx context.Context, id string) (*models.Tournament, error) {
	r.wait("load")
	return r.MemoryTournamentRepository.Load(ctx, id)
}

func (r *heldRepo) Delete(ctx context.Context, id string) error {
	r.wait("delete")
	return r.MemoryTournamentRepository.Delete(ctx, id)
}

func TestTournamentService_DeleteDuringLoadStaysDeleted(t *testing.T) {
	ctx := context.Background()
	repo := newHeldRepo("load")
	release := repo.holds["load"]

	tour, err := Setup(nil, []string{"A", "B", "C", "D"}, 2, 2)
	require.NoError(t, err)
	tour.ID = "club"
	require.NoError(t, repo.MemoryTournamentRepository.Save(ctx, tour))

	svc, p, _ := newTestService(t, repo)

	pairingsDone := make(chan error, 1)
	go func() {
		_, err := svc.GetCurrentPairings(ctx, "club")
		pairingsDone <- err
	}()
	require.Equal(t, "load", <-repo.entered)

	deleteDone := make(chan error, 1)
	go func() { deleteDone <- svc.DeleteTournament(ctx, "club") }()
	time.Sleep(20 * time.Millisecond)
	close(release)

	require.NoError(t, <-pairingsDone)
	require.NoError(t, <-deleteDone)
	require.NoError(t, p.Flush(ctx))

	_, err = repo.MemoryTournamentRepository.Load(ctx, "club")
	assert.ErrorIs(t, err, repositories.ErrTournamentNotFound)
	_, err = svc.GetTournament(ctx, "club")
	assert.ErrorIs(t, err, ErrTournamentNotFound)
	ids, err := svc.ListTournaments(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestTournamentService_WaitingOperationSeesDeletion(t *testing.T) {
	ctx := context.Background()
	repo := newHeldRepo("delete")
	release := repo.holds["delete"]
	svc, p, _ := newTestService(t, repo)

	_, err := svc.SetupTournament(ctx, "club", SetupInput{Names: []string{"A", "B"}})
	require.NoError(t, err)

	deleteDone := make(chan error, 1)
	go func() { deleteDone <- svc.DeleteTournament(ctx, "club") }()
	require.Equal(t, "delete", <-repo.entered)

	pairingsDone := make(chan error, 1)
	go func() {
		_, err := svc.GetCurrentPairings(ctx, "club")
		pairingsDone <- err
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)

	require.NoError(t, <-deleteDone)
	assert.ErrorIs(t, <-pairingsDone, ErrTournamentNotFound)
	require.NoError(t, p.Flush(ctx))

	_, err = repo.MemoryTournamentRepository.Load(ctx, "club")
	assert.ErrorIs(t, err, repositories.ErrTournamentNotFound)
}
