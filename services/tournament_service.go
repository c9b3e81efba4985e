package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/Dosada05/swiss-system/brackets"
	"github.com/Dosada05/swiss-system/metrics"
	"github.com/Dosada05/swiss-system/models"
	"github.com/Dosada05/swiss-system/repositories"
)

var tournamentIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// Broadcaster delivers live updates; *brackets.Hub implements it.
type Broadcaster interface {
	BroadcastToRoom(roomID string, message interface{})
}

type SetupInput struct {
	Names    []string `json:"names"`
	RoundMin *int     `json:"round_min,omitempty"`
	RoundMax *int     `json:"round_max,omitempty"`
}

type RoundPayload struct {
	TournamentID string           `json:"tournament_id"`
	Round        int              `json:"round"`
	Pairings     []models.Pairing `json:"pairings"`
}

type StandingsPayload struct {
	TournamentID string                  `json:"tournament_id"`
	Round        int                     `json:"round"`
	TotalRounds  int                     `json:"total_rounds"`
	Status       models.TournamentStatus `json:"status"`
	Standings    []models.Standing       `json:"standings"`
}

type TournamentServiceConfig struct {
	DefaultRoundMin int
	DefaultRoundMax int
	BuchholzScale   float64
}

type TournamentService interface {
	SetupTournament(ctx context.Context, id string, input SetupInput) (*TournamentView, error)
	GetTournament(ctx context.Context, id string) (*TournamentView, error)
	GetCurrentPairings(ctx context.Context, id string) ([]models.Pairing, error)
	SetPairings(ctx context.Context, id string, pairs [][2]string) ([]models.Pairing, error)
	CommitRound(ctx context.Context, id string, results map[int]models.Outcome) (*TournamentView, error)
	GetStandings(ctx context.Context, id string) ([]models.Standing, error)
	ListTournaments(ctx context.Context) ([]string, error)
	DeleteTournament(ctx context.Context, id string) error
	Close()
}

// session is the single owner of one tournament's state. Loading, every
// operation and deletion run under mu. A deleted session is dropped from the
// map; callers still holding it must fetch a fresh one.
type session struct {
	mu      sync.Mutex
	t       *models.Tournament
	loaded  bool
	deleted bool
}

type tournamentService struct {
	cfg       TournamentServiceConfig
	repo      repositories.TournamentRepository
	persister *Persister
	gens      brackets.Generators
	hub       Broadcaster
	metrics   *metrics.TournamentMetrics
	logger    *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

func NewTournamentService(
	cfg TournamentServiceConfig,
	repo repositories.TournamentRepository,
	persister *Persister,
	gens brackets.Generators,
	hub Broadcaster,
	m *metrics.TournamentMetrics,
	logger *slog.Logger,
) TournamentService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultRoundMin < 1 {
		cfg.DefaultRoundMin = 1
	}
	if cfg.DefaultRoundMax < 1 {
		cfg.DefaultRoundMax = cfg.DefaultRoundMin
	}
	if cfg.BuchholzScale <= 0 {
		cfg.BuchholzScale = DefaultBuchholzScale
	}
	return &tournamentService{
		cfg:       cfg,
		repo:      repo,
		persister: persister,
		gens:      gens,
		hub:       hub,
		metrics:   m,
		logger:    logger,
		sessions:  make(map[string]*session),
	}
}

func validateTournamentID(id string) error {
	if !tournamentIDPattern.MatchString(id) {
		return fmt.Errorf("%w: tournament id %q must be 1-64 letters, digits, '-' or '_'", ErrValidationFailed, id)
	}
	return nil
}

// entry returns the session registered for id, adding an empty one if needed.
func (s *tournamentService) entry(id string) *session {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok = s.sessions[id]; ok {
		return sess
	}
	sess = &session{}
	s.sessions[id] = sess
	s.metrics.SetActiveSessions(len(s.sessions))
	return sess
}

// drop removes sess from the map unless it was already replaced. The caller
// holds sess.mu.
func (s *tournamentService) drop(id string, sess *session) {
	sess.deleted = true
	s.mu.Lock()
	if s.sessions[id] == sess {
		delete(s.sessions, id)
	}
	s.metrics.SetActiveSessions(len(s.sessions))
	s.mu.Unlock()
}

// acquire returns the session for id with its mutex held, loading it on
// first use. A corrupt snapshot degrades to an empty tournament. A missing
// one does too when create is set; otherwise ErrTournamentNotFound is
// returned. The caller must unlock sess.mu.
func (s *tournamentService) acquire(ctx context.Context, id string, create bool) (*session, error) {
	if err := validateTournamentID(id); err != nil {
		return nil, err
	}

	for {
		sess := s.entry(id)
		sess.mu.Lock()
		if sess.deleted {
			sess.mu.Unlock()
			continue
		}
		if sess.loaded {
			return sess, nil
		}
		if err := s.load(ctx, id, sess, create); err != nil {
			s.drop(id, sess)
			sess.mu.Unlock()
			return nil, err
		}
		return sess, nil
	}
}

func (s *tournamentService) load(ctx context.Context, id string, sess *session, create bool) error {
	t, err := s.repo.Load(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, repositories.ErrSnapshotCorrupt):
		s.logger.Warn("tournament snapshot unreadable, starting empty",
			slog.String("tournament_id", id), slog.Any("error", err))
		t = models.NewTournament(id)
	case errors.Is(err, repositories.ErrTournamentNotFound):
		if !create {
			return fmt.Errorf("%w: %s", ErrTournamentNotFound, id)
		}
		s.logger.Info("no stored tournament, starting empty", slog.String("tournament_id", id))
		t = models.NewTournament(id)
	default:
		return fmt.Errorf("failed to load tournament %s: %w", id, err)
	}
	t.ID = id
	sess.t = t
	sess.loaded = true
	return nil
}

func (s *tournamentService) persist(t *models.Tournament) {
	if s.persister == nil {
		return
	}
	if err := s.persister.Enqueue(t); err != nil {
		s.logger.Error("failed to queue tournament snapshot",
			slog.String("tournament_id", t.ID), slog.Any("error", err))
	}
}

func (s *tournamentService) broadcast(t *models.Tournament, msgType string, payload interface{}) {
	if s.hub == nil {
		return
	}
	room := brackets.RoomForTournament(t.ID)
	s.hub.BroadcastToRoom(room, brackets.WebSocketMessage{
		Type:    msgType,
		Payload: payload,
		RoomID:  room,
	})
}

func (s *tournamentService) standingsPayload(t *models.Tournament) StandingsPayload {
	return StandingsPayload{
		TournamentID: t.ID,
		Round:        t.Round,
		TotalRounds:  t.TotalRounds,
		Status:       t.Status(),
		Standings:    Standings(t, s.cfg.BuchholzScale),
	}
}

func (s *tournamentService) SetupTournament(ctx context.Context, id string, input SetupInput) (*TournamentView, error) {
	if id == "" {
		id = uuid.NewString()
	}
	sess, err := s.acquire(ctx, id, true)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	roundMin, roundMax := s.cfg.DefaultRoundMin, s.cfg.DefaultRoundMax
	if input.RoundMin != nil {
		roundMin = *input.RoundMin
	}
	if input.RoundMax != nil {
		roundMax = *input.RoundMax
	}

	next, err := Setup(sess.t, input.Names, roundMin, roundMax)
	if err != nil {
		return nil, err
	}
	sess.t = next
	s.persist(next)
	s.metrics.TournamentSetup()
	s.broadcast(next, brackets.MessageTournamentSetup, s.standingsPayload(next))

	s.logger.Info("tournament set up",
		slog.String("tournament_id", next.ID),
		slog.Int("players", len(next.Players)),
		slog.Int("total_rounds", next.TotalRounds))

	view := toTournamentView(next)
	return &view, nil
}

func (s *tournamentService) GetTournament(ctx context.Context, id string) (*TournamentView, error) {
	sess, err := s.acquire(ctx, id, false)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	view := toTournamentView(sess.t)
	return &view, nil
}

func (s *tournamentService) GetCurrentPairings(ctx context.Context, id string) ([]models.Pairing, error) {
	sess, err := s.acquire(ctx, id, false)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	cur := sess.t
	next, pairs, err := EnterRound(ctx, cur, s.gens)
	if err != nil {
		var exhausted *brackets.PairingExhaustedError
		if errors.As(err, &exhausted) {
			s.metrics.PairingsExhausted()
			s.logger.Warn("swiss pairing exhausted",
				slog.String("tournament_id", id),
				slog.Int("round", cur.Round),
				slog.Any("unpaired", exhausted.Unpaired))
		}
		return pairs, err
	}
	if next == cur {
		return pairs, nil
	}

	sess.t = next
	s.persist(next)
	s.metrics.PairingsGenerated(s.gens.ForRound(next.Round).GetName())
	s.broadcast(next, brackets.MessagePairingsReady, RoundPayload{TournamentID: id, Round: next.Round, Pairings: pairs})
	s.logger.Info("round paired",
		slog.String("tournament_id", id),
		slog.Int("round", next.Round),
		slog.Int("boards", len(pairs)))
	return pairs, nil
}

func (s *tournamentService) SetPairings(ctx context.Context, id string, pairs [][2]string) ([]models.Pairing, error) {
	sess, err := s.acquire(ctx, id, false)
	if err != nil {
		return nil, err
	}

	defer sess.mu.Unlock()

	ids := make([][2]models.PlayerID, 0, len(pairs))
	for _, p := range pairs {
		ids = append(ids, [2]models.PlayerID{models.NewPlayerID(p[0]), models.NewPlayerID(p[1])})
	}

	next, out, err := SetPairings(sess.t, ids)
	if err != nil {
		return nil, err
	}
	sess.t = next
	s.persist(next)
	s.metrics.PairingsOverridden()
	s.broadcast(next, brackets.MessagePairingsReady, RoundPayload{TournamentID: id, Round: next.Round, Pairings: out})
	s.logger.Info("round paired manually",
		slog.String("tournament_id", id),
		slog.Int("round", next.Round))
	return out, nil
}

func (s *tournamentService) CommitRound(ctx context.Context, id string, results map[int]models.Outcome) (*TournamentView, error) {
	sess, err := s.acquire(ctx, id, false)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	committed := sess.t.Round
	next, err := CommitRound(sess.t, results)
	if err != nil {
		return nil, err
	}
	sess.t = next
	s.persist(next)

	completed := next.Status() == models.StatusCompleted
	s.metrics.RoundCommitted(completed)
	payload := s.standingsPayload(next)
	s.broadcast(next, brackets.MessageRoundCommitted, payload)
	if completed {
		s.broadcast(next, brackets.MessageTournamentCompleted, payload)
	}
	s.logger.Info("round committed",
		slog.String("tournament_id", id),
		slog.Int("round", committed),
		slog.Bool("completed", completed))

	view := toTournamentView(next)
	return &view, nil
}

func (s *tournamentService) GetStandings(ctx context.Context, id string) ([]models.Standing, error) {
	sess, err := s.acquire(ctx, id, false)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	return Standings(sess.t, s.cfg.BuchholzScale), nil
}

// ListTournaments merges stored IDs with sessions whose first save may
// still be queued.
func (s *tournamentService) ListTournaments(ctx context.Context) ([]string, error) {
	stored, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}

	seen := make(map[string]bool, len(stored))
	ids := make([]string, 0, len(stored))
	for _, id := range stored {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	s.mu.RLock()
	live := make(map[string]*session, len(s.sessions))
	for id, sess := range s.sessions {
		live[id] = sess
	}
	s.mu.RUnlock()

	for id, sess := range live {
		sess.mu.Lock()
		started := sess.loaded && !sess.deleted && sess.t.Round > 0
		sess.mu.Unlock()
		if started && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	sort.Strings(ids)
	return ids, nil
}

// DeleteTournament drops the session and the primary snapshot. It holds the
// session lock throughout, so an operation in flight finishes first and its
// queued save is flushed before the snapshot is removed.
func (s *tournamentService) DeleteTournament(ctx context.Context, id string) error {
	if err := validateTournamentID(id); err != nil {
		return err
	}

	var sess *session
	for {
		sess = s.entry(id)
		sess.mu.Lock()
		if !sess.deleted {
			break
		}
		sess.mu.Unlock()
	}
	defer sess.mu.Unlock()

	if s.persister != nil {
		if err := s.persister.Flush(ctx); err != nil {
			return fmt.Errorf("failed to flush pending snapshots: %w", err)
		}
	}
	err := s.repo.Delete(ctx, id)
	if err != nil && !errors.Is(err, repositories.ErrTournamentNotFound) {
		return fmt.Errorf("failed to delete tournament %s: %w", id, err)
	}

	inMemory := sess.loaded
	s.drop(id, sess)
	if err != nil && !inMemory {
		return fmt.Errorf("%w: %s", ErrTournamentNotFound, id)
	}
	s.logger.Info("tournament deleted", slog.String("tournament_id", id))
	return nil
}

// Close flushes queued snapshots. The service must not be used afterwards.
func (s *tournamentService) Close() {
	if s.persister != nil {
		s.persister.Close()
	}
}
