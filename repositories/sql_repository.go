package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/swiss-system/models"
)

// SQLExecutor is satisfied by both *sql.DB and *sql.Tx.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Dialect selects placeholder syntax. Queries are written with '?'.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type SQLTournamentRepository struct {
	db            *sql.DB
	dialect       Dialect
	buchholzScale float64
}

// NewSQLTournamentRepository stores tournaments in db. buchholzScale is the
// scale of the informational buchholz column, matching the standings.
func NewSQLTournamentRepository(db *sql.DB, dialect Dialect, buchholzScale float64) *SQLTournamentRepository {
	return &SQLTournamentRepository{db: db, dialect: dialect, buchholzScale: buchholzScale}
}

type pairRow struct {
	Board  int    `json:"board"`
	First  string `json:"first"`
	Second string `json:"second"`
}

func (r *SQLTournamentRepository) Load(ctx context.Context, id string) (*models.Tournament, error) {
	var (
		t                    = models.NewTournament(id)
		pendingJSON          string
		createdAt, updatedAt string
	)
	query := r.dialect.rebind(`
		SELECT round, total_rounds, round_min, round_max, pending_pairs, created_at, updated_at
		FROM tournaments WHERE id = ?`)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.Round, &t.TotalRounds, &t.RoundMin, &t.RoundMax, &pendingJSON, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %s: %w", id, err)
	}
	t.CreatedAt = parseStoredTime(createdAt)
	t.UpdatedAt = parseStoredTime(updatedAt)

	players, err := r.loadPlayers(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Players = players

	var pairs []pairRow
	if err := json.Unmarshal([]byte(pendingJSON), &pairs); err != nil {
		return nil, fmt.Errorf("%w: pending pairs of %s: %w", ErrSnapshotCorrupt, id, err)
	}
	roster := models.PlayerIndex(t.Players)
	for _, p := range pairs {
		pair := models.Pairing{Board: p.Board, First: models.PlayerID(p.First), Second: models.PlayerID(p.Second)}
		if roster[pair.First] == nil || roster[pair.Second] == nil {
			return nil, fmt.Errorf("%w: pending pairing on board %d of %s references an unknown player", ErrSnapshotCorrupt, p.Board, id)
		}
		t.PendingPairs = append(t.PendingPairs, pair)
	}
	return t, nil
}

func (r *SQLTournamentRepository) loadPlayers(ctx context.Context, id string) ([]*models.Player, error) {
	query := r.dialect.rebind(`
		SELECT name, score, opponents, games
		FROM tournament_players WHERE tournament_id = ?
		ORDER BY position ASC`)
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load players of %s: %w", id, err)
	}
	defer rows.Close()

	var players []*models.Player
	for rows.Next() {
		var (
			name, opponentsJSON string
			score               float64
			games               int
		)
		if err := rows.Scan(&name, &score, &opponentsJSON, &games); err != nil {
			return nil, fmt.Errorf("failed to scan player of %s: %w", id, err)
		}
		var opponents []string
		if err := json.Unmarshal([]byte(opponentsJSON), &opponents); err != nil {
			return nil, fmt.Errorf("%w: opponents of %s in %s: %w", ErrSnapshotCorrupt, name, id, err)
		}
		p := models.NewPlayer(name)
		p.Score = score
		p.Games = games
		for _, o := range opponents {
			p.Opponents.Add(models.NewPlayerID(o))
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate players of %s: %w", id, err)
	}
	return players, nil
}

// Save replaces the tournament row and its roster in one transaction.
func (r *SQLTournamentRepository) Save(ctx context.Context, t *models.Tournament) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = r.upsertTournament(ctx, tx, t); err != nil {
		return err
	}
	if err = r.replacePlayers(ctx, tx, t); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tournament %s: %w", t.ID, err)
	}
	return nil
}

func (r *SQLTournamentRepository) upsertTournament(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	pairs := make([]pairRow, 0, len(t.PendingPairs))
	for _, p := range t.PendingPairs {
		pairs = append(pairs, pairRow{Board: p.Board, First: p.First.String(), Second: p.Second.String()})
	}
	pendingJSON, err := json.Marshal(pairs)
	if err != nil {
		return fmt.Errorf("failed to encode pending pairs: %w", err)
	}

	query := r.dialect.rebind(`
		INSERT INTO tournaments (id, round, total_rounds, round_min, round_max, pending_pairs, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			round = excluded.round,
			total_rounds = excluded.total_rounds,
			round_min = excluded.round_min,
			round_max = excluded.round_max,
			pending_pairs = excluded.pending_pairs,
			updated_at = excluded.updated_at`)
	_, err = exec.ExecContext(ctx, query,
		t.ID, t.Round, t.TotalRounds, t.RoundMin, t.RoundMax, string(pendingJSON),
		formatStoredTime(t.CreatedAt), formatStoredTime(t.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert tournament %s: %w", t.ID, err)
	}
	return nil
}

func (r *SQLTournamentRepository) replacePlayers(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	if _, err := exec.ExecContext(ctx, r.dialect.rebind(`DELETE FROM tournament_players WHERE tournament_id = ?`), t.ID); err != nil {
		return fmt.Errorf("failed to clear players of %s: %w", t.ID, err)
	}

	insert := r.dialect.rebind(`
		INSERT INTO tournament_players (tournament_id, position, name, score, opponents, buchholz, games)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	roster := models.PlayerIndex(t.Players)
	for i, p := range t.Players {
		opponents := make([]string, 0, len(p.Opponents))
		for _, id := range p.Opponents.Sorted() {
			opponents = append(opponents, id.String())
		}
		opponentsJSON, err := json.Marshal(opponents)
		if err != nil {
			return fmt.Errorf("failed to encode opponents of %s: %w", p.Name, err)
		}
		buchholz := models.ScaleTieBreak(p.OpponentScoreSum(roster), r.buchholzScale)
		if _, err := exec.ExecContext(ctx, insert, t.ID, i, p.Name, p.Score, string(opponentsJSON), buchholz, p.Games); err != nil {
			return fmt.Errorf("failed to insert player %s of %s: %w", p.Name, t.ID, err)
		}
	}
	return nil
}

func (r *SQLTournamentRepository) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM tournaments ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tournament id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SQLTournamentRepository) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, r.dialect.rebind(`DELETE FROM tournament_players WHERE tournament_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete players of %s: %w", id, err)
	}
	result, err := tx.ExecContext(ctx, r.dialect.rebind(`DELETE FROM tournaments WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete tournament %s: %w", id, err)
	}
	if err = checkAffectedRows(result, ErrTournamentNotFound); err != nil {
		return err
	}
	return tx.Commit()
}

func formatStoredTime(ts time.Time) string {
	if ts.IsZero() {
		ts = time.Now()
	}
	return ts.UTC().Format(time.RFC3339Nano)
}

func parseStoredTime(s string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return ts
}
