package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/swiss-system/metrics"
	"github.com/Dosada05/swiss-system/models"
	"github.com/Dosada05/swiss-system/repositories"
)

const persistWriteTimeout = 15 * time.Second

var ErrPersisterClosed = errors.New("persister is closed")

// PersistTarget is one backend snapshots are written to.
type PersistTarget struct {
	Name string
	Repo repositories.TournamentRepository
}

type persistItem struct {
	t    *models.Tournament
	done chan struct{}
}

// Persister writes snapshots in the order they were enqueued, off the
// request path. The queue is unbounded so Enqueue never waits on storage.
// Each snapshot goes to every target concurrently; a failed write is logged
// and never rolls back the in-memory state.
type Persister struct {
	targets []PersistTarget
	logger  *slog.Logger
	metrics *metrics.TournamentMetrics

	mu      sync.Mutex
	closed  bool
	pending []persistItem
	wake    chan struct{}
	wg      sync.WaitGroup
}

func NewPersister(logger *slog.Logger, m *metrics.TournamentMetrics, targets ...PersistTarget) *Persister {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Persister{
		targets: targets,
		logger:  logger,
		metrics: m,
		wake:    make(chan struct{}, 1),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Enqueue schedules a copy of t for saving.
func (p *Persister) Enqueue(t *models.Tournament) error {
	return p.push(persistItem{t: t.Clone()})
}

// Flush blocks until everything enqueued before it has been written.
func (p *Persister) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if err := p.push(persistItem{done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Persister) push(item persistItem) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPersisterClosed
	}
	p.pending = append(p.pending, item)
	depth := len(p.pending)
	p.mu.Unlock()

	p.metrics.SetSnapshotQueueDepth(depth)
	p.signal()
	return nil
}

func (p *Persister) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Close drains the queue and stops the worker.
func (p *Persister) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.signal()
	p.wg.Wait()
}

func (p *Persister) run() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		batch := p.pending
		p.pending = nil
		closed := p.closed
		p.mu.Unlock()

		if len(batch) == 0 {
			if closed {
				return
			}
			<-p.wake
			continue
		}

		p.metrics.SetSnapshotQueueDepth(0)
		for _, item := range batch {
			if item.t != nil {
				p.write(item.t)
			}
			if item.done != nil {
				close(item.done)
			}
		}
	}
}

func (p *Persister) write(t *models.Tournament) {
	ctx, cancel := context.WithTimeout(context.Background(), persistWriteTimeout)
	defer cancel()

	// A plain group: a failing mirror must not cancel the primary write.
	var g errgroup.Group
	for _, target := range p.targets {
		target := target
		g.Go(func() error {
			err := target.Repo.Save(ctx, t)
			p.metrics.SnapshotWrite(target.Name, err)
			if err != nil {
				p.logger.Error("failed to persist tournament",
					slog.String("tournament_id", t.ID),
					slog.String("backend", target.Name),
					slog.Int("round", t.Round),
					slog.Any("error", err))
			}
			return err
		})
	}
	if err := g.Wait(); err == nil {
		p.logger.Debug("tournament persisted",
			slog.String("tournament_id", t.ID),
			slog.Int("round", t.Round),
			slog.Int("targets", len(p.targets)))
	}
}
