package repositories

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Dosada05/swiss-system/models"
	"github.com/Dosada05/swiss-system/storage"
)

const snapshotSuffix = ".json"

// ObjectTournamentRepository stores one JSON snapshot per tournament in an
// object store. With Gzip set, snapshots are compressed and keyed with a
// ".gz" suffix.
type ObjectTournamentRepository struct {
	store         storage.ObjectStore
	gzip          bool
	buchholzScale float64
}

func NewObjectTournamentRepository(store storage.ObjectStore, gzipSnapshots bool, buchholzScale float64) *ObjectTournamentRepository {
	return &ObjectTournamentRepository{store: store, gzip: gzipSnapshots, buchholzScale: buchholzScale}
}

func (r *ObjectTournamentRepository) key(id string) string {
	if r.gzip {
		return id + snapshotSuffix + ".gz"
	}
	return id + snapshotSuffix
}

func (r *ObjectTournamentRepository) Load(ctx context.Context, id string) (*models.Tournament, error) {
	data, err := r.store.Get(ctx, r.key(id))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %s: %w", id, err)
	}

	if r.gzip {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: open compressed snapshot %s: %w", ErrSnapshotCorrupt, id, err)
		}
		defer zr.Close()
		if data, err = io.ReadAll(zr); err != nil {
			return nil, fmt.Errorf("%w: read compressed snapshot %s: %w", ErrSnapshotCorrupt, id, err)
		}
	}

	t, err := DecodeSnapshot(data)
	if err != nil {
		return nil, err
	}
	if t.ID == "" {
		t.ID = id
	}
	return t, nil
}

func (r *ObjectTournamentRepository) Save(ctx context.Context, t *models.Tournament) error {
	data, err := EncodeSnapshot(t, r.buchholzScale)
	if err != nil {
		return fmt.Errorf("failed to encode tournament %s: %w", t.ID, err)
	}

	contentType := "application/json"
	if r.gzip {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return fmt.Errorf("failed to gzip tournament %s: %w", t.ID, err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("failed to close gzip writer for %s: %w", t.ID, err)
		}
		data = buf.Bytes()
		contentType = "application/gzip"
	}

	if err := r.store.Put(ctx, r.key(t.ID), contentType, data); err != nil {
		return fmt.Errorf("failed to save tournament %s: %w", t.ID, err)
	}
	return nil
}

func (r *ObjectTournamentRepository) List(ctx context.Context) ([]string, error) {
	keys, err := r.store.List(ctx, "")
	if err != nil {
		return nil, err
	}
	suffix := r.key("")
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		if !strings.HasSuffix(k, suffix) {
			continue
		}
		if id := strings.TrimSuffix(k, suffix); id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *ObjectTournamentRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, r.key(id)); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to delete tournament %s: %w", id, err)
	}
	return nil
}
