package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Dosada05/swiss-system/config"
	"github.com/Dosada05/swiss-system/db"
	"github.com/Dosada05/swiss-system/storage"
)

const connectTimeout = 5 * time.Second

// OpenBackend builds the repository named by backend. buchholzScale is the
// scale used for the stored buchholz values. The returned close function
// releases database handles and is never nil.
func OpenBackend(ctx context.Context, backend string, cfg config.StorageConfig, buchholzScale float64) (TournamentRepository, func() error, error) {
	noop := func() error { return nil }

	switch backend {
	case config.BackendMemory:
		return NewMemoryTournamentRepository(), noop, nil

	case config.BackendFile:
		store, err := storage.NewFileObjectStore(cfg.DataDir)
		if err != nil {
			return nil, noop, err
		}
		return NewObjectTournamentRepository(store, false, buchholzScale), noop, nil

	case config.BackendS3:
		store, err := storage.NewS3ObjectStore(ctx, storage.S3ObjectStoreConfig{
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			AccountID:       cfg.S3.AccountID,
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
		if err != nil {
			return nil, noop, err
		}
		return NewObjectTournamentRepository(store, cfg.S3.Gzip, buchholzScale), noop, nil

	case config.BackendSQLite, config.BackendPostgres:
		driver, dsn, dialect := db.DriverSQLite, cfg.SQLitePath, DialectSQLite
		if backend == config.BackendPostgres {
			driver, dsn, dialect = db.DriverPostgres, cfg.DatabaseURL, DialectPostgres
		}
		conn, err := db.Connect(driver, dsn, connectTimeout)
		if err != nil {
			return nil, noop, err
		}
		if err := ApplyMigrations(ctx, conn, dialect); err != nil {
			conn.Close()
			return nil, noop, fmt.Errorf("failed to migrate %s database: %w", backend, err)
		}
		return NewSQLTournamentRepository(conn, dialect, buchholzScale), conn.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", backend)
	}
}
