package db

import (
	"context"

	"github.com/yumyai/cgcompare/internal/config"
	"github.com/yumyai/cgcompare/pkg/job"
)

// Stores bundles the job stores the service runs with.
// Status answers status queries; Archive keeps jobs that were explicitly
// stored. With CGCOMPARE_STORE=sqlite both are the same database.
type Stores struct {
	Status  job.Store
	Archive job.Store

	sqlite *SQLiteStore
}

func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	durable, err := OpenSQLite(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, err
	}

	s := &Stores{Archive: durable, sqlite: durable}
	switch cfg.Store {
	case config.StoreSQLite:
		s.Status = durable
	default:
		s.Status = NewMemoryStore(cfg.StatusCap, cfg.StatusTTL)
	}
	return s, nil
}

func (s *Stores) Close() error {
	if s.sqlite == nil {
		return nil
	}
	return s.sqlite.Close()
}
