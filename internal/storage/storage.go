// Package storage opens the store backend named by the configuration.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/AaronLay10/zbxport/internal/config"
	"github.com/AaronLay10/zbxport/internal/storage/memstore"
	"github.com/AaronLay10/zbxport/internal/storage/postgres"
	"github.com/AaronLay10/zbxport/internal/storage/sqlite"
	"github.com/AaronLay10/zbxport/internal/storage/sqlstore"
	"github.com/AaronLay10/zbxport/internal/store"
)

// Auditor is implemented by backends that keep the audit table.
type Auditor interface {
	Append(ctx context.Context, ts time.Time, level, event, msg string, fields map[string]any, operationID string) error
	Query(ctx context.Context, limit int) ([]sqlstore.AuditRow, error)
}

// Pinger is implemented by backends that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Healthy reports whether b answers a ping within timeout. Backends that
// cannot ping are taken as healthy.
func Healthy(ctx context.Context, b store.Backend, timeout time.Duration) bool {
	p, ok := b.(Pinger)
	if !ok {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Ping(ctx) == nil
}

// Open returns the backend cfg selects.
func Open(ctx context.Context, cfg *config.Config) (store.Backend, error) {
	switch cfg.Backend() {
	case config.BackendFixture:
		f, err := store.LoadFixture(cfg.Store.Fixture)
		if err != nil {
			return nil, err
		}
		s, err := memstore.FromFixture(f)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLitePath())
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendPostgres:
		dsn, err := cfg.PostgresDSN()
		if err != nil {
			return nil, err
		}
		c, err := postgres.New(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend())
}

// Seed writes the rows of a fixture into b. Hidden rows are written like
// any other: visibility belongs to the reading backend.
func Seed(ctx context.Context, b store.Backend, f *store.Fixture) (int, error) {
	rows, err := f.Rows()
	if err != nil {
		return 0, err
	}
	if err := b.Put(ctx, rows...); err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}
	return len(rows), nil
}
