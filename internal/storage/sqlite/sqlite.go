// Package sqlite opens the configuration store and audit log in a local
// SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/AaronLay10/zbxport/internal/storage/sqlstore"
)

// Dialect is the SQLite flavour of the store schema.
var Dialect = sqlstore.Dialect{
	Name: "sqlite",
	Schema: `
		CREATE TABLE IF NOT EXISTS config_objects (
			kind    TEXT NOT NULL,
			id      TEXT NOT NULL,
			obj_key TEXT NOT NULL DEFAULT '',
			owner   TEXT NOT NULL DEFAULT '',
			flags   INTEGER NOT NULL DEFAULT 0,
			payload TEXT NOT NULL,
			PRIMARY KEY (kind, id)
		);
		CREATE INDEX IF NOT EXISTS idx_config_objects_key ON config_objects(kind, obj_key);
		CREATE TABLE IF NOT EXISTS config_owners (
			kind     TEXT NOT NULL,
			id       TEXT NOT NULL,
			owner    TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (kind, id, owner)
		);
		CREATE INDEX IF NOT EXISTS idx_config_owners_owner ON config_owners(kind, owner);
		CREATE TABLE IF NOT EXISTS audit_events (
			event_id     INTEGER PRIMARY KEY AUTOINCREMENT,
			ts           TEXT NOT NULL,
			level        TEXT NOT NULL,
			event        TEXT NOT NULL,
			msg          TEXT,
			fields       TEXT,
			operation_id TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_audit_events_ts ON audit_events(ts DESC);
	`,
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(ctx context.Context, path string) (*sqlstore.Store, error) {
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One connection keeps an in-memory database alive and serialises writers.
	db.SetMaxOpenConns(1)

	s, err := sqlstore.New(ctx, db, Dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}
