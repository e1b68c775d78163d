// Package postgres opens the configuration store and audit log on Postgres.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"

	"github.com/AaronLay10/zbxport/internal/storage/sqlstore"
)

// Dialect is the Postgres flavour of the store schema.
var Dialect = sqlstore.Dialect{
	Name:     "postgres",
	Numbered: true,
	Schema: `
		CREATE TABLE IF NOT EXISTS config_objects (
			kind    TEXT NOT NULL,
			id      TEXT NOT NULL,
			obj_key TEXT NOT NULL DEFAULT '',
			owner   TEXT NOT NULL DEFAULT '',
			flags   INTEGER NOT NULL DEFAULT 0,
			payload JSONB NOT NULL,
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
			event_id     BIGSERIAL PRIMARY KEY,
			ts           TIMESTAMPTZ NOT NULL,
			level        TEXT NOT NULL,
			event        TEXT NOT NULL,
			msg          TEXT,
			fields       JSONB,
			operation_id TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_audit_events_ts ON audit_events(ts DESC);
	`,
}

// Client wraps the shared SQL store with Postgres connection handling.
type Client struct {
	*sqlstore.Store
}

// DSN builds a connection string from the PG* environment variables.
func DSN() string {
	host := getEnv("PGHOST", "127.0.0.1")
	port := getEnv("PGPORT", "5432")
	user := getEnv("PGUSER", "zbxport")
	dbname := getEnv("PGDATABASE", "zbxport")
	password := os.Getenv("PGPASSWORD")

	if password != "" {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			host, port, user, password, dbname)
	}
	return fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable",
		host, port, user, dbname)
}

// New connects using dsn, or the environment when dsn is empty.
func New(ctx context.Context, dsn string) (*Client, error) {
	if dsn == "" {
		dsn = DSN()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s, err := sqlstore.New(ctx, db, Dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Client{Store: s}, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
