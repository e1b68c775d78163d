// Package sqlstore implements the store backend on database/sql. The postgres
// and sqlite packages supply the driver and a Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/AaronLay10/zbxport/internal/model"
	"github.com/AaronLay10/zbxport/internal/store"
)

// Dialect holds what differs between SQL engines.
type Dialect struct {
	Name string
	// Numbered placeholders ($1, $2) instead of "?".
	Numbered bool
	// Schema creates the tables if they do not exist.
	Schema string
}

// Rebind rewrites "?" placeholders for the dialect.
func (d Dialect) Rebind(query string) string {
	if !d.Numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Store is a store.Backend and audit log over one database.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New creates the schema and returns the store. The store owns db.
func New(ctx context.Context, db *sql.DB, d Dialect) (*Store, error) {
	if _, err := db.ExecContext(ctx, d.Schema); err != nil {
		return nil, fmt.Errorf("create %s schema: %w", d.Name, err)
	}
	return &Store{db: db, dialect: d}, nil
}

// DB returns the underlying database.
func (s *Store) DB() *sql.DB { return s.db }

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func args(kind model.Kind, values []string) []any {
	out := make([]any, 0, len(values)+1)
	out = append(out, string(kind))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

func (s *Store) ByID(ctx context.Context, kind model.Kind, ids []string) (map[string]store.Row, error) {
	if len(ids) == 0 {
		return map[string]store.Row{}, nil
	}
	query := `SELECT id, obj_key, flags, payload FROM config_objects WHERE kind = ? AND id IN (` + placeholders(len(ids)) + `)`
	rows, err := s.query(ctx, kind, query, args(kind, ids)...)
	if err != nil {
		return nil, err
	}
	return s.index(ctx, kind, rows)
}

func (s *Store) ByOwner(ctx context.Context, kind model.Kind, owners []string) (map[string]store.Row, error) {
	if len(owners) == 0 {
		return map[string]store.Row{}, nil
	}
	query := `SELECT id, obj_key, flags, payload FROM config_objects
		WHERE kind = ? AND id IN (
			SELECT id FROM config_owners WHERE kind = ? AND owner IN (` + placeholders(len(owners)) + `)
		)`
	a := append([]any{string(kind)}, args(kind, owners)...)
	rows, err := s.query(ctx, kind, query, a...)
	if err != nil {
		return nil, err
	}
	return s.index(ctx, kind, rows)
}

func (s *Store) ByKey(ctx context.Context, kind model.Kind, owner string, keys []string) ([]store.Row, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	query := `SELECT id, obj_key, flags, payload FROM config_objects WHERE kind = ? AND obj_key IN (` + placeholders(len(keys)) + `)`
	a := args(kind, keys)
	if owner != "" {
		query += ` AND owner = ?`
		a = append(a, owner)
	}
	query += ` ORDER BY id`
	rows, err := s.query(ctx, kind, query, a...)
	if err != nil {
		return nil, err
	}
	if err := s.attachOwners(ctx, kind, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) query(ctx context.Context, kind model.Kind, query string, a ...any) ([]store.Row, error) {
	rs, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), a...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", kind, err)
	}
	defer rs.Close()
	var out []store.Row
	for rs.Next() {
		r := store.Row{Kind: kind}
		var payload []byte
		if err := rs.Scan(&r.ID, &r.Key, &r.Flags, &payload); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		r.Payload = payload
		out = append(out, r)
	}
	return out, rs.Err()
}

func (s *Store) index(ctx context.Context, kind model.Kind, rows []store.Row) (map[string]store.Row, error) {
	if err := s.attachOwners(ctx, kind, rows); err != nil {
		return nil, err
	}
	out := make(map[string]store.Row, len(rows))
	for _, r := range rows {
		out[r.ID] = r
	}
	return out, nil
}

func (s *Store) attachOwners(ctx context.Context, kind model.Kind, rows []store.Row) error {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]string, len(rows))
	pos := make(map[string]int, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
		pos[r.ID] = i
	}
	query := `SELECT id, owner FROM config_owners WHERE kind = ? AND id IN (` + placeholders(len(ids)) + `) ORDER BY id, position`
	rs, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args(kind, ids)...)
	if err != nil {
		return fmt.Errorf("query %s owners: %w", kind, err)
	}
	defer rs.Close()
	for rs.Next() {
		var id, owner string
		if err := rs.Scan(&id, &owner); err != nil {
			return fmt.Errorf("scan %s owners: %w", kind, err)
		}
		i := pos[id]
		rows[i].Owners = append(rows[i].Owners, owner)
	}
	return rs.Err()
}

// Put inserts or replaces rows in one transaction.
func (s *Store) Put(ctx context.Context, rows ...store.Row) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	upsert := s.dialect.Rebind(`INSERT INTO config_objects (kind, id, obj_key, owner, flags, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (kind, id) DO UPDATE SET
			obj_key = excluded.obj_key, owner = excluded.owner,
			flags = excluded.flags, payload = excluded.payload`)
	clear := s.dialect.Rebind(`DELETE FROM config_owners WHERE kind = ? AND id = ?`)
	link := s.dialect.Rebind(`INSERT INTO config_owners (kind, id, owner, position) VALUES (?, ?, ?, ?)`)

	for _, r := range rows {
		owner := ""
		if len(r.Owners) > 0 {
			owner = r.Owners[0]
		}
		if _, err := tx.ExecContext(ctx, upsert, string(r.Kind), r.ID, r.Key, owner, int(r.Flags), string(r.Payload)); err != nil {
			return fmt.Errorf("insert %s %s: %w", r.Kind, r.ID, err)
		}
		if _, err := tx.ExecContext(ctx, clear, string(r.Kind), r.ID); err != nil {
			return fmt.Errorf("clear %s %s owners: %w", r.Kind, r.ID, err)
		}
		for i, o := range r.Owners {
			if _, err := tx.ExecContext(ctx, link, string(r.Kind), r.ID, o, i); err != nil {
				return fmt.Errorf("link %s %s: %w", r.Kind, r.ID, err)
			}
		}
	}
	return tx.Commit()
}
