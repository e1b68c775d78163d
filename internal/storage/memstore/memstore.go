// Package memstore is an in-memory store backend. It backs tests and offline
// exports from YAML fixtures, and models visibility with a hidden set.
package memstore

import (
	"context"
	"slices"
	"sync"

	"github.com/AaronLay10/zbxport/internal/model"
	"github.com/AaronLay10/zbxport/internal/store"
)

type rowKey struct {
	kind model.Kind
	id   string
}

// Store keeps rows in maps guarded by a mutex.
type Store struct {
	mu     sync.RWMutex
	rows   map[rowKey]store.Row
	hidden map[rowKey]bool
	closed bool
}

// New returns an empty store.
func New() *Store {
	return &Store{
		rows:   make(map[rowKey]store.Row),
		hidden: make(map[rowKey]bool),
	}
}

// FromFixture returns a store holding the fixture's rows with its hidden
// rows already hidden.
func FromFixture(f *store.Fixture) (*Store, error) {
	rows, err := f.Rows()
	if err != nil {
		return nil, err
	}
	s := New()
	if err := s.Put(context.Background(), rows...); err != nil {
		return nil, err
	}
	for _, h := range f.Hidden {
		s.Hide(h.Kind, h.ID)
	}
	return s, nil
}

// Hide makes a row invisible to every read.
func (s *Store) Hide(kind model.Kind, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hidden[rowKey{kind, id}] = true
}

func (s *Store) visible(k rowKey) (store.Row, bool) {
	if s.hidden[k] {
		return store.Row{}, false
	}
	r, ok := s.rows[k]
	return r, ok
}

func (s *Store) ByID(ctx context.Context, kind model.Kind, ids []string) (map[string]store.Row, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]store.Row, len(ids))
	for _, id := range ids {
		if r, ok := s.visible(rowKey{kind, id}); ok {
			out[id] = r
		}
	}
	return out, nil
}

func (s *Store) ByOwner(ctx context.Context, kind model.Kind, owners []string) (map[string]store.Row, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]store.Row)
	for k := range s.rows {
		if k.kind != kind {
			continue
		}
		r, ok := s.visible(k)
		if !ok {
			continue
		}
		for _, o := range r.Owners {
			if slices.Contains(owners, o) {
				out[r.ID] = r
				break
			}
		}
	}
	return out, nil
}

func (s *Store) ByKey(ctx context.Context, kind model.Kind, owner string, keys []string) ([]store.Row, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.Row
	for k := range s.rows {
		if k.kind != kind {
			continue
		}
		r, ok := s.visible(k)
		if !ok || !slices.Contains(keys, r.Key) {
			continue
		}
		if owner != "" && (len(r.Owners) == 0 || r.Owners[0] != owner) {
			continue
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b store.Row) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out, nil
}

func (s *Store) Put(ctx context.Context, rows ...store.Row) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.rows[rowKey{r.Kind, r.ID}] = r
	}
	return nil
}

// Ping fails once the store is closed.
func (s *Store) Ping(ctx context.Context) error {
	return s.check(ctx)
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return store.ErrClosed
	}
	return nil
}
