// Package store is the read interface over the relational store. Backends
// return only the rows the caller may see; every batch result is keyed by ID.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/AaronLay10/zbxport/internal/model"
)

// Row kinds. Templates are host rows, prototypes and discovery rules are
// item, trigger and graph rows told apart by Flags.
const (
	KindGroup         = model.KindGroup
	KindHost          = model.KindHost
	KindProxy         = model.KindProxy
	KindApplication   = model.KindApplication
	KindItem          = model.KindItem
	KindTrigger       = model.KindTrigger
	KindGraph         = model.KindGraph
	KindHostPrototype = model.KindHostPrototype
	KindHTTPTest      = model.KindHTTPTest
	KindValueMap      = model.KindValueMap
	KindMediaType     = model.KindMediaType
	KindScreen        = model.KindScreen
	KindImage         = model.KindImage
	KindMap           = model.KindMap
	KindIconMap       = model.KindIconMap
)

// Kinds lists every row kind.
var Kinds = []model.Kind{
	KindGroup, KindHost, KindProxy, KindApplication, KindItem, KindTrigger, KindGraph,
	KindHostPrototype, KindHTTPTest, KindValueMap, KindMediaType, KindScreen, KindImage,
	KindMap, KindIconMap,
}

// ErrClosed is returned by backends used after Close.
var ErrClosed = errors.New("store closed")

// Row is one stored object.
type Row struct {
	Kind model.Kind
	ID   string
	// Owners are the IDs ByOwner matches: the host of an item, the discovery
	// rule of a prototype, every host a trigger or graph spans.
	Owners []string
	// Key is the natural key ByKey matches, scoped by the first owner for
	// per-host kinds.
	Key     string
	Flags   model.Flags
	Payload json.RawMessage
}

// Backend is implemented by the storage packages.
type Backend interface {
	ByID(ctx context.Context, kind model.Kind, ids []string) (map[string]Row, error)
	ByOwner(ctx context.Context, kind model.Kind, owners []string) (map[string]Row, error)
	// ByKey returns every visible row of kind whose Key is one of keys. owner
	// scopes per-host kinds and is "" otherwise. Duplicates are returned as is.
	ByKey(ctx context.Context, kind model.Kind, owner string, keys []string) ([]Row, error)
	Put(ctx context.Context, rows ...Row) error
	Close() error
}

// NewRow encodes v as the payload of a row.
func NewRow(kind model.Kind, id string, v any, owners []string, key string, flags model.Flags) (Row, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Row{}, fmt.Errorf("encode %s %s: %w", kind, id, err)
	}
	return Row{Kind: kind, ID: id, Owners: owners, Key: key, Flags: flags, Payload: b}, nil
}

// Reader decodes backend rows into model types.
type Reader struct {
	b Backend
}

// NewReader wraps a backend.
func NewReader(b Backend) *Reader {
	return &Reader{b: b}
}

// Backend returns the wrapped backend.
func (r *Reader) Backend() Backend { return r.b }

func decode[T any](rows map[string]Row) (map[string]*T, error) {
	out := make(map[string]*T, len(rows))
	for id, row := range rows {
		v := new(T)
		if err := json.Unmarshal(row.Payload, v); err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", row.Kind, id, err)
		}
		out[id] = v
	}
	return out, nil
}

func byID[T any](ctx context.Context, r *Reader, kind model.Kind, ids []string) (map[string]*T, error) {
	if len(ids) == 0 {
		return map[string]*T{}, nil
	}
	rows, err := r.b.ByID(ctx, kind, ids)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", kind, err)
	}
	return decode[T](rows)
}

func byOwner[T any](ctx context.Context, r *Reader, kind model.Kind, owners []string) (map[string]*T, error) {
	if len(owners) == 0 {
		return map[string]*T{}, nil
	}
	rows, err := r.b.ByOwner(ctx, kind, owners)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", kind, err)
	}
	return decode[T](rows)
}

func (r *Reader) Groups(ctx context.Context, ids []string) (map[string]*model.Group, error) {
	return byID[model.Group](ctx, r, KindGroup, ids)
}

// Hosts returns hosts and templates.
func (r *Reader) Hosts(ctx context.Context, ids []string) (map[string]*model.Host, error) {
	return byID[model.Host](ctx, r, KindHost, ids)
}

func (r *Reader) Proxies(ctx context.Context, ids []string) (map[string]*model.Proxy, error) {
	return byID[model.Proxy](ctx, r, KindProxy, ids)
}

func (r *Reader) IconMaps(ctx context.Context, ids []string) (map[string]*model.IconMap, error) {
	return byID[model.IconMap](ctx, r, KindIconMap, ids)
}

func (r *Reader) Applications(ctx context.Context, ids []string) (map[string]*model.Application, error) {
	return byID[model.Application](ctx, r, KindApplication, ids)
}

func (r *Reader) ApplicationsByHost(ctx context.Context, hostIDs []string) (map[string]*model.Application, error) {
	return byOwner[model.Application](ctx, r, KindApplication, hostIDs)
}

// Items returns items, prototypes and discovery rules by ID.
func (r *Reader) Items(ctx context.Context, ids []string) (map[string]*model.Item, error) {
	return byID[model.Item](ctx, r, KindItem, ids)
}

// ItemsByOwner returns the items of hosts or the prototypes of discovery
// rules.
func (r *Reader) ItemsByOwner(ctx context.Context, owners []string) (map[string]*model.Item, error) {
	return byOwner[model.Item](ctx, r, KindItem, owners)
}

func (r *Reader) Triggers(ctx context.Context, ids []string) (map[string]*model.Trigger, error) {
	return byID[model.Trigger](ctx, r, KindTrigger, ids)
}

// TriggersByOwner returns triggers spanning hosts, or the trigger
// prototypes of discovery rules.
func (r *Reader) TriggersByOwner(ctx context.Context, owners []string) (map[string]*model.Trigger, error) {
	return byOwner[model.Trigger](ctx, r, KindTrigger, owners)
}

func (r *Reader) Graphs(ctx context.Context, ids []string) (map[string]*model.Graph, error) {
	return byID[model.Graph](ctx, r, KindGraph, ids)
}

func (r *Reader) GraphsByOwner(ctx context.Context, owners []string) (map[string]*model.Graph, error) {
	return byOwner[model.Graph](ctx, r, KindGraph, owners)
}

func (r *Reader) HostPrototypesByRule(ctx context.Context, ruleIDs []string) (map[string]*model.HostPrototype, error) {
	return byOwner[model.HostPrototype](ctx, r, KindHostPrototype, ruleIDs)
}

func (r *Reader) HTTPTestsByHost(ctx context.Context, hostIDs []string) (map[string]*model.HTTPTest, error) {
	return byOwner[model.HTTPTest](ctx, r, KindHTTPTest, hostIDs)
}

func (r *Reader) ValueMaps(ctx context.Context, ids []string) (map[string]*model.ValueMap, error) {
	return byID[model.ValueMap](ctx, r, KindValueMap, ids)
}

func (r *Reader) MediaTypes(ctx context.Context, ids []string) (map[string]*model.MediaType, error) {
	return byID[model.MediaType](ctx, r, KindMediaType, ids)
}

func (r *Reader) Screens(ctx context.Context, ids []string) (map[string]*model.Screen, error) {
	return byID[model.Screen](ctx, r, KindScreen, ids)
}

func (r *Reader) ScreensByTemplate(ctx context.Context, templateIDs []string) (map[string]*model.Screen, error) {
	return byOwner[model.Screen](ctx, r, KindScreen, templateIDs)
}

func (r *Reader) Images(ctx context.Context, ids []string) (map[string]*model.Image, error) {
	return byID[model.Image](ctx, r, KindImage, ids)
}

func (r *Reader) Maps(ctx context.Context, ids []string) (map[string]*model.Map, error) {
	return byID[model.Map](ctx, r, KindMap, ids)
}

// Lookup returns the visible rows of kind whose natural key is one of keys.
func (r *Reader) Lookup(ctx context.Context, kind model.Kind, owner string, keys []string) ([]Row, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	rows, err := r.b.ByKey(ctx, kind, owner, keys)
	if err != nil {
		return nil, fmt.Errorf("look up %s: %w", kind, err)
	}
	return rows, nil
}
