package resolve

import (
	"context"
	"fmt"

	"github.com/AaronLay10/zbxport/internal/model"
	"github.com/AaronLay10/zbxport/internal/store"
)

func uniqueKeys(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// ids maps every key to the single visible row carrying it.
func (s *Resolver) ids(ctx context.Context, kind model.Kind, owner string, keys []string) (map[string]string, error) {
	keys = uniqueKeys(keys)
	if len(keys) == 0 {
		return map[string]string{}, nil
	}
	rows, err := s.r.Lookup(ctx, kind, owner, keys)
	if err != nil {
		return nil, err
	}
	return matchRows(kind, keys, rows)
}

func matchRows(kind model.Kind, keys []string, rows []store.Row) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	for _, r := range rows {
		if _, dup := out[r.Key]; dup {
			return nil, &ReferenceError{Kind: kind, Key: r.Key, Ambiguous: true}
		}
		out[r.Key] = r.ID
	}
	if err := complete(kind, keys, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Resolver) GroupIDs(ctx context.Context, names []string) (map[string]string, error) {
	return s.ids(ctx, model.KindGroup, "", names)
}

// HostIDs resolves technical names of hosts and templates.
func (s *Resolver) HostIDs(ctx context.Context, hosts []string) (map[string]string, error) {
	return s.ids(ctx, model.KindHost, "", hosts)
}

func (s *Resolver) ProxyIDs(ctx context.Context, hosts []string) (map[string]string, error) {
	return s.ids(ctx, model.KindProxy, "", hosts)
}

func (s *Resolver) ValueMapIDs(ctx context.Context, names []string) (map[string]string, error) {
	return s.ids(ctx, model.KindValueMap, "", names)
}

func (s *Resolver) ImageIDs(ctx context.Context, names []string) (map[string]string, error) {
	return s.ids(ctx, model.KindImage, "", names)
}

func (s *Resolver) MapIDs(ctx context.Context, names []string) (map[string]string, error) {
	return s.ids(ctx, model.KindMap, "", names)
}

// ItemIDs resolves host and key pairs. The host must resolve first.
func (s *Resolver) ItemIDs(ctx context.Context, refs []model.ItemRef) (map[model.ItemRef]string, error) {
	var hosts []string
	byHost := make(map[string][]string)
	for _, ref := range refs {
		if _, ok := byHost[ref.Host]; !ok {
			hosts = append(hosts, ref.Host)
		}
		byHost[ref.Host] = append(byHost[ref.Host], ref.Key)
	}
	hostIDs, err := s.HostIDs(ctx, hosts)
	if err != nil {
		return nil, err
	}
	out := make(map[model.ItemRef]string, len(refs))
	for _, h := range hosts {
		keys := uniqueKeys(byHost[h])
		rows, err := s.r.Lookup(ctx, model.KindItem, hostIDs[h], keys)
		if err != nil {
			return nil, err
		}
		got, err := matchRows(model.KindItem, keys, rows)
		if err != nil {
			var re *ReferenceError
			if asRef(err, &re) {
				re.Key = model.ItemRef{Host: h, Key: re.Key}.NaturalKey().String()
			}
			return nil, err
		}
		for k, id := range got {
			out[model.ItemRef{Host: h, Key: k}] = id
		}
	}
	return out, nil
}

// Backward resolves one natural key of kind.
func (s *Resolver) Backward(ctx context.Context, kind model.Kind, key model.NaturalKey) (string, error) {
	one := func(m map[string]string, k string, err error) (string, error) {
		if err != nil {
			return "", err
		}
		return m[k], nil
	}
	switch kind {
	case model.KindGroup:
		k := key.Get("name")
		m, err := s.GroupIDs(ctx, []string{k})
		return one(m, k, err)
	case model.KindHost, model.KindTemplate:
		k := key.Get("host")
		m, err := s.HostIDs(ctx, []string{k})
		return one(m, k, err)
	case model.KindProxy:
		k := key.Get("name")
		m, err := s.ProxyIDs(ctx, []string{k})
		return one(m, k, err)
	case model.KindValueMap:
		k := key.Get("name")
		m, err := s.ValueMapIDs(ctx, []string{k})
		return one(m, k, err)
	case model.KindImage:
		k := key.Get("name")
		m, err := s.ImageIDs(ctx, []string{k})
		return one(m, k, err)
	case model.KindMap:
		k := key.Get("name")
		m, err := s.MapIDs(ctx, []string{k})
		return one(m, k, err)
	case model.KindItem:
		ref := model.ItemRef{Host: key.Get("host"), Key: key.Get("key")}
		m, err := s.ItemIDs(ctx, []model.ItemRef{ref})
		if err != nil {
			return "", err
		}
		return m[ref], nil
	}
	return "", fmt.Errorf("resolve %s: unsupported kind", kind)
}
