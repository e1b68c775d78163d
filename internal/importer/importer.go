// Package importer reads documents of any supported version, upgrades them
// to the current version and adapts them into per-entity collections keyed
// by natural keys.
package importer

import (
	"context"
	"log/slog"

	"github.com/AaronLay10/zbxport/internal/convert"
	"github.com/AaronLay10/zbxport/internal/format"
	"github.com/AaronLay10/zbxport/internal/schema"
	"github.com/AaronLay10/zbxport/internal/tree"
	"github.com/AaronLay10/zbxport/internal/validate"
)

// Options tune an import.
type Options struct {
	Log *slog.Logger
	// OnVersion is called with the declared version once it is known.
	OnVersion func(version string)
	// OnConvert is called after each successful upgrade step.
	OnConvert func(from, to string)
}

func (o Options) logger() *slog.Logger {
	if o.Log == nil {
		return slog.Default()
	}
	return o.Log
}

// Convert reads data and upgrades it to the current version. It returns the
// validated portable document and the version it was declared with.
func Convert(ctx context.Context, data []byte, f format.Format, opts Options) (*tree.Node, string, error) {
	r, err := format.NewReader(f)
	if err != nil {
		return nil, "", err
	}
	root, err := r.Read(data)
	if err != nil {
		return nil, "", err
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	version, err := validate.Document(root)
	if err != nil {
		return nil, "", err
	}
	if opts.OnVersion != nil {
		opts.OnVersion(version)
	}
	doc, err := validate.Version(root, version)
	if err != nil {
		return nil, version, err
	}

	log := opts.logger()
	check := func(doc *tree.Node, to string) (*tree.Node, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := validate.Version(doc, to)
		if err != nil {
			return nil, err
		}
		log.Debug("document converted", "version", to)
		if opts.OnConvert != nil {
			opts.OnConvert(previous(to), to)
		}
		return out, nil
	}
	doc, err = convert.Upgrade(doc, version, check)
	if err != nil {
		return nil, version, err
	}
	return doc, version, nil
}

func previous(version string) string {
	for _, c := range convert.Chain() {
		if c.To == version {
			return c.From
		}
	}
	return ""
}

// Import runs the whole pipeline and returns the loaded adapter.
func Import(ctx context.Context, data []byte, f format.Format, opts Options) (*Adapter, error) {
	doc, _, err := Convert(ctx, data, f, opts)
	if err != nil {
		return nil, err
	}
	rule := schema.Current()
	internal, err := ToInternal(doc, rule)
	if err != nil {
		return nil, err
	}
	FillDefaults(internal, rule)

	a := NewAdapter()
	if err := a.Load(internal); err != nil {
		return nil, err
	}
	return a, nil
}
