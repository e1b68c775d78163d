package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AaronLay10/zbxport/internal/format"
	"github.com/AaronLay10/zbxport/internal/resolve"
	"github.com/AaronLay10/zbxport/internal/store"
	"github.com/AaronLay10/zbxport/internal/tree"
)

// Exporter runs gather, build and write as one all-or-nothing operation.
type Exporter struct {
	gatherer *Gatherer
	builder  *Builder
	now      func() time.Time
}

// NewExporter returns an exporter over a store reader.
func NewExporter(r *store.Reader, log *slog.Logger) *Exporter {
	return &Exporter{
		gatherer: NewGatherer(r, resolve.New(r), log),
		builder:  NewBuilder(nil),
		now:      time.Now,
	}
}

// WithClock replaces the clock used to date documents.
func (e *Exporter) WithClock(now func() time.Time) *Exporter {
	e.now = now
	return e
}

// Document gathers and builds the document tree of sel.
func (e *Exporter) Document(ctx context.Context, sel Selection) (*tree.Node, error) {
	cat, err := e.gatherer.Gather(ctx, sel)
	if err != nil {
		return nil, err
	}
	return e.builder.BuildAt(cat, e.now())
}

// Export returns the serialized document of sel.
func (e *Exporter) Export(ctx context.Context, sel Selection, f format.Format) ([]byte, error) {
	w, err := format.NewWriter(f)
	if err != nil {
		return nil, err
	}
	doc, err := e.Document(ctx, sel)
	if err != nil {
		return nil, err
	}
	data, err := w.Write(doc)
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", f, err)
	}
	return data, nil
}
