// Package service runs exports and imports as tracked operations: each run
// gets an operation ID, emits start and outcome events and feeds the metrics.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AaronLay10/zbxport/internal/events"
	"github.com/AaronLay10/zbxport/internal/export"
	"github.com/AaronLay10/zbxport/internal/format"
	"github.com/AaronLay10/zbxport/internal/importer"
	"github.com/AaronLay10/zbxport/internal/metrics"
	"github.com/AaronLay10/zbxport/internal/resolve"
	"github.com/AaronLay10/zbxport/internal/schema"
	"github.com/AaronLay10/zbxport/internal/store"
	"github.com/AaronLay10/zbxport/internal/validate"
)

// Service exports from and checks imports against one store.
type Service struct {
	reader *store.Reader
	log    *slog.Logger
	now    func() time.Time
}

// New returns a service reading from b.
func New(b store.Backend, log *slog.Logger) *Service {
	if log == nil {
		log = events.Logger()
	}
	return &Service{reader: store.NewReader(b), log: log, now: time.Now}
}

// WithClock replaces the clock used to date exported documents.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Export serializes the objects of sel in format f.
func (s *Service) Export(ctx context.Context, sel export.Selection, f format.Format) ([]byte, error) {
	op := events.NewOperationID()
	started := time.Now()
	events.Emit("info", "export.started", "", map[string]any{
		"operation_id": op,
		"format":       string(f),
		"selected":     selected(sel),
	})

	ex := export.NewExporter(s.reader, s.log.With("operation_id", op)).WithClock(s.now)
	data, err := ex.Export(ctx, sel, f)
	metrics.ObserveExport(started, err)
	if err != nil {
		events.Emit("error", "export.failed", err.Error(), map[string]any{
			"operation_id": op,
			"format":       string(f),
		})
		return nil, err
	}
	events.Emit("info", "export.completed", "", map[string]any{
		"operation_id": op,
		"format":       string(f),
		"bytes":        len(data),
		"duration_ms":  time.Since(started).Milliseconds(),
	})
	return data, nil
}

func selected(sel export.Selection) int {
	return len(sel.Groups) + len(sel.Templates) + len(sel.Hosts) + len(sel.Screens) +
		len(sel.Images) + len(sel.Maps) + len(sel.MediaTypes) + len(sel.ValueMaps)
}

// ImportResult summarizes a checked import.
type ImportResult struct {
	OperationID string               `json:"operation_id"`
	FromVersion string               `json:"from_version"`
	Version     string               `json:"version"`
	Counts      map[string]int       `json:"counts"`
	References  *importer.References `json:"references,omitempty"`
}

// CheckImport runs the import pipeline over data without persisting
// anything. With resolveRefs the document's outside references are also
// resolved against the store.
func (s *Service) CheckImport(ctx context.Context, data []byte, f format.Format, resolveRefs bool) (*ImportResult, error) {
	op := events.NewOperationID()
	started := time.Now()
	events.Emit("info", "import.started", "", map[string]any{
		"operation_id": op,
		"format":       string(f),
		"bytes":        len(data),
	})

	res, err := s.checkImport(ctx, op, data, f, resolveRefs)
	from := ""
	if res != nil {
		from = res.FromVersion
	}
	metrics.ObserveImport(started, from, err)
	if err != nil {
		fields := map[string]any{
			"operation_id": op,
			"format":       string(f),
		}
		var ve *validate.ValidationError
		if errors.As(err, &ve) {
			fields["path"] = ve.Path
		}
		events.Emit("error", "import.failed", err.Error(), fields)
		return nil, err
	}
	events.Emit("info", "import.completed", "", map[string]any{
		"operation_id": op,
		"from_version": res.FromVersion,
		"counts":       res.Counts,
		"duration_ms":  time.Since(started).Milliseconds(),
	})
	return res, nil
}

func (s *Service) checkImport(ctx context.Context, op string, data []byte, f format.Format, resolveRefs bool) (*ImportResult, error) {
	from := ""
	opts := importer.Options{
		Log: s.log.With("operation_id", op),
		OnConvert: func(prev, to string) {
			metrics.ObserveConversion(prev, to)
			events.Emit("info", "import.converted", "", map[string]any{
				"operation_id": op,
				"from":         prev,
				"to":           to,
			})
		},
		OnVersion: func(v string) { from = v },
	}
	a, err := importer.Import(ctx, data, f, opts)
	if err != nil {
		return &ImportResult{FromVersion: from}, err
	}
	res := &ImportResult{
		OperationID: op,
		FromVersion: from,
		Version:     schema.CurrentVersion,
		Counts:      a.Counts(),
	}
	if resolveRefs {
		refs, err := importer.ResolveReferences(ctx, a, resolve.New(s.reader))
		if err != nil {
			return res, err
		}
		res.References = refs
	}
	return res, nil
}

// Convert upgrades data to the current version and writes it in format to.
func (s *Service) Convert(ctx context.Context, data []byte, from, to format.Format) ([]byte, string, error) {
	op := events.NewOperationID()
	doc, version, err := importer.Convert(ctx, data, from, importer.Options{
		Log: s.log.With("operation_id", op),
		OnConvert: func(prev, next string) {
			metrics.ObserveConversion(prev, next)
			events.Emit("info", "import.converted", "", map[string]any{
				"operation_id": op,
				"from":         prev,
				"to":           next,
			})
		},
	})
	if err != nil {
		return nil, version, err
	}
	w, err := format.NewWriter(to)
	if err != nil {
		return nil, version, err
	}
	out, err := w.Write(doc)
	if err != nil {
		return nil, version, fmt.Errorf("write %s: %w", to, err)
	}
	return out, version, nil
}
