// Package api serves exports, import checks and the event stream over HTTP.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AaronLay10/zbxport/internal/events"
	"github.com/AaronLay10/zbxport/internal/export"
	"github.com/AaronLay10/zbxport/internal/format"
	"github.com/AaronLay10/zbxport/internal/resolve"
	"github.com/AaronLay10/zbxport/internal/schema"
	"github.com/AaronLay10/zbxport/internal/service"
	"github.com/AaronLay10/zbxport/internal/storage/sqlstore"
	"github.com/AaronLay10/zbxport/internal/validate"
)

// maxDocumentBytes bounds request bodies.
var maxDocumentBytes int64 = 64 << 20

// bodyStatus maps a failed body read to 413 when the limit was hit and to
// 400 otherwise.
func bodyStatus(err error) int {
	if errors.As(err, new(*http.MaxBytesError)) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// AuditLog is the part of the SQL store the audit endpoint reads.
type AuditLog interface {
	Query(ctx context.Context, limit int) ([]sqlstore.AuditRow, error)
}

var (
	stateMu            sync.RWMutex
	svc                *service.Service
	auditLog           AuditLog
	defaultFormat      = format.XML
	selectionValidator = validator.New()
)

// SetService sets the service export and import requests run against.
func SetService(s *service.Service) {
	stateMu.Lock()
	svc = s
	stateMu.Unlock()
}

// SetAuditLog sets the audit table served at /audit. Nil disables it.
func SetAuditLog(a AuditLog) {
	stateMu.Lock()
	auditLog = a
	stateMu.Unlock()
}

// SetDefaultFormat sets the format used when a request names none.
func SetDefaultFormat(f format.Format) {
	stateMu.Lock()
	defaultFormat = f
	stateMu.Unlock()
}

func current() (*service.Service, AuditLog, format.Format) {
	stateMu.RLock()
	defer stateMu.RUnlock()
	return svc, auditLog, defaultFormat
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Hostname  string `json:"hostname"`
	Timestamp string `json:"ts"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()
	resp := HealthResponse{
		Status:    "ok",
		Service:   "zbxport",
		Hostname:  host,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	writeJSON(w, http.StatusOK, resp)
}

// queryLimit reads ?limit=, returning def when absent or invalid.
func queryLimit(r *http.Request, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func eventsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, events.RecentEvents(queryLimit(r, 0), eventFilter(r)))
}

func auditHandler(w http.ResponseWriter, r *http.Request) {
	_, a, _ := current()
	if a == nil {
		writeError(w, http.StatusNotFound, errors.New("audit log not available for this store"))
		return
	}
	rows, err := a.Query(r.Context(), queryLimit(r, 200))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Path  string `json:"path,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := ErrorResponse{Error: err.Error()}
	var ve *validate.ValidationError
	if errors.As(err, &ve) {
		resp.Path = ve.Path
	}
	writeJSON(w, status, resp)
}

// statusOf maps pipeline errors to HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, format.ErrUnknownFormat):
		return http.StatusBadRequest
	case errors.Is(err, format.ErrSyntax),
		errors.Is(err, format.ErrUnrepresentable),
		errors.Is(err, validate.ErrValidation),
		errors.Is(err, schema.ErrUnsupportedVersion):
		return http.StatusUnprocessableEntity
	case errors.Is(err, resolve.ErrReference):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

var contentTypes = map[format.Format]string{
	format.XML:  "application/xml; charset=utf-8",
	format.JSON: "application/json",
	format.YAML: "application/yaml",
}

// requestFormat reads ?format=, falling back to def.
func requestFormat(r *http.Request, def format.Format) (format.Format, error) {
	name := r.URL.Query().Get("format")
	if name == "" {
		return def, nil
	}
	return format.Parse(name)
}

func exportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	s, _, def := current()
	if s == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("store not ready"))
		return
	}
	f, err := requestFormat(r, def)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var sel export.Selection
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDocumentBytes)).Decode(&sel); err != nil {
		writeError(w, bodyStatus(err), fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if err := selectionValidator.Struct(sel); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid selection: %w", err))
		return
	}

	data, err := s.Export(r.Context(), sel, f)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[f])
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func importCheckHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	s, _, def := current()
	if s == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("store not ready"))
		return
	}
	f, err := requestFormat(r, def)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err != nil {
		writeError(w, bodyStatus(err), fmt.Errorf("read document: %w", err))
		return
	}
	resolveRefs, _ := strconv.ParseBool(r.URL.Query().Get("resolve"))

	res, err := s.CheckImport(r.Context(), data, f, resolveRefs)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// NewMux returns the API routes.
func NewMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/events", RequireAnyRole(eventsHandler))
	mux.HandleFunc("/ws", RequireAnyRole(wsEventsHandler))
	mux.HandleFunc("/audit", RequireAdmin(auditHandler))
	mux.HandleFunc("/export", RequireAdmin(exportHandler))
	mux.HandleFunc("/import/check", RequireAnyRole(importCheckHandler))
	return mux
}

// statusRecorder captures the response status for request events.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the WebSocket upgrade take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// logRequests emits an api.request event per request, naming the caller
// once authenticated.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		r, who := withPrincipal(r)
		next.ServeHTTP(rec, r)
		fields := map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
		}
		if who.role != "" {
			fields["role"] = string(who.role)
		}
		if who.user != "" {
			fields["user"] = who.user
		}
		events.Emit("debug", "api.request", "", fields)
	})
}

// Handler returns the API handler with request logging.
func Handler() http.Handler {
	return logRequests(NewMux())
}

// ListenAndServe serves the API on port until ctx is cancelled, then shuts
// down gracefully. TLS is used when InitTLS configured it.
func ListenAndServe(ctx context.Context, port int) error {
	tlsCfg, err := LoadTLSConfig()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           Handler(),
		TLSConfig:         tlsCfg,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		events.Logger().Info("api listening", "addr", srv.Addr, "tls", tlsCfg != nil)
		if tlsCfg != nil {
			errc <- srv.ListenAndServeTLS("", "")
			return
		}
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	events.CloseAllSubscribers()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
