package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronLay10/zbxport/internal/events"
	"github.com/AaronLay10/zbxport/internal/format"
	"github.com/AaronLay10/zbxport/internal/service"
	"github.com/AaronLay10/zbxport/internal/storage/memstore"
	"github.com/AaronLay10/zbxport/internal/storage/sqlite"
	"github.com/AaronLay10/zbxport/internal/store"
)

// clearTLSEnvServer prevents TLS initialization from trying to load nonexistent certs.
func clearTLSEnvServer(t *testing.T) {
	t.Setenv("ZBXPORT_TLS_CERT", "")
	t.Setenv("ZBXPORT_TLS_KEY", "")
	SetTLSConfigForTest(nil)
}

// useFixtureService points the API at a memory store loaded from the shared
// fixture and restores the previous state afterwards.
func useFixtureService(t *testing.T) {
	t.Helper()
	f, err := store.LoadFixture(filepath.Join("..", "store", "testdata", "store.yaml"))
	require.NoError(t, err)
	ms, err := memstore.FromFixture(f)
	require.NoError(t, err)

	clock := func() time.Time { return time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC) }
	SetService(service.New(ms, nil).WithClock(clock))
	SetDefaultFormat(format.XML)
	resetAuth()
	t.Cleanup(func() {
		SetService(nil)
		SetAuditLog(nil)
		SetDefaultFormat(format.XML)
		resetAuth()
	})
}

func TestHealthEndpoint(t *testing.T) {
	clearTLSEnvServer(t)
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Status != "ok" {
		t.Errorf("expected status 'ok', got '%s'", resp.Status)
	}
	if resp.Service != "zbxport" {
		t.Errorf("expected service 'zbxport', got '%s'", resp.Service)
	}
}

func TestReadyEndpoint_AllReady(t *testing.T) {
	clearTLSEnvServer(t)
	SetReadinessState(true, true, false)

	req := httptest.NewRequest("GET", "/ready", nil)
	w := httptest.NewRecorder()

	readyHandler(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp ReadinessResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Ready {
		t.Error("expected ready=true")
	}
	if resp.Checks["store"].Status != "ok" {
		t.Errorf("expected store ok, got %s", resp.Checks["store"].Status)
	}
}

func TestReadyEndpoint_StoreDown(t *testing.T) {
	clearTLSEnvServer(t)
	SetReadinessState(false, true, true)

	req := httptest.NewRequest("GET", "/ready", nil)
	w := httptest.NewRecorder()

	readyHandler(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}

	var resp ReadinessResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Ready {
		t.Error("expected ready=false")
	}
	if resp.NotReadyMsg != "waiting for store" {
		t.Errorf("unexpected message %q", resp.NotReadyMsg)
	}
}

func TestReadyEndpoint_OptionalMQTTDown(t *testing.T) {
	clearTLSEnvServer(t)
	SetReadinessState(true, false, true)

	req := httptest.NewRequest("GET", "/ready", nil)
	w := httptest.NewRecorder()

	readyHandler(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200 with optional mqtt down, got %d", w.Code)
	}

	var resp ReadinessResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Checks["mqtt"].Optional {
		t.Error("expected mqtt check to be marked optional")
	}
	if resp.Checks["mqtt"].Status != "not_ready" {
		t.Errorf("expected mqtt not_ready, got %s", resp.Checks["mqtt"].Status)
	}
}

func TestReadyEndpoint_RequiredMQTTDown(t *testing.T) {
	clearTLSEnvServer(t)
	SetReadinessState(false, false, false)
	t.Cleanup(func() { SetReadinessState(false, false, true) })

	req := httptest.NewRequest("GET", "/ready", nil)
	w := httptest.NewRecorder()

	readyHandler(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}

	var resp ReadinessResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.NotReadyMsg != "waiting for store, mqtt" {
		t.Errorf("unexpected message %q", resp.NotReadyMsg)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	clearTLSEnvServer(t)
	InitMetrics()
	useFixtureService(t)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	NewMux().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "zbxport_uptime_seconds")
	assert.Contains(t, body, "zbxport_events_total")
	assert.Contains(t, body, "zbxport_store_connected")
}

func post(t *testing.T, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	NewMux().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestExportGroupAsJSON(t *testing.T) {
	clearTLSEnvServer(t)
	useFixtureService(t)

	w := post(t, "/export?format=json", "application/json", `{"groups":["90020"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var doc struct {
		Export struct {
			Version string              `json:"version"`
			Date    string              `json:"date"`
			Groups  []map[string]string `json:"groups"`
			Hosts   []any               `json:"hosts"`
		} `json:"zabbix_export"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "5.0", doc.Export.Version)
	assert.Equal(t, "2021-03-04T05:06:07Z", doc.Export.Date)
	assert.Equal(t, []map[string]string{{"name": "Templates/Network"}}, doc.Export.Groups)
	assert.Empty(t, doc.Export.Hosts)
}

func TestExportDefaultsToXML(t *testing.T) {
	clearTLSEnvServer(t)
	useFixtureService(t)

	w := post(t, "/export", "application/json", `{"hosts":["10100"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/xml; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "<host>web01</host>")
	assert.NotContains(t, w.Body.String(), "cpu.util.orphan")
}

func TestExportRejectsBadSelection(t *testing.T) {
	clearTLSEnvServer(t)
	useFixtureService(t)

	w := post(t, "/export", "application/json", `{"hosts":["web01"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(t, "/export", "application/json", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(t, "/export?format=csv", "application/json", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportHiddenReferenceConflicts(t *testing.T) {
	clearTLSEnvServer(t)
	useFixtureService(t)

	w := post(t, "/export", "application/json", `{"maps":["1001"]}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.NotEmpty(t, decodeError(t, w).Error)
}

func TestExportMethodNotAllowed(t *testing.T) {
	clearTLSEnvServer(t)
	useFixtureService(t)

	req := httptest.NewRequest(http.MethodGet, "/export", nil)
	w := httptest.NewRecorder()
	NewMux().ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestExportWithoutServiceUnavailable(t *testing.T) {
	clearTLSEnvServer(t)
	useFixtureService(t)
	SetService(nil)

	w := post(t, "/export", "application/json", `{}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

const checkDocument = `{
  "zabbix_export": {
    "version": "5.0",
    "date": "2021-01-01T00:00:00Z",
    "groups": [{"name": "Linux servers"}],
    "hosts": [{
      "host": "new01",
      "name": "New 01",
      "templates": [{"name": "Template OS Linux"}],
      "groups": [{"name": "Linux servers"}],
      "items": [{"name": "Ping", "key": "agent.ping"}]
    }]
  }
}`

func TestImportCheckCounts(t *testing.T) {
	clearTLSEnvServer(t)
	useFixtureService(t)

	w := post(t, "/import/check?format=json", "application/json", checkDocument)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res service.ImportResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.NotEmpty(t, res.OperationID)
	assert.Equal(t, "5.0", res.FromVersion)
	assert.Equal(t, "5.0", res.Version)
	assert.Equal(t, 1, res.Counts["hosts"])
	assert.Equal(t, 1, res.Counts["groups"])
	assert.Equal(t, 1, res.Counts["items"])
	assert.Nil(t, res.References)
}

func TestImportCheckResolvesReferences(t *testing.T) {
	clearTLSEnvServer(t)
	useFixtureService(t)

	w := post(t, "/import/check?format=json&resolve=true", "application/json", checkDocument)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res service.ImportResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	require.NotNil(t, res.References)
	assert.Equal(t, map[string]string{"Template OS Linux": "10001"}, res.References.Templates)
	assert.Empty(t, res.References.Groups)
}

func TestImportCheckUnresolvedReference(t *testing.T) {
	clearTLSEnvServer(t)
	useFixtureService(t)

	doc := strings.Replace(checkDocument, "Template OS Linux", "Template Missing", 1)
	w := post(t, "/import/check?format=json&resolve=1", "application/json", doc)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestImportCheckMissingVersion(t *testing.T) {
	clearTLSEnvServer(t)
	useFixtureService(t)

	w := post(t, "/import/check?format=json", "application/json", `{"zabbix_export": {"date": "2021-01-01T00:00:00Z"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "/zabbix_export/version", decodeError(t, w).Path)
}

func TestImportCheckUnsupportedVersion(t *testing.T) {
	clearTLSEnvServer(t)
	useFixtureService(t)

	w := post(t, "/import/check?format=json", "application/json", `{"zabbix_export": {"version": "1.8"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestImportCheckSyntaxError(t *testing.T) {
	clearTLSEnvServer(t)
	useFixtureService(t)

	w := post(t, "/import/check?format=xml", "application/xml", `<zabbix_export><version>5.0</version>`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestImportCheckUnknownFormat(t *testing.T) {
	clearTLSEnvServer(t)
	useFixtureService(t)

	w := post(t, "/import/check?format=ini", "text/plain", checkDocument)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// limitBodies lowers the request body limit for one test.
func limitBodies(t *testing.T, n int64) {
	t.Helper()
	prev := maxDocumentBytes
	maxDocumentBytes = n
	t.Cleanup(func() { maxDocumentBytes = prev })
}

func TestOversizedBodiesAreTooLarge(t *testing.T) {
	clearTLSEnvServer(t)
	useFixtureService(t)
	limitBodies(t, 64)

	big := `{"groups": [` + strings.Repeat(" ", 128) + `]}`
	w := post(t, "/export?format=json", "application/json", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = post(t, "/import/check?format=json", "application/json", checkDocument)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestUnreadableBodiesAreBadRequests(t *testing.T) {
	clearTLSEnvServer(t)
	useFixtureService(t)

	for _, target := range []string{"/export?format=json", "/import/check?format=json"} {
		req := httptest.NewRequest(http.MethodPost, target, iotest.ErrReader(errors.New("connection reset")))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		NewMux().ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}

	// Small malformed selections stay 400 under the limit.
	limitBodies(t, 64)
	w := post(t, "/export?format=json", "application/json", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuditWithoutLog(t *testing.T) {
	clearTLSEnvServer(t)
	useFixtureService(t)

	req := httptest.NewRequest(http.MethodGet, "/audit", nil)
	w := httptest.NewRecorder()
	NewMux().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuditListsEvents(t *testing.T) {
	clearTLSEnvServer(t)
	useFixtureService(t)

	ctx := context.Background()
	st, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	ts := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	require.NoError(t, st.Append(ctx, ts, "info", "export.started", "", map[string]any{"format": "xml"}, "op-1"))
	require.NoError(t, st.Append(ctx, ts.Add(time.Second), "info", "export.completed", "", nil, "op-1"))
	SetAuditLog(st)

	req := httptest.NewRequest(http.MethodGet, "/audit?limit=1", nil)
	w := httptest.NewRecorder()
	NewMux().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var rows []struct {
		Event       string `json:"event"`
		OperationID string `json:"operation_id"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "export.completed", rows[0].Event)
	assert.Equal(t, "op-1", rows[0].OperationID)
}

func TestRoutesEnforceRoles(t *testing.T) {
	clearTLSEnvServer(t)
	useFixtureService(t)
	useAccounts()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		user   string
		pass   string
		want   int
	}{
		{"health is open", http.MethodGet, "/health", "", "", "", http.StatusOK},
		{"events need a role", http.MethodGet, "/events", "", "", "", http.StatusUnauthorized},
		{"operator reads events", http.MethodGet, "/events", "", "operator", "opsecret", http.StatusOK},
		{"operator cannot export", http.MethodPost, "/export", `{}`, "operator", "opsecret", http.StatusForbidden},
		{"admin exports", http.MethodPost, "/export", `{}`, "admin", "secret", http.StatusOK},
		{"operator checks imports", http.MethodPost, "/import/check?format=json", checkDocument, "operator", "opsecret", http.StatusOK},
		{"wrong password", http.MethodPost, "/import/check?format=json", checkDocument, "operator", "nope", http.StatusUnauthorized},
		{"operator cannot read audit", http.MethodGet, "/audit", "", "operator", "opsecret", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.user != "" {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			w := httptest.NewRecorder()
			NewMux().ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestHandlerEmitsRequestEvents(t *testing.T) {
	clearTLSEnvServer(t)
	useFixtureService(t)
	events.Clear()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	got := events.Snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, "api.request", got[0].Name)
	assert.Equal(t, "/health", got[0].Fields["path"])
	assert.Equal(t, http.StatusOK, got[0].Fields["status"])
}

func TestRequestEventsNameTheCaller(t *testing.T) {
	clearTLSEnvServer(t)
	useFixtureService(t)
	useAccounts()
	events.Clear()

	req := httptest.NewRequest(http.MethodGet, "/events?prefix=export.", nil)
	req.SetBasicAuth("operator", "opsecret")
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/export", strings.NewReader(`{}`))
	req.SetBasicAuth("operator", "opsecret")
	w = httptest.NewRecorder()
	Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)

	got := events.RecentEvents(0, events.Filter{Prefix: "api."})
	require.Len(t, got, 2)
	for _, e := range got {
		assert.Equal(t, "operator", e.Fields["user"])
		assert.Equal(t, "operator", e.Fields["role"])
	}
	assert.Equal(t, http.StatusForbidden, got[1].Fields["status"])
}
