package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/deskwork/deskwork/internal/audit"
	"github.com/deskwork/deskwork/internal/config"
	"github.com/deskwork/deskwork/internal/events"
	"github.com/deskwork/deskwork/internal/session"
)

func testServer(t *testing.T) (*Server, *audit.Ledger, *session.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	dir := t.TempDir()

	ledger := audit.New(filepath.Join(dir, "audit.jsonl"), logger)
	sessions, err := session.NewStore(filepath.Join(dir, "sessions.db"), logger)
	if err != nil {
		t.Fatalf("session store: %v", err)
	}
	t.Cleanup(func() { sessions.Close() })

	settings := config.NewSettingsStore(&config.Config{
		Provider: config.ProviderConfig{Name: "openai", APIKey: "k", Model: "gpt-4o"},
	})

	srv := NewServer("127.0.0.1:0", nil, ledger, sessions, settings, events.New(), logger)
	return srv, ledger, sessions
}

func TestAuditEndpoint(t *testing.T) {
	srv, ledger, _ := testServer(t)
	ledger.Append("list_dir", "success", `{"path":"."}`, 5*time.Millisecond, "/work")

	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audit", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Entries []audit.Entry `json:"entries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Entries) != 1 || body.Entries[0].Tool != "list_dir" {
		t.Errorf("entries = %+v", body.Entries)
	}
}

func TestAuditVerifyEndpoint(t *testing.T) {
	srv, ledger, _ := testServer(t)
	ledger.Append("wait", "success", "1", time.Millisecond, "")

	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audit/verify", nil))

	var body struct {
		Intact      bool `json:"intact"`
		BrokenIndex int  `json:"broken_index"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Intact || body.BrokenIndex != -1 {
		t.Errorf("body = %+v", body)
	}
}

func TestSessionEndpoints(t *testing.T) {
	srv, _, _ := testServer(t)
	mux := srv.routes()

	// Create.
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions",
		strings.NewReader(`{"title":"Research"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d", rec.Code)
	}
	var meta session.Meta
	if err := json.Unmarshal(rec.Body.Bytes(), &meta); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// Rename and pin.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/sessions/"+meta.ID,
		strings.NewReader(`{"title":"Renamed","pinned":true}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d", rec.Code)
	}

	// List reflects both.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
	var listing struct {
		Sessions []session.Meta `json:"sessions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listing.Sessions) != 1 {
		t.Fatalf("sessions = %+v", listing.Sessions)
	}
	if got := listing.Sessions[0]; got.Title != "Renamed" || !got.Pinned {
		t.Errorf("session = %+v", got)
	}

	// Delete.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/sessions/"+meta.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	// Unknown id on patch is a 404.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/sessions/missing",
		strings.NewReader(`{"title":"x"}`)))
	if rec.Code != http.StatusNotFound {
		t.Errorf("patch missing status = %d", rec.Code)
	}
}

func TestSettingsEndpointHidesAPIKey(t *testing.T) {
	srv, _, _ := testServer(t)
	mux := srv.routes()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	if strings.Contains(rec.Body.String(), "api_key") || strings.Contains(rec.Body.String(), `"k"`) {
		t.Errorf("settings response leaks the key: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/settings",
		strings.NewReader(`{"read_only":true}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("post status = %d", rec.Code)
	}
	if !srv.settings.Snapshot().ReadOnly {
		t.Error("read_only not applied")
	}
}

func TestChatEndpointValidation(t *testing.T) {
	srv, _, _ := testServer(t)
	mux := srv.routes()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"prompt":""}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty prompt status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`not json`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad body status = %d", rec.Code)
	}
}
