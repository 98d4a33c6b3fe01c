package exportserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kingrea/rating-desk/internal/config"
)

func TestSettingsFromConfigUsesServerSection(t *testing.T) {
	enabled := true
	cfg := &config.Config{}
	cfg.Project.Server = config.ServerConfig{Enabled: &enabled, Host: "0.0.0.0", Port: 9001}
	settings := SettingsFromConfig(cfg)
	if !settings.Enabled || settings.Address() != "0.0.0.0:9001" {
		t.Fatalf("settings = %+v", settings)
	}
	if settings.FileName != DefaultFileName || settings.ReadTimeout <= 0 || settings.IdleTimeout <= 0 {
		t.Fatalf("download defaults not applied: %+v", settings)
	}
}

func TestSettingsDefaults(t *testing.T) {
	settings := SettingsFromConfig(nil)
	if settings.Enabled {
		t.Fatalf("server should be disabled by default")
	}
	if settings.Address() != "127.0.0.1:8766" {
		t.Fatalf("address = %s", settings.Address())
	}
	if settings.URL() != "http://127.0.0.1:8766" {
		t.Fatalf("url = %s", settings.URL())
	}
}

func TestExportHandlerServesAttachment(t *testing.T) {
	artifact := []byte("{\n    \"alice\": {}\n}\n")
	calls := 0
	srv := NewServer(Settings{FileName: "data_store.json"}, ExporterFunc(func() ([]byte, error) {
		calls++
		return artifact, nil
	}))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="data_store.json"` {
		t.Fatalf("content disposition = %q", got)
	}
	if rec.Body.String() != string(artifact) {
		t.Fatalf("body = %q", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("exporter calls = %d", calls)
	}
}

func TestExportHandlerReportsFailure(t *testing.T) {
	srv := NewServer(Settings{}, ExporterFunc(func() ([]byte, error) {
		return nil, errors.New("disk full")
	}))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/export", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST status = %d, want 405", rec.Code)
	}
}

func TestServerStartServesHealthAndExport(t *testing.T) {
	t.Parallel()
	fixed := time.Unix(1730000000, 0).UTC()
	settings := Settings{Enabled: true, Host: "127.0.0.1", Port: 0, FileName: "data_store.json", ReadTimeout: time.Second, WriteTimeout: time.Second, IdleTimeout: time.Second}
	srv := NewServer(settings, ExporterFunc(func() ([]byte, error) { return []byte("{}\n"), nil }),
		WithClock(func() time.Time { return fixed }))
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
	})
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("start server: %v", err)
	}
	if srv.Status() != StatusReady {
		t.Fatalf("status = %s", srv.Status())
	}
	base := srv.BaseURL()
	resp, err := http.Get(base + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	resp.Body.Close()
	if health.Status != string(StatusReady) {
		t.Fatalf("health status = %s", health.Status)
	}
	resp, err = http.Get(base + "/export")
	if err != nil {
		t.Fatalf("export request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "{}\n" {
		t.Fatalf("export = %d %q", resp.StatusCode, body)
	}
	if err := srv.Start(context.Background()); err == nil {
		t.Fatalf("second start should fail")
	}
}

func TestStartDisabled(t *testing.T) {
	srv := NewServer(Settings{Enabled: false}, ExporterFunc(func() ([]byte, error) { return nil, nil }))
	if err := srv.Start(context.Background()); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}
