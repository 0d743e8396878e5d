package e2e

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"embedd/internal/backend/backendtest"
	"embedd/internal/embedding"
	"embedd/internal/httpapi"
	"embedd/internal/manager"
	"embedd/internal/service"
)

// createTempModelsDir creates a temporary directory populated with minimal
// GGUF files and returns the directory path and the model IDs (filenames).
func createTempModelsDir(t *testing.T, names ...string) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, []byte("GGUF\x03\x00\x00\x00"), 0o644); err != nil {
			t.Fatalf("write temp model %s: %v", p, err)
		}
	}
	return dir, names
}

// newServer wires the full in-process stack over a fake backend.
func newServer(t *testing.T, fake *backendtest.Backend, cfg manager.ManagerConfig) (*httptest.Server, *manager.Manager) {
	t.Helper()
	cfg.Backend = fake
	if cfg.ModelID == "" {
		cfg.ModelID = "all-MiniLM-L6-v2"
	}
	mgr := manager.NewWithConfig(cfg)
	svc := service.New(service.Config{
		Lifecycle: mgr,
		Validator: embedding.NewValidator(0, zerolog.Nop()),
		Generator: embedding.NewGenerator(0, mgr, zerolog.Nop()),
	})
	srv := httptest.NewServer(httpapi.NewMux(svc))
	t.Cleanup(func() {
		srv.Close()
		_ = mgr.Close()
	})
	return srv, mgr
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}
