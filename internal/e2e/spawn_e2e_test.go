package e2e

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"embedd/pkg/types"
)

func projectRoot(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	// this file: <root>/internal/e2e/spawn_e2e_test.go
	return filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
}

func goBuild(t *testing.T, out, pkg string) string {
	t.Helper()
	bin := filepath.Join(t.TempDir(), out)
	cmd := exec.Command("go", "build", "-o", bin, pkg)
	cmd.Dir = projectRoot(t)
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	if b, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("go build %s failed: %v\n%s", pkg, err, string(b))
	}
	return bin
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

// startEmbedd runs `embedd serve` and waits for /healthz.
func startEmbedd(t *testing.T, bin string, args ...string) string {
	t.Helper()
	port := freePort(t)
	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	cmd := exec.Command(bin, append([]string{"serve", "--addr", fmt.Sprintf("127.0.0.1:%d", port), "--log-format", "console"}, args...)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("start embedd: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Signal(os.Interrupt)
		done := make(chan struct{})
		go func() { _ = cmd.Wait(); close(done) }()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			_ = cmd.Process.Kill()
		}
	})
	deadline := time.Now().Add(10 * time.Second)
	for {
		resp, err := http.Get(base + "/healthz")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return base
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("embedd did not become healthy in time")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// TestSpawn_FakeLlamaServer runs the real binary against a stand-in
// llama-server that speaks the same HTTP protocol.
func TestSpawn_FakeLlamaServer(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	embedd := goBuild(t, "embedd", "./cmd/embedd")
	fakeLlama := goBuild(t, "fake_llama_server", "./internal/backend/testdata/fake_llama_server.go")
	dir, models := createTempModelsDir(t, "alpha.Q8_0.gguf")

	base := startEmbedd(t, embedd,
		"--models-dir", dir,
		"--model", models[0],
		"--llama-bin", fakeLlama,
	)

	resp, body := httpGet(t, base+"/readyz")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("/readyz initial %d %s", resp.StatusCode, string(body))
	}

	resp, body = httpPostJSON(t, base+"/embed", []byte(`{"text":"hello spawned world"}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/embed %d %s", resp.StatusCode, string(body))
	}
	out := decodeEmbed(t, body)
	if out.Dimension != 8 {
		t.Fatalf("dimension=%d, want the fake server's 8", out.Dimension)
	}
	if out.ModelVersion != models[0] {
		t.Fatalf("model_version=%q", out.ModelVersion)
	}

	resp, _ = httpGet(t, base+"/readyz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/readyz after embed %d", resp.StatusCode)
	}
	_, body = httpGet(t, base+"/metrics")
	if !strings.Contains(string(body), "embedd_model_loads_total") {
		t.Fatalf("metrics missing embedd_model_loads_total")
	}
}

// TestSpawn_RealModel embeds with a real llama-server and GGUF model.
// Skips unless LLAMA_BIN and EMBEDD_E2E_MODEL (a .gguf path) are set.
func TestSpawn_RealModel(t *testing.T) {
	llamaBin := strings.TrimSpace(os.Getenv("LLAMA_BIN"))
	model := strings.TrimSpace(os.Getenv("EMBEDD_E2E_MODEL"))
	if llamaBin == "" || model == "" {
		t.Skip("LLAMA_BIN or EMBEDD_E2E_MODEL not set; skipping real-model spawn test")
	}
	embedd := goBuild(t, "embedd", "./cmd/embedd")
	base := startEmbedd(t, embedd, "--model", model, "--llama-bin", llamaBin, "--models-dir", t.TempDir())

	resp, body := httpPostJSON(t, base+"/embed", []byte(`{"text":"A sentence about the ocean."}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/embed %d %s", resp.StatusCode, string(body))
	}
	out := decodeEmbed(t, body)
	if out.Dimension == 0 {
		t.Fatalf("empty embedding")
	}
	_, body = httpGet(t, base+"/health")
	var h types.HealthResponse
	if err := json.Unmarshal(body, &h); err != nil {
		t.Fatalf("/health json: %v", err)
	}
	t.Logf("model=%s dim=%d rss_mb=%d", out.ModelVersion, out.Dimension, h.ModelInfo.MemoryRSSMB)
}
