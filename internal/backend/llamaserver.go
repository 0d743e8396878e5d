package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"embedd/internal/common/fsutil"
	"embedd/internal/registry"
	"embedd/pkg/types"
)

const (
	defaultReadyTimeout = 120 * time.Second
	stopGrace           = 2 * time.Second
	stderrTailBytes     = 4096
)

// LlamaServerConfig configures the llama-server subprocess backend.
type LlamaServerConfig struct {
	// Bin is the llama-server executable (name on PATH or path).
	Bin  string
	Host string
	// HFFile selects a file inside a hub repository when the model id is not
	// a local artifact.
	HFFile    string
	ExtraArgs []string
	// Registry lists local GGUF artifacts model ids resolve against.
	Registry     []types.Model
	ReadyTimeout time.Duration
	Logger       zerolog.Logger
}

// LlamaServer spawns one llama-server process per loaded model artifact.
type LlamaServer struct {
	cfg        LlamaServerConfig
	httpClient *http.Client
	log        zerolog.Logger

	mu    sync.Mutex
	procs map[string]*procInfo // key: artifact (path or hub id)
}

type procInfo struct {
	cmd     *exec.Cmd
	baseURL string
	pid     int
	stderr  *tailBuffer
	exited  chan struct{}
	waitErr error
}

// artifact is a resolved model identifier.
type artifact struct {
	key   string
	local bool
}

// NewLlamaServer constructs the subprocess backend.
func NewLlamaServer(cfg LlamaServerConfig) *LlamaServer {
	if strings.TrimSpace(cfg.Host) == "" {
		cfg.Host = "127.0.0.1"
	}
	if strings.TrimSpace(cfg.Bin) == "" {
		cfg.Bin = "llama-server"
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = defaultReadyTimeout
	}
	// Timeout=0: every call carries a context deadline instead.
	return &LlamaServer{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 0},
		log:        cfg.Logger.With().Str("backend", "llama-server").Logger(),
		procs:      make(map[string]*procInfo),
	}
}

func (s *LlamaServer) Name() string { return "llama-server" }

// LoadTokenizer verifies the model artifact is usable. The vocabulary lives
// inside the GGUF file, so the tokenizer talks to the same process the model
// loads; it only needs the artifact key.
func (s *LlamaServer) LoadTokenizer(ctx context.Context, modelID string) (Tokenizer, error) {
	art, err := s.resolve(modelID)
	if err != nil {
		return nil, err
	}
	if art.local {
		if err := checkGGUF(art.key); err != nil {
			return nil, err
		}
	}
	return &serverTokenizer{s: s, key: art.key}, nil
}

// LoadModel starts llama-server for the artifact and waits until it is healthy.
func (s *LlamaServer) LoadModel(ctx context.Context, modelID string, opts LoadOptions) (Model, error) {
	art, err := s.resolve(modelID)
	if err != nil {
		return nil, err
	}
	p, err := s.ensureProcess(ctx, art, opts)
	if err != nil {
		return nil, err
	}
	return &serverModel{s: s, key: art.key, baseURL: p.baseURL, pid: p.pid}, nil
}

// StopAll terminates all managed subprocesses. Best effort.
func (s *LlamaServer) StopAll() {
	s.mu.Lock()
	keys := make([]string, 0, len(s.procs))
	for k := range s.procs {
		keys = append(keys, k)
	}
	s.mu.Unlock()
	for _, k := range keys {
		_ = s.stop(k)
	}
}

func (s *LlamaServer) resolve(modelID string) (artifact, error) {
	id := strings.TrimSpace(modelID)
	if id == "" {
		return artifact{}, errors.New("model id is empty")
	}
	if mdl, ok := registry.Lookup(s.cfg.Registry, id); ok {
		return artifact{key: mdl.Path, local: true}, nil
	}
	if strings.HasSuffix(strings.ToLower(id), ".gguf") {
		p, err := fsutil.ExpandHome(id)
		if err != nil {
			return artifact{}, err
		}
		if !fsutil.PathExists(p) {
			return artifact{}, fmt.Errorf("model file not found: %s", p)
		}
		return artifact{key: p, local: true}, nil
	}
	return artifact{key: id, local: false}, nil
}

// checkGGUF reads the file magic so a bad path fails before a process starts.
func checkGGUF(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open model artifact: %w", err)
	}
	defer f.Close()
	magic := make([]byte, 4)
	if _, err := io.ReadFull(f, magic); err != nil {
		return fmt.Errorf("read model artifact %s: %w", path, err)
	}
	if string(magic) != "GGUF" {
		return fmt.Errorf("%s is not a GGUF file", path)
	}
	return nil
}

func (s *LlamaServer) buildArgs(art artifact, port int, opts LoadOptions) []string {
	var args []string
	if art.local {
		args = append(args, "-m", art.key)
	} else {
		args = append(args, "--hf-repo", art.key)
		if s.cfg.HFFile != "" {
			args = append(args, "--hf-file", s.cfg.HFFile)
		}
	}
	args = append(args,
		"--host", s.cfg.Host,
		"--port", strconv.Itoa(port),
		"--embeddings",
		"--pooling", "none",
	)
	if opts.ContextSize > 0 {
		// Physical and logical batch must hold a whole sequence for encoder models.
		n := strconv.Itoa(opts.ContextSize)
		args = append(args, "-c", n, "-b", n, "-ub", n)
	}
	if opts.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(opts.Threads))
	}
	if opts.GPULayers > 0 {
		args = append(args, "-ngl", strconv.Itoa(opts.GPULayers))
	}
	return append(args, s.cfg.ExtraArgs...)
}

// ensureProcess starts (or returns the existing healthy) llama-server for art.
func (s *LlamaServer) ensureProcess(ctx context.Context, art artifact, opts LoadOptions) (*procInfo, error) {
	s.mu.Lock()
	p := s.procs[art.key]
	s.mu.Unlock()
	if p != nil {
		if !p.hasExited() && s.isHealthy(ctx, p.baseURL) {
			return p, nil
		}
		_ = s.stop(art.key)
	}

	bin, err := fsutil.ResolveExecutable(s.cfg.Bin)
	if err != nil {
		return nil, fmt.Errorf("%w: llama-server: %v", ErrUnavailable, err)
	}
	port, err := pickFreePort(s.cfg.Host)
	if err != nil {
		return nil, err
	}
	baseURL := fmt.Sprintf("http://%s", net.JoinHostPort(s.cfg.Host, strconv.Itoa(port)))

	cmd := exec.Command(bin, s.buildArgs(art, port, opts)...)
	tail := &tailBuffer{max: stderrTailBytes}
	cmd.Stderr = tail
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start llama-server: %w", err)
	}
	p = &procInfo{cmd: cmd, baseURL: baseURL, pid: cmd.Process.Pid, stderr: tail, exited: make(chan struct{})}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.exited)
	}()
	s.mu.Lock()
	s.procs[art.key] = p
	s.mu.Unlock()
	s.log.Info().Str("event", "spawn_start").Str("model", art.key).Int("pid", p.pid).Str("url", baseURL).Msg("llama-server starting")

	if err := s.waitReady(ctx, p); err != nil {
		_ = s.stop(art.key)
		s.log.Error().Str("event", "spawn_error").Str("model", art.key).Int("pid", p.pid).Err(err).Msg("llama-server failed to become ready")
		return nil, err
	}
	s.log.Info().Str("event", "spawn_ready").Str("model", art.key).Int("pid", p.pid).Msg("llama-server ready")
	return p, nil
}

// waitReady polls /health until it returns 200, the process exits, the
// ready timeout passes or ctx is done.
func (s *LlamaServer) waitReady(ctx context.Context, p *procInfo) error {
	deadline := time.NewTimer(s.cfg.ReadyTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		if s.isHealthy(ctx, p.baseURL) {
			return nil
		}
		select {
		case <-p.exited:
			return fmt.Errorf("llama-server exited before ready: %v; stderr tail: %s", p.waitErr, p.stderr.String())
		case <-deadline.C:
			return fmt.Errorf("llama-server not ready after %s: %s", s.cfg.ReadyTimeout, p.baseURL)
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
}

// isHealthy checks that llama-server at baseURL answers /health with 200.
func (s *LlamaServer) isHealthy(ctx context.Context, baseURL string) bool {
	hctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(hctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// stop terminates the process for key: SIGTERM first, kill after a grace period.
func (s *LlamaServer) stop(key string) error {
	s.mu.Lock()
	p := s.procs[key]
	delete(s.procs, key)
	s.mu.Unlock()
	if p == nil || p.cmd == nil || p.cmd.Process == nil {
		return nil
	}
	if p.hasExited() {
		return nil
	}
	_ = p.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-p.exited:
	case <-time.After(stopGrace):
		_ = p.cmd.Process.Kill()
		<-p.exited
	}
	s.log.Info().Str("event", "spawn_stop").Str("model", key).Int("pid", p.pid).Msg("llama-server stopped")
	return nil
}

func (s *LlamaServer) process(key string) *procInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.procs[key]
}

func (p *procInfo) hasExited() bool {
	select {
	case <-p.exited:
		return true
	default:
		return false
	}
}

func pickFreePort(host string) (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf bytes.Buffer
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(p)
	if over := t.buf.Len() - t.max; over > 0 {
		t.buf.Next(over)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}
