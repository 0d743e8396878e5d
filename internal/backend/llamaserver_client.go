package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// oomMarkers are substrings llama.cpp emits when an allocation fails.
var oomMarkers = []string{
	"out of memory",
	"failed to allocate",
	"cudamalloc failed",
	"insufficient memory",
	"unable to allocate",
}

// serverTokenizer uses the /tokenize endpoint of the process serving key.
// The vocabulary ships inside the model artifact, so it cannot tokenize until
// the model process is up.
type serverTokenizer struct {
	s   *LlamaServer
	key string
}

func (t *serverTokenizer) Tokenize(ctx context.Context, text string, maxTokens int) (Batch, error) {
	p := t.s.process(t.key)
	if p == nil || p.hasExited() {
		return Batch{}, fmt.Errorf("%w: llama-server for %s is not running", ErrResourceExhausted, t.key)
	}
	var out struct {
		Tokens []int32 `json:"tokens"`
	}
	payload := map[string]any{"content": text, "add_special": true}
	if err := t.s.postJSON(ctx, p, "/tokenize", payload, &out); err != nil {
		return Batch{}, err
	}
	if len(out.Tokens) == 0 {
		return Batch{}, errors.New("tokenizer returned no tokens")
	}
	toks, truncated := TruncateTokens(out.Tokens, maxTokens, true)
	return Batch{Tokens: toks, Truncated: truncated}, nil
}

// Close is a no-op: the process is owned by the model.
func (t *serverTokenizer) Close() error { return nil }

type serverModel struct {
	s       *LlamaServer
	key     string
	baseURL string
	pid     int
}

func (m *serverModel) PID() int { return m.pid }

// Warmup checks health and runs a one-token probe so the first real request
// does not pay for graph allocation.
func (m *serverModel) Warmup(ctx context.Context) error {
	p := m.s.process(m.key)
	if p == nil || !m.s.isHealthy(ctx, p.baseURL) {
		return errors.New("llama-server is not healthy")
	}
	tok := &serverTokenizer{s: m.s, key: m.key}
	b, err := tok.Tokenize(ctx, "warmup", 8)
	if err != nil {
		return fmt.Errorf("warmup tokenize: %w", err)
	}
	if _, err := m.Forward(ctx, b); err != nil {
		return fmt.Errorf("warmup forward: %w", err)
	}
	return nil
}

func (m *serverModel) Forward(ctx context.Context, batch Batch) (HiddenStates, error) {
	if len(batch.Tokens) == 0 {
		return nil, errors.New("empty batch")
	}
	p := m.s.process(m.key)
	if p == nil || p.hasExited() {
		return nil, fmt.Errorf("%w: llama-server for %s exited", ErrResourceExhausted, m.key)
	}
	var raw json.RawMessage
	if err := m.s.postJSON(ctx, p, "/embedding", map[string]any{"content": batch.Tokens}, &raw); err != nil {
		if p.hasExited() && !IsResourceExhausted(err) {
			return nil, fmt.Errorf("%w: llama-server exited during forward pass: %v", ErrResourceExhausted, err)
		}
		return nil, err
	}
	return parseEmbeddingResponse(raw)
}

// Close terminates the process, which frees host and accelerator memory.
func (m *serverModel) Close() error { return m.s.stop(m.key) }

// parseEmbeddingResponse accepts the shapes llama-server has used for
// /embedding: an array of {index, embedding} objects or a single object, with
// embedding either per-token ([][]float32) or already pooled ([]float32).
func parseEmbeddingResponse(raw []byte) (HiddenStates, error) {
	type item struct {
		Embedding json.RawMessage `json:"embedding"`
	}
	var items []item
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) > 0 && trimmed[0] == '[':
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode embedding response: %w", err)
		}
	case len(trimmed) > 0 && trimmed[0] == '{':
		var one item
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, fmt.Errorf("decode embedding response: %w", err)
		}
		items = []item{one}
	default:
		return nil, errors.New("empty embedding response")
	}
	if len(items) == 0 || len(items[0].Embedding) == 0 {
		return nil, errors.New("embedding response has no data")
	}
	var rows [][]float32
	if err := json.Unmarshal(items[0].Embedding, &rows); err == nil {
		if len(rows) == 0 {
			return nil, errors.New("embedding response has no rows")
		}
		return HiddenStates(rows), nil
	}
	var pooled []float32
	if err := json.Unmarshal(items[0].Embedding, &pooled); err != nil {
		return nil, fmt.Errorf("decode embedding vector: %w", err)
	}
	if len(pooled) == 0 {
		return nil, errors.New("embedding response has an empty vector")
	}
	return HiddenStates{pooled}, nil
}

// isOOMMessage reports whether a server error body describes memory exhaustion.
func isOOMMessage(body string) bool {
	lb := strings.ToLower(body)
	for _, m := range oomMarkers {
		if strings.Contains(lb, m) {
			return true
		}
	}
	return false
}

func (s *LlamaServer) postJSON(ctx context.Context, p *procInfo, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(b))
		if isOOMMessage(msg) {
			return fmt.Errorf("%w: %s: %s", ErrResourceExhausted, path, msg)
		}
		return fmt.Errorf("llama-server %s: status %d: %s", path, resp.StatusCode, msg)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
