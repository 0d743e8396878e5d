package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"embedd/internal/manager"
	"embedd/pkg/types"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.ErrorResponse {
	t.Helper()
	var body types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v (body=%q)", err, w.Body.String())
	}
	return body
}

func TestEmbedHandler(t *testing.T) {
	svc := &mockService{resp: types.EmbedResponse{Embedding: []float32{0.6, 0.8}, ModelVersion: "m", Dimension: 2, ProcessingTimeMS: 3}}
	w := postJSON(t, NewMux(svc), "/embed", `{"text":"hello"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	var body types.EmbedResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Dimension != 2 || body.ModelVersion != "m" || len(body.Embedding) != 2 {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.RequestID == "" {
		t.Fatalf("expected request id in response")
	}
	if svc.gotText != "hello" {
		t.Fatalf("service got %v", svc.gotText)
	}
}

func TestEmbedHandlerRootPath(t *testing.T) {
	svc := &mockService{}
	w := postJSON(t, NewMux(svc), "/", `{"text":"x"}`)
	if w.Code != http.StatusOK || svc.calls != 1 {
		t.Fatalf("status=%d calls=%d", w.Code, svc.calls)
	}
}

func TestEmbedHandlerEnvelopes(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"string_body", `{"body":"{\"text\":\"wrapped\"}"}`},
		{"object_body", `{"body":{"text":"wrapped"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockService{}
			w := postJSON(t, NewMux(svc), "/embed", tc.body)
			if w.Code != http.StatusOK {
				t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
			}
			if svc.gotText != "wrapped" {
				t.Fatalf("text=%v", svc.gotText)
			}
		})
	}
}

func TestEmbedHandlerBadPayloads(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		prefix string
	}{
		{"invalid_json", `{"text":`, "Invalid JSON in request body"},
		{"empty_body", ``, "Invalid JSON in request body"},
		{"array", `["text"]`, "Request must be a JSON object"},
		{"string", `"text"`, "Request must be a JSON object"},
		{"envelope_invalid", `{"body":"{nope"}`, "Invalid JSON in request body"},
		{"envelope_array", `{"body":"[1,2]"}`, "Request must be a JSON object"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockService{}
			w := postJSON(t, NewMux(svc), "/embed", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status=%d", w.Code)
			}
			body := decodeError(t, w)
			if body.Error.Code != CodeValidation || !strings.HasPrefix(body.Error.Message, tc.prefix) {
				t.Fatalf("unexpected error: %+v", body.Error)
			}
			if body.Error.Timestamp == 0 {
				t.Fatalf("expected timestamp")
			}
			if svc.calls != 0 {
				t.Fatalf("service must not be called")
			}
		})
	}
}

func TestEmbedHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
		msg    string
	}{
		{"validation", manager.NewValidationError("Text cannot be only whitespace"), 400, CodeValidation, "Text cannot be only whitespace"},
		{"model_load", manager.NewModelLoadError(errors.New("dial tcp: refused")), 503, CodeModelLoad, "Model temporarily unavailable"},
		{"embedding", manager.NewEmbeddingError("GPU memory exhausted during embedding generation", errors.New("cuda")), 500, CodeEmbedding, "Failed to generate embedding"},
		{"too_busy", manager.ErrTooBusy("m"), 429, CodeTooBusy, "Too many requests, retry later"},
		{"http_error", mockHTTPError{msg: "teapot", code: 418}, 418, CodeInternal, "teapot"},
		{"unknown", errors.New("secret internal detail"), 500, CodeInternal, "Internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockService{embedErr: tc.err}
			w := postJSON(t, NewMux(svc), "/embed", `{"text":"hi"}`)
			if w.Code != tc.status {
				t.Fatalf("status=%d want %d", w.Code, tc.status)
			}
			body := decodeError(t, w)
			if body.Error.Code != tc.code || body.Error.Message != tc.msg {
				t.Fatalf("unexpected error: %+v", body.Error)
			}
		})
	}
}

func TestEmbedHandlerBodyTooLarge(t *testing.T) {
	SetMaxBodyBytes(16)
	t.Cleanup(func() { SetMaxBodyBytes(0) })
	svc := &mockService{}
	w := postJSON(t, NewMux(svc), "/embed", `{"text":"`+strings.Repeat("a", 64)+`"}`)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status=%d", w.Code)
	}
	if svc.calls != 0 {
		t.Fatalf("service must not be called")
	}
}

func TestHealthHandler(t *testing.T) {
	svc := &mockService{health: types.HealthResponse{Status: "healthy", Statistics: types.Statistics{RequestCount: 4}}}
	for _, path := range []string{"/health", "/"} {
		w := httptest.NewRecorder()
		NewMux(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, w.Code)
		}
		var body types.HealthResponse
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("json: %v", err)
		}
		if body.Status != "healthy" || body.Statistics.RequestCount != 4 {
			t.Fatalf("unexpected body: %+v", body)
		}
	}
}

func TestHealthz(t *testing.T) {
	w := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("status=%d body=%q", w.Code, w.Body.String())
	}
}

func TestReadyz(t *testing.T) {
	w := httptest.NewRecorder()
	NewMux(&mockService{ready: true}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestReadyz_NotReady(t *testing.T) {
	w := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "loading") {
		t.Fatalf("body=%q", w.Body.String())
	}
}

func TestSecurityHeader(t *testing.T) {
	w := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing nosniff header")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	w := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/embed", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", w.Code)
	}
}
