package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"embedd/pkg/types"
)

type mockService struct {
	resp     types.EmbedResponse
	embedErr error
	health   types.HealthResponse
	ready    bool
	gotText  any
	calls    int
}

func (m *mockService) Embed(ctx context.Context, text any) (types.EmbedResponse, error) {
	m.calls++
	m.gotText = text
	if m.embedErr != nil {
		return types.EmbedResponse{}, m.embedErr
	}
	return m.resp, nil
}

func (m *mockService) Health() types.HealthResponse { return m.health }
func (m *mockService) Ready() bool                  { return m.ready }

type mockHTTPError struct {
	msg  string
	code int
}

func (e mockHTTPError) Error() string   { return e.msg }
func (e mockHTTPError) StatusCode() int { return e.code }

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}
