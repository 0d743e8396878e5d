package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"embedd/internal/manager"
	"embedd/pkg/types"
)

// Error codes returned in the error envelope.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeModelLoad  = "MODEL_LOAD_ERROR"
	CodeEmbedding  = "EMBEDDING_ERROR"
	CodeTooBusy    = "TOO_BUSY"
	CodeInternal   = "INTERNAL_ERROR"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// mapError turns a service error into status, code and client message.
// Only validation messages are passed through; everything else is generic.
func mapError(err error) (int, string, string) {
	switch {
	case manager.IsValidation(err):
		return http.StatusBadRequest, CodeValidation, err.Error()
	case manager.IsModelLoad(err):
		return http.StatusServiceUnavailable, CodeModelLoad, "Model temporarily unavailable"
	case manager.IsEmbedding(err):
		return http.StatusInternalServerError, CodeEmbedding, "Failed to generate embedding"
	case manager.IsTooBusy(err):
		return http.StatusTooManyRequests, CodeTooBusy, "Too many requests, retry later"
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode(), CodeInternal, he.Error()
	}
	return http.StatusInternalServerError, CodeInternal, "Internal server error"
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: types.ErrorBody{
		Code:      code,
		Message:   msg,
		Timestamp: time.Now().Unix(),
	}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
