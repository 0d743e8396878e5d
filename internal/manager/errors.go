package manager

import "errors"

// Kind distinguishes the failures callers map to different responses.
type Kind string

const (
	KindValidation Kind = "validation"
	KindModelLoad  Kind = "model_load"
	KindEmbedding  Kind = "embedding"
)

// Error is a failure of a given Kind. Msg is safe to show a client for
// validation errors; Err carries the underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	if e.Msg == "" {
		return e.Err.Error()
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// NewValidationError reports malformed input, including tokenization failure.
func NewValidationError(msg string) error {
	return &Error{Kind: KindValidation, Msg: msg}
}

// NewModelLoadError reports a failure to fetch or instantiate the model.
func NewModelLoadError(err error) error {
	return &Error{Kind: KindModelLoad, Msg: "model load failed", Err: err}
}

// NewEmbeddingError reports a forward pass or output failure.
func NewEmbeddingError(msg string, err error) error {
	return &Error{Kind: KindEmbedding, Msg: msg, Err: err}
}

func isKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// IsValidation reports whether err is a validation failure (return 400).
func IsValidation(err error) bool { return isKind(err, KindValidation) }

// IsModelLoad reports whether err is a model load failure (return 503).
func IsModelLoad(err error) bool { return isKind(err, KindModelLoad) }

// IsEmbedding reports whether err is an inference failure (return 500).
func IsEmbedding(err error) bool { return isKind(err, KindEmbedding) }

// tooBusyError signals queue timeout/overflow for 429 mapping.
type tooBusyError struct{ modelID string }

func (e tooBusyError) Error() string { return "too busy: " + e.modelID }

// ErrTooBusy returns the backpressure error for modelID.
func ErrTooBusy(modelID string) error { return tooBusyError{modelID: modelID} }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	var tb tooBusyError
	return errors.As(err, &tb)
}
