package manager

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("boom")
	v := NewValidationError("Text cannot be only whitespace")
	l := NewModelLoadError(cause)
	e := NewEmbeddingError("forward pass failed", cause)

	if !IsValidation(v) || IsModelLoad(v) || IsEmbedding(v) {
		t.Fatalf("validation predicates wrong")
	}
	if !IsModelLoad(l) || !errors.Is(l, cause) {
		t.Fatalf("model load predicates wrong")
	}
	if !IsEmbedding(fmt.Errorf("wrapped: %w", e)) {
		t.Fatalf("embedding kind lost through wrapping")
	}
	if v.Error() != "Text cannot be only whitespace" {
		t.Fatalf("validation message = %q", v.Error())
	}
	if e.Error() != "forward pass failed: boom" {
		t.Fatalf("embedding message = %q", e.Error())
	}
}

func TestTooBusy(t *testing.T) {
	err := fmt.Errorf("admit: %w", tooBusyError{modelID: "m"})
	if !IsTooBusy(err) {
		t.Fatalf("expected too busy through wrapping")
	}
	if IsTooBusy(errors.New("x")) {
		t.Fatalf("unexpected too busy")
	}
}
