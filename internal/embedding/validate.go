package embedding

import (
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"embedd/internal/manager"
)

// DefaultMaxTextLength is the character cap applied when none is configured.
const DefaultMaxTextLength = 8192

// Validation messages. Each rejected input shape gets its own.
const (
	MsgTextRequired   = "Text field is required and cannot be empty"
	MsgTextNotString  = "Text field must be a string"
	MsgTextWhitespace = "Text cannot be only whitespace"
)

// Validator checks embedding input before any model interaction.
type Validator struct {
	// MaxLength caps the stripped text in characters (Unicode code points).
	MaxLength int
	Logger    zerolog.Logger
}

// NewValidator returns a validator truncating at maxLength characters.
func NewValidator(maxLength int, log zerolog.Logger) *Validator {
	if maxLength <= 0 {
		maxLength = DefaultMaxTextLength
	}
	return &Validator{MaxLength: maxLength, Logger: log}
}

// Validate returns the stripped text, truncated to MaxLength characters.
// Oversized input is truncated, not rejected.
func (v *Validator) Validate(in any) (string, error) {
	if in == nil {
		return "", manager.NewValidationError(MsgTextRequired)
	}
	s, ok := in.(string)
	if !ok {
		return "", manager.NewValidationError(MsgTextNotString)
	}
	if s == "" {
		return "", manager.NewValidationError(MsgTextRequired)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", manager.NewValidationError(MsgTextWhitespace)
	}
	max := v.MaxLength
	if max <= 0 {
		max = DefaultMaxTextLength
	}
	if n := utf8.RuneCountInString(s); n > max {
		s = truncateRunes(s, max)
		v.Logger.Warn().Int("length", n).Int("max_length", max).Msg("text truncated")
	}
	return s, nil
}

// truncateRunes returns the first n code points of s.
func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
