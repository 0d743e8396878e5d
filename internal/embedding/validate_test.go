package embedding

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"embedd/internal/manager"
)

func TestValidateRejects(t *testing.T) {
	v := NewValidator(0, zerolog.Nop())
	cases := []struct {
		name string
		in   any
		msg  string
	}{
		{"nil", nil, MsgTextRequired},
		{"empty", "", MsgTextRequired},
		{"number", 42.0, MsgTextNotString},
		{"bool", true, MsgTextNotString},
		{"object", map[string]any{"a": 1}, MsgTextNotString},
		{"list", []any{"a"}, MsgTextNotString},
		{"zero", 0.0, MsgTextNotString},
		{"false", false, MsgTextNotString},
		{"empty_list", []any{}, MsgTextNotString},
		{"empty_object", map[string]any{}, MsgTextNotString},
		{"spaces", "   ", MsgTextWhitespace},
		{"mixed_ws", " \t\n\r ", MsgTextWhitespace},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Validate(tc.in)
			require.Error(t, err)
			require.True(t, manager.IsValidation(err), "want validation error, got %v", err)
			require.Equal(t, tc.msg, err.Error())
		})
	}
}

func TestValidateMessagesAreDistinct(t *testing.T) {
	require.NotEqual(t, MsgTextRequired, MsgTextNotString)
	require.NotEqual(t, MsgTextRequired, MsgTextWhitespace)
	require.NotEqual(t, MsgTextNotString, MsgTextWhitespace)
}

func TestValidateStrips(t *testing.T) {
	v := NewValidator(0, zerolog.Nop())
	got, err := v.Validate("  hello world \n")
	require.NoError(t, err)
	require.Equal(t, "hello world", got)
}

func TestValidateTruncatesToExactlyMax(t *testing.T) {
	v := NewValidator(8192, zerolog.Nop())
	got, err := v.Validate(strings.Repeat("a", 10000))
	require.NoError(t, err)
	require.Len(t, got, 8192)

	got, err = v.Validate(strings.Repeat("a", 8192))
	require.NoError(t, err)
	require.Len(t, got, 8192)
}

func TestValidateTruncatesByCharacters(t *testing.T) {
	v := NewValidator(5, zerolog.Nop())
	got, err := v.Validate("héllo wörld")
	require.NoError(t, err)
	require.Equal(t, "héllo", got)
	require.Equal(t, 5, utf8.RuneCountInString(got))
}

func TestValidateTruncatesAfterStrip(t *testing.T) {
	v := NewValidator(3, zerolog.Nop())
	got, err := v.Validate("   abcdef   ")
	require.NoError(t, err)
	require.Equal(t, "abc", got)
}
