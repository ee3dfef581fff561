package token_test

import (
	"testing"

	"github.com/book-expert/translate-tts-service/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeUnits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		text  string
		units []uint16
	}{
		{name: "empty", text: "", units: []uint16{}},
		{name: "ascii", text: "hi", units: []uint16{0x68, 0x69}},
		{name: "latin1", text: "é", units: []uint16{0xE9}},
		{name: "bmp", text: "日本", units: []uint16{0x65E5, 0x672C}},
		{name: "surrogate pair stays split", text: "a😀", units: []uint16{0x61, 0xD83D, 0xDE00}},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			units, err := token.CodeUnits(testCase.text)
			require.NoError(t, err)
			assert.Equal(t, testCase.units, units)
		})
	}
}

func TestCodeUnits_InvalidUTF8(t *testing.T) {
	t.Parallel()

	_, err := token.CodeUnits("ab\xffcd")
	require.ErrorIs(t, err, token.ErrEncoding)
}

func TestTextLen(t *testing.T) {
	t.Parallel()

	length, err := token.TextLen("abc😀def")
	require.NoError(t, err)
	assert.Equal(t, 8, length, "astral characters count as two code units")

	length, err = token.TextLen("héllo")
	require.NoError(t, err)
	assert.Equal(t, 5, length)

	_, err = token.TextLen("\xc3")
	require.ErrorIs(t, err, token.ErrEncoding)
}
