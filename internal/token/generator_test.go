package token_test

import (
	"math"
	"regexp"
	"sync"
	"testing"

	"github.com/book-expert/translate-tts-service/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordedKey is a key pair captured once from the service and replayed here.
var recordedKey = token.KeyPair{Index: 406398, Key: 561666268}

var tokenFormat = regexp.MustCompile(`^\d+\.-?\d+$`)

func TestGenerate_Golden(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want string
	}{
		{text: "hello", want: "13708.394994"},
		{text: "", want: "268619.141877"},
		{text: "a", want: "135140.277658"},
		{text: "Hello, world!", want: "338876.202946"},
		{text: "héllo wörld", want: "166218.309812"},
		{text: "日本語", want: "505363.99693"},
		{text: "😀", want: "771817.914839"},
		{text: "abc😀def", want: "964913.559695"},
	}

	for _, testCase := range tests {
		t.Run(testCase.text, func(t *testing.T) {
			t.Parallel()

			got, err := token.Generate(testCase.text, recordedKey)
			require.NoError(t, err)
			assert.Equal(t, testCase.want, got)
		})
	}
}

func TestGenerateUnits_LoneSurrogates(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "562354.960460", token.GenerateUnits([]uint16{0xD83D}, recordedKey))
	assert.Equal(t, "350562.223772", token.GenerateUnits([]uint16{'x', 0xDE00, 'y'}, recordedKey))
}

func TestGenerate_KeyAboveInt32(t *testing.T) {
	t.Parallel()

	got, err := token.Generate("hello", token.KeyPair{Index: 422388, Key: 3809655724})
	require.NoError(t, err)
	assert.Equal(t, "756153.915533", got)
}

func TestGenerate_ZeroKey(t *testing.T) {
	t.Parallel()

	got, err := token.Generate("hello", token.KeyPair{Index: 406398, Key: 0})
	require.NoError(t, err)
	assert.Equal(t, "488912.83630", got)
}

func TestGenerate_Deterministic(t *testing.T) {
	t.Parallel()

	first, err := token.Generate("determinism check", recordedKey)
	require.NoError(t, err)

	var waitGroup sync.WaitGroup

	results := make([]string, 16)

	for i := range results {
		waitGroup.Add(1)

		go func(slot int) {
			defer waitGroup.Done()

			results[slot], _ = token.Generate("determinism check", recordedKey)
		}(i)
	}

	waitGroup.Wait()

	for _, result := range results {
		assert.Equal(t, first, result)
	}
}

func TestGenerate_InvalidText(t *testing.T) {
	t.Parallel()

	_, err := token.Generate("\xff", recordedKey)
	require.ErrorIs(t, err, token.ErrEncoding)
}

func TestCompute(t *testing.T) {
	t.Parallel()

	tk, err := token.Compute("abc😀def", recordedKey)
	require.NoError(t, err)
	assert.Equal(t, "964913.559695", tk.Value)
	assert.Equal(t, "964913.559695", tk.String())
	assert.Equal(t, 8, tk.TextLen)
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   int64
		want int64
	}{
		{in: 0, want: 0},
		{in: 999999, want: 999999},
		{in: 1000000, want: 0},
		{in: -1, want: 967295},
		{in: -2147483648, want: 483648},
		{in: math.MinInt64, want: 483648},
		{in: math.MaxInt64, want: 775807},
	}

	for _, testCase := range tests {
		assert.Equal(t, testCase.want, token.Normalize(testCase.in), "input %d", testCase.in)
	}
}

func TestNormalize_AlwaysInRange(t *testing.T) {
	t.Parallel()

	for v := int64(math.MinInt32) * 4; v < int64(math.MaxInt32)*4; v += 104729 * 13 {
		normalized := token.Normalize(v)
		assert.GreaterOrEqual(t, normalized, int64(0))
		assert.Less(t, normalized, int64(1000000))
	}
}

func TestGenerate_Format(t *testing.T) {
	t.Parallel()

	keys := []token.KeyPair{
		recordedKey,
		{Index: 0, Key: 0},
		{Index: 2147483647, Key: 4294967295},
		{Index: 3000000000, Key: 1},
	}

	for _, key := range keys {
		for _, text := range []string{"", "hello", "日本語", "😀😀"} {
			got, err := token.Generate(text, key)
			require.NoError(t, err)
			assert.Regexp(t, tokenFormat, got)
		}
	}
}

func TestKeyPairString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "406398.561666268", recordedKey.String())
}

func TestGenerator(t *testing.T) {
	t.Parallel()

	generator := token.NewGenerator(recordedKey)

	tk, err := generator.Generate("日本語")
	require.NoError(t, err)
	assert.Equal(t, "505363.99693", tk.Value)
	assert.Equal(t, 3, tk.TextLen)

	var zero token.Generator

	tk, err = zero.Generate("hello")
	require.NoError(t, err)
	assert.Equal(t, token.GenerateUnits([]uint16{'h', 'e', 'l', 'l', 'o'}, token.KeyPair{}), tk.Value)
}
