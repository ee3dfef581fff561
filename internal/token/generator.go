package token

import "strconv"

const (
	tokenModulus   = 1_000_000
	tokenSeparator = "."
)

// The fold program runs once per byte; the final program runs once after the
// fold, before the key is mixed in.
var (
	foldProgram  = MustParseProgram("+-a", "^+6")
	finalProgram = MustParseProgram("+-3", "^+b", "+-f")
)

// KeyPair is the server-issued "tkk" value. Index seeds the accumulator and is
// echoed in the second half of the token; Key is mixed in after the fold.
type KeyPair struct {
	Index int64
	Key   int64
}

// String renders the pair in the server's "index.key" form.
func (k KeyPair) String() string {
	return strconv.FormatInt(k.Index, 10) + tokenSeparator + strconv.FormatInt(k.Key, 10)
}

// Token is a generated request token together with the UTF-16 length of the
// text it was derived from. Both travel on the same request.
type Token struct {
	Value   string
	TextLen int
}

// String returns the token value.
func (t Token) String() string {
	return t.Value
}

// Compute derives the token for text under key.
func Compute(text string, key KeyPair) (Token, error) {
	units, err := CodeUnits(text)
	if err != nil {
		return Token{}, err
	}

	return Token{
		Value:   GenerateUnits(units, key),
		TextLen: len(units),
	}, nil
}

// Generate returns only the token string for text under key.
func Generate(text string, key KeyPair) (string, error) {
	tk, err := Compute(text, key)
	if err != nil {
		return "", err
	}

	return tk.Value, nil
}

// GenerateUnits derives the token from code units that were already
// extracted. Unpaired surrogates are accepted.
func GenerateUnits(units []uint16, key KeyPair) string {
	acc := key.Index

	for _, b := range EncodeUnits(units) {
		acc = foldProgram.Mix(acc + int64(b))
	}

	acc = finalProgram.Mix(acc)
	acc = xor32(acc, key.Key)

	normalized := Normalize(acc)

	return strconv.FormatInt(normalized, 10) + tokenSeparator + strconv.FormatInt(xor32(normalized, key.Index), 10)
}

// Normalize maps any accumulator value into [0, 999999]. Negative values are
// first reinterpreted as their unsigned 32-bit counterpart.
func Normalize(v int64) int64 {
	if v < 0 {
		v = (v & mask31) + signBit32
	}

	return v % tokenModulus
}

// Generator derives tokens under a fixed key pair. The zero value uses the
// pair {0, 0}. It holds no mutable state and may be shared between goroutines.
type Generator struct {
	Key KeyPair
}

// NewGenerator returns a Generator bound to key.
func NewGenerator(key KeyPair) Generator {
	return Generator{Key: key}
}

// Generate returns the token for text under the generator's key pair.
func (g Generator) Generate(text string) (Token, error) {
	return Compute(text, g.Key)
}
