// Package tkk obtains the rotating "tkk" key pair that seeds token generation.
//
// Suppliers fetch the pair from the translation service's landing page by
// matching the tkk:'<index>.<key>' literal embedded in it. The index is
// mandatory; a missing or malformed key component falls back to zero, which
// is what the service itself does.
package tkk

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/book-expert/translate-tts-service/internal/token"
)

// ErrKeyFetch is returned when a key pair cannot be retrieved or parsed.
var ErrKeyFetch = errors.New("failed to obtain tkk key pair")

const (
	keySeparator  = "."
	keyPartsLimit = 3
	keyPattern    = `tkk:'([^']*)'`

	errFmtPatternAbsent = "%w: tkk pattern not found in response"
	errFmtEmptyIndex    = "%w: empty index in %q"
	errFmtBadIndex      = "%w: invalid index in %q: %w"
	errFmtNegativeIndex = "%w: negative index in %q"
)

var keyRegexp = regexp.MustCompile(keyPattern)

// ParseKeyPair parses "index.key". The index must be a non-negative integer;
// the key defaults to 0 when it is absent or not an integer. Components after
// the second are ignored.
func ParseKeyPair(raw string) (token.KeyPair, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), keySeparator, keyPartsLimit)

	indexPart, keyPart := parts[0], ""
	if len(parts) > 1 {
		keyPart = parts[1]
	}

	if indexPart == "" {
		return token.KeyPair{}, fmt.Errorf(errFmtEmptyIndex, ErrKeyFetch, raw)
	}

	index, err := strconv.ParseInt(indexPart, 10, 64)
	if err != nil {
		return token.KeyPair{}, fmt.Errorf(errFmtBadIndex, ErrKeyFetch, raw, err)
	}

	if index < 0 {
		return token.KeyPair{}, fmt.Errorf(errFmtNegativeIndex, ErrKeyFetch, raw)
	}

	key, err := strconv.ParseInt(keyPart, 10, 64)
	if err != nil || key < 0 {
		key = 0
	}

	return token.KeyPair{Index: index, Key: key}, nil
}

// ExtractKeyPair locates the tkk literal in a page body and parses it.
func ExtractKeyPair(body []byte) (token.KeyPair, error) {
	match := keyRegexp.FindSubmatch(body)
	if match == nil {
		return token.KeyPair{}, fmt.Errorf(errFmtPatternAbsent, ErrKeyFetch)
	}

	return ParseKeyPair(string(match[1]))
}
