// Package token derives the "tk" request token expected by the translation
// service's text-to-speech endpoint.
//
// The pipeline is pure and deterministic: text is split into UTF-16 code
// units, re-encoded into a byte stream with hand-written UTF-8 style masks,
// folded through a small shift/combine mixer seeded with the server key pair,
// and normalized into a two-part decimal token. Nothing here performs I/O, so
// concurrent callers need no coordination.
package token

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// ErrEncoding is returned when text cannot be represented as UTF-16 code units.
var ErrEncoding = errors.New("text cannot be encoded as UTF-16 code units")

const (
	errFmtInvalidUTF8    = "%w: input is not valid UTF-8"
	errFmtEncoderFailed  = "%w: %w"
	errFmtOddUnitPayload = "%w: encoder produced %d bytes, expected an even count"
	bytesPerCodeUnit     = 2
	highByteShift        = 8
)

// utf16LE encodes without a byte order mark so that every two output bytes
// are exactly one code unit.
var utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// CodeUnits returns the UTF-16 code units of text. Characters outside the
// Basic Multilingual Plane appear as two units (a surrogate pair) and are
// left for the byte transformer to combine.
func CodeUnits(text string) ([]uint16, error) {
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf(errFmtInvalidUTF8, ErrEncoding)
	}

	encoded, err := utf16LE.NewEncoder().String(text)
	if err != nil {
		return nil, fmt.Errorf(errFmtEncoderFailed, ErrEncoding, err)
	}

	if len(encoded)%bytesPerCodeUnit != 0 {
		return nil, fmt.Errorf(errFmtOddUnitPayload, ErrEncoding, len(encoded))
	}

	units := make([]uint16, 0, len(encoded)/bytesPerCodeUnit)
	for i := 0; i < len(encoded); i += bytesPerCodeUnit {
		units = append(units, codeUnit(encoded[i], encoded[i+1]))
	}

	return units, nil
}

// TextLen reports the length of text in UTF-16 code units, which is the
// "textlen" value the speech endpoint checks against the token.
func TextLen(text string) (int, error) {
	units, err := CodeUnits(text)
	if err != nil {
		return 0, err
	}

	return len(units), nil
}

// codeUnit combines a little-endian byte pair into one code unit.
func codeUnit(low, high byte) uint16 {
	return uint16(low) | uint16(high)<<highByteShift
}
