package token

// Masks and markers for the multi-byte encoding of code units.
const (
	oneByteLimit     = 0x80
	twoByteLimit     = 0x800
	surrogateMask    = 0xFC00
	highSurrogate    = 0xD800
	lowSurrogate     = 0xDC00
	surrogatePayload = 0x3FF
	supplementaryMin = 0x10000
	continuation     = 0x80
	continuationBits = 0x3F
	twoByteLead      = 0xC0
	threeByteLead    = 0xE0
	fourByteLead     = 0xF0
	surrogateShift   = 10
)

// EncodeUnits converts UTF-16 code units into the byte stream the server folds
// into the token. A high surrogate immediately followed by a low surrogate is
// combined into a single four-byte sequence. Any other unit at or above 0x800,
// including an unpaired surrogate, becomes a three-byte sequence; this mirrors
// the server and must not be treated as an error.
func EncodeUnits(units []uint16) []byte {
	out := make([]byte, 0, len(units))

	for i := 0; i < len(units); i++ {
		unit := uint32(units[i])

		switch {
		case unit < oneByteLimit:
			out = append(out, byte(unit))
		case unit < twoByteLimit:
			out = append(out,
				byte(unit>>6|twoByteLead),
				byte(unit&continuationBits|continuation),
			)
		case isSurrogatePair(units, i):
			next := uint32(units[i+1])
			i++

			codePoint := supplementaryMin + (unit&surrogatePayload)<<surrogateShift + next&surrogatePayload
			out = append(out,
				byte(codePoint>>18|fourByteLead),
				byte(codePoint>>12&continuationBits|continuation),
				byte(codePoint>>6&continuationBits|continuation),
				byte(codePoint&continuationBits|continuation),
			)
		default:
			out = append(out,
				byte(unit>>12|threeByteLead),
				byte(unit>>6&continuationBits|continuation),
				byte(unit&continuationBits|continuation),
			)
		}
	}

	return out
}

// EncodeText runs CodeUnits and EncodeUnits back to back.
func EncodeText(text string) ([]byte, error) {
	units, err := CodeUnits(text)
	if err != nil {
		return nil, err
	}

	return EncodeUnits(units), nil
}

// isSurrogatePair reports whether units[i] opens a surrogate pair. The
// lookahead reads the same slice the scan walks, so both always agree on the
// text length.
func isSurrogatePair(units []uint16, i int) bool {
	if units[i]&surrogateMask != highSurrogate {
		return false
	}

	if i+1 >= len(units) {
		return false
	}

	return units[i+1]&surrogateMask == lowSurrogate
}
