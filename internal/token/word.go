package token

// 32-bit emulation. The accumulator travels as an int64 but is brought back to
// signed 32-bit canonical form after every operation, so wraparound matches
// the reference bit for bit regardless of the host word size.
const (
	mask32    = 0xFFFFFFFF
	mask31    = 0x7FFFFFFF
	signBit32 = 0x80000000
	shiftMask = 31
)

// toInt32 keeps the low 32 bits of v and reinterprets them as signed.
func toInt32(v int64) int64 {
	return int64(int32(uint32(v & mask32)))
}

// shiftLeft shifts the 32-bit value left; bits above bit 31 are discarded.
func shiftLeft(v int64, amount uint) int64 {
	return toInt32(v << (amount & shiftMask))
}

// shiftRightUnsigned is a logical right shift on the 32-bit value: vacated
// high bits are zero even when v is negative. An amount of 0 returns v.
func shiftRightUnsigned(v int64, amount uint) int64 {
	return toInt32(int64(uint32(v&mask32) >> (amount & shiftMask)))
}

// addMasked is (a + b) & 0xFFFFFFFF in signed canonical form.
func addMasked(a, b int64) int64 {
	return toInt32((a + b) & mask32)
}

func xor32(a, b int64) int64 {
	return toInt32(a ^ b)
}
