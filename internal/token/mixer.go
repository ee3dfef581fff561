package token

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedOperation is returned when an operation code is not of the form
// [combine][shift][amount].
var ErrMalformedOperation = errors.New("malformed mixer operation code")

const (
	operationCodeLen   = 3
	opMarkerPlus       = '+'
	opMarkerXor        = '^'
	opMarkerLeft       = '-'
	alphaAmountFloor   = 'a'
	alphaAmountOffset  = 87
	digitAmountFloor   = '0'
	digitAmountCeiling = '9'

	errFmtOperationLength = "%w: %q must be %d characters"
	errFmtOperationAmount = "%w: %q has invalid shift amount %q"
	errFmtCompactLength   = "%w: compact program %q length is not a multiple of %d"
)

// ShiftDirection selects how the accumulator is shifted before combining.
type ShiftDirection uint8

const (
	// ShiftLeft shifts left, discarding bits above bit 31.
	ShiftLeft ShiftDirection = iota
	// ShiftRightUnsigned is a logical right shift on the 32-bit value.
	ShiftRightUnsigned
)

// Combiner selects how the shifted value is merged into the accumulator.
type Combiner uint8

const (
	// CombineXor merges with bitwise XOR.
	CombineXor Combiner = iota
	// CombineAdd merges with 32-bit masked addition.
	CombineAdd
)

// Operation is one parsed mixer step.
type Operation struct {
	Combine Combiner
	Shift   ShiftDirection
	Amount  uint
}

// ParseOperation decodes a three character operation code. The first
// character picks the combiner ('+' adds, anything else XORs), the second the
// shift ('+' is an unsigned right shift, anything else a left shift) and the
// third the amount: letters map to their character code minus 87 ('a' is 10),
// digits to their value.
func ParseOperation(code string) (Operation, error) {
	if len(code) != operationCodeLen {
		return Operation{}, fmt.Errorf(errFmtOperationLength, ErrMalformedOperation, code, operationCodeLen)
	}

	amount, ok := parseAmount(code[2])
	if !ok {
		return Operation{}, fmt.Errorf(errFmtOperationAmount, ErrMalformedOperation, code, code[2])
	}

	operation := Operation{
		Combine: CombineXor,
		Shift:   ShiftLeft,
		Amount:  amount,
	}

	if code[0] == opMarkerPlus {
		operation.Combine = CombineAdd
	}

	if code[1] == opMarkerPlus {
		operation.Shift = ShiftRightUnsigned
	}

	return operation, nil
}

func parseAmount(char byte) (uint, bool) {
	switch {
	case char >= alphaAmountFloor:
		return uint(char) - alphaAmountOffset, true
	case char >= digitAmountFloor && char <= digitAmountCeiling:
		return uint(char - digitAmountFloor), true
	default:
		return 0, false
	}
}

// Apply runs the operation once against acc.
func (op Operation) Apply(acc int64) int64 {
	var shifted int64

	switch op.Shift {
	case ShiftRightUnsigned:
		shifted = shiftRightUnsigned(acc, op.Amount)
	default:
		shifted = shiftLeft(acc, op.Amount)
	}

	if op.Combine == CombineAdd {
		return addMasked(acc, shifted)
	}

	return xor32(acc, shifted)
}

// String renders the operation back into its three character code.
func (op Operation) String() string {
	combine := byte(opMarkerXor)
	if op.Combine == CombineAdd {
		combine = opMarkerPlus
	}

	shift := byte(opMarkerLeft)
	if op.Shift == ShiftRightUnsigned {
		shift = opMarkerPlus
	}

	amount := byte(digitAmountFloor) + byte(op.Amount)
	if op.Amount > digitAmountCeiling-digitAmountFloor {
		amount = byte(op.Amount + alphaAmountOffset)
	}

	return string([]byte{combine, shift, amount})
}

// Program is an ordered list of operations folded over an accumulator.
type Program []Operation

// ParseProgram parses each code in order.
func ParseProgram(codes ...string) (Program, error) {
	program := make(Program, 0, len(codes))

	for _, code := range codes {
		operation, err := ParseOperation(code)
		if err != nil {
			return nil, err
		}

		program = append(program, operation)
	}

	return program, nil
}

// ParseCompact parses the concatenated form, e.g. "+-a^+6".
func ParseCompact(compact string) (Program, error) {
	if len(compact)%operationCodeLen != 0 {
		return nil, fmt.Errorf(errFmtCompactLength, ErrMalformedOperation, compact, operationCodeLen)
	}

	codes := make([]string, 0, len(compact)/operationCodeLen)
	for i := 0; i < len(compact); i += operationCodeLen {
		codes = append(codes, compact[i:i+operationCodeLen])
	}

	return ParseProgram(codes...)
}

// MustParseProgram is ParseProgram for fixed, known-good codes.
func MustParseProgram(codes ...string) Program {
	program, err := ParseProgram(codes...)
	if err != nil {
		panic(err)
	}

	return program
}

// Mix folds every operation over acc and returns the result.
func (p Program) Mix(acc int64) int64 {
	for _, operation := range p {
		acc = operation.Apply(acc)
	}

	return acc
}

// String renders the program in compact form.
func (p Program) String() string {
	var builder strings.Builder

	for _, operation := range p {
		builder.WriteString(operation.String())
	}

	return builder.String()
}

// Mix folds ops over acc.
func Mix(acc int64, ops []Operation) int64 {
	return Program(ops).Mix(acc)
}
