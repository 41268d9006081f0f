// Package bitstring implements fixed-width bit sequences with MSB-first
// slicing, the two's-complement conversions the assembler and CPU need,
// and hex rendering for observer snapshots.
//
// A BitString is represented as a right-aligned integer plus a width,
// not as a string of '0'/'1' characters: every width in this simulator
// is known ahead of time from an ISA descriptor, so there is no need to
// pay for a character-array representation.
package bitstring

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxWidth is the widest BitString this package supports. The widest
// value ever carried by the simulator is a 64-bit SIMD register vector.
const MaxWidth = 64

// BitString is an immutable, fixed-width, MSB-first bit sequence.
type BitString struct {
	width int
	bits  uint64
}

// Zero returns a width-bit BitString of all zero bits.
func Zero(width int) BitString {
	return BitString{width: width}
}

// FromUint builds a width-bit BitString from the low width bits of v.
func FromUint(width int, v uint64) BitString {
	return BitString{width: width, bits: mask(width) & v}
}

// FromBinary parses a string of '0'/'1' characters, MSB first.
func FromBinary(s string) (BitString, error) {
	if len(s) == 0 {
		return BitString{}, nil
	}
	v, err := strconv.ParseUint(s, 2, 64)
	if err != nil {
		return BitString{}, fmt.Errorf("bitstring: invalid binary literal %q: %w", s, err)
	}
	return BitString{width: len(s), bits: v}, nil
}

// EncodeSigned encodes v as the two's complement representation of a
// width-bit BitString.
func EncodeSigned(v int64, width int) BitString {
	return BitString{width: width, bits: uint64(v) & mask(width)}
}

func mask(width int) uint64 {
	if width <= 0 {
		return 0
	}
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(width)) - 1
}

// Width reports the number of bits in s.
func (s BitString) Width() int { return s.width }

// Uint returns the unsigned integer value of s.
func (s BitString) Uint() uint64 { return s.bits }

// Uint16 returns the low 16 bits of s as a uint16, the native register width.
func (s BitString) Uint16() uint16 { return uint16(s.bits & 0xffff) }

// Int decodes s as a two's complement signed integer of its own width.
func (s BitString) Int() int64 {
	if s.width == 0 {
		return 0
	}
	signBit := uint64(1) << uint(s.width-1)
	if s.bits&signBit != 0 {
		return int64(s.bits) - int64(uint64(1)<<uint(s.width))
	}
	return int64(s.bits)
}

// Concat returns the bitstring formed by this value's bits followed by
// other's bits (MSB first).
func (s BitString) Concat(other BitString) BitString {
	return BitString{
		width: s.width + other.width,
		bits:  (s.bits << uint(other.width)) | other.bits,
	}
}

// Slice extracts the half-open bit range [a, b) where bit index 0 is the
// most-significant bit of s.
func (s BitString) Slice(a, b int) BitString {
	if a < 0 || b > s.width || a > b {
		panic(fmt.Sprintf("bitstring: slice [%d:%d) out of range for width %d", a, b, s.width))
	}
	width := b - a
	shift := s.width - b
	return BitString{width: width, bits: (s.bits >> uint(shift)) & mask(width)}
}

// SignExtend returns s widened to newWidth, copying its sign bit into
// the new high-order bits. newWidth must be >= s.Width().
func (s BitString) SignExtend(newWidth int) BitString {
	if newWidth <= s.width {
		return BitString{width: newWidth, bits: s.bits & mask(newWidth)}
	}
	v := s.Int()
	return BitString{width: newWidth, bits: uint64(v) & mask(newWidth)}
}

// PadLeft returns s widened to newWidth by adding zero bits on the left
// (the high-order side). newWidth must be >= s.Width().
func (s BitString) PadLeft(newWidth int) BitString {
	if newWidth <= s.width {
		return s
	}
	return BitString{width: newWidth, bits: s.bits}
}

// String renders s as a string of '0'/'1' characters, MSB first.
func (s BitString) String() string {
	if s.width == 0 {
		return ""
	}
	return fmt.Sprintf("%0*b", s.width, s.bits)
}

// Hex renders s as a minimal-width hex string, padding the bit width up
// to the next nibble boundary.
func (s BitString) Hex() string {
	nibbles := (s.width + 3) / 4
	if nibbles == 0 {
		return "0"
	}
	return fmt.Sprintf("%0*x", nibbles, s.bits)
}

// JoinBinary concatenates the string forms of bitstrings in order.
func JoinBinary(parts []BitString) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.String())
	}
	return b.String()
}
