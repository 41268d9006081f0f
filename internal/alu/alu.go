// Package alu implements the arithmetic/logic functions and the flag
// semantics every category="alu" instruction triggers after writeback.
package alu

import "fmt"

// Flags mirrors the FR register's four condition bits.
type Flags struct {
	CF bool // unsigned carry/borrow out of bit 16
	ZF bool // result is all-zero
	SF bool // result's sign bit (MSB) is set
	OF bool // signed overflow
}

// Pack encodes the flags into the low 4 bits of a 16-bit FR value, in
// CF,ZF,SF,OF order from bit 3 down to bit 0.
func (f Flags) Pack() uint16 {
	var v uint16
	if f.CF {
		v |= 1 << 3
	}
	if f.ZF {
		v |= 1 << 2
	}
	if f.SF {
		v |= 1 << 1
	}
	if f.OF {
		v |= 1 << 0
	}
	return v
}

// Unpack decodes an FR register value into Flags.
func Unpack(v uint16) Flags {
	return Flags{
		CF: v&(1<<3) != 0,
		ZF: v&(1<<2) != 0,
		SF: v&(1<<1) != 0,
		OF: v&(1<<0) != 0,
	}
}

func flagsFor(result uint16) Flags {
	return Flags{SF: result&0x8000 != 0, ZF: result == 0}
}

// Func computes a result from an ordered operand list and the flags that
// should follow it. mov returns its last operand and not uses only its
// first; every other function takes two.
type Func func(ops []uint16) (uint16, Flags, error)

// Table maps a bare mnemonic (SIMD lane markers already stripped by the
// caller) to its ALU function.
var Table = map[string]Func{
	"mov": func(ops []uint16) (uint16, Flags, error) {
		v := ops[len(ops)-1]
		return v, flagsFor(v), nil
	},
	"mov_low": func(ops []uint16) (uint16, Flags, error) {
		r, v := ops[0], ops[1]
		result := (r & 0xff00) | (v & 0x00ff)
		return result, flagsFor(result), nil
	},
	"mov_high": func(ops []uint16) (uint16, Flags, error) {
		r, v := ops[0], ops[1]
		result := (r & 0x00ff) | ((v & 0x00ff) << 8)
		return result, flagsFor(result), nil
	},
	"add": func(ops []uint16) (uint16, Flags, error) {
		a, b := ops[0], ops[1]
		sum := uint32(a) + uint32(b)
		result := uint16(sum)
		f := flagsFor(result)
		f.CF = sum > 0xffff
		signA, signB, signR := a&0x8000 != 0, b&0x8000 != 0, result&0x8000 != 0
		f.OF = signA == signB && signR != signA
		return result, f, nil
	},
	"sub": func(ops []uint16) (uint16, Flags, error) {
		a, b := ops[0], ops[1]
		result := a - b
		f := flagsFor(result)
		f.CF = a < b
		signA, signB, signR := a&0x8000 != 0, b&0x8000 != 0, result&0x8000 != 0
		f.OF = signA != signB && signR != signA
		return result, f, nil
	},
	"mul": func(ops []uint16) (uint16, Flags, error) {
		a, b := ops[0], ops[1]
		product := uint32(a) * uint32(b)
		result := uint16(product)
		f := flagsFor(result)
		f.CF = product>>16 != 0
		f.OF = f.CF
		return result, f, nil
	},
	"div": func(ops []uint16) (uint16, Flags, error) {
		a, b := int16(ops[0]), int16(ops[1])
		if b == 0 {
			return 0, Flags{}, fmt.Errorf("alu: division by zero")
		}
		result := uint16(a / b)
		return result, flagsFor(result), nil
	},
	"mod": func(ops []uint16) (uint16, Flags, error) {
		a, b := int16(ops[0]), int16(ops[1])
		if b == 0 {
			return 0, Flags{}, fmt.Errorf("alu: division by zero")
		}
		result := uint16(a % b)
		return result, flagsFor(result), nil
	},
	"and": func(ops []uint16) (uint16, Flags, error) {
		result := ops[0] & ops[1]
		return result, flagsFor(result), nil
	},
	"or": func(ops []uint16) (uint16, Flags, error) {
		result := ops[0] | ops[1]
		return result, flagsFor(result), nil
	},
	"xor": func(ops []uint16) (uint16, Flags, error) {
		result := ops[0] ^ ops[1]
		return result, flagsFor(result), nil
	},
	"not": func(ops []uint16) (uint16, Flags, error) {
		result := ^ops[0]
		return result, flagsFor(result), nil
	},
	"shl": func(ops []uint16) (uint16, Flags, error) {
		a, n := ops[0], ops[1]%16
		result := a << n
		f := flagsFor(result)
		if n > 0 {
			f.CF = a&(1<<(16-n)) != 0
		}
		return result, f, nil
	},
	"shr": func(ops []uint16) (uint16, Flags, error) {
		a, n := ops[0], ops[1]%16
		result := a >> n
		f := flagsFor(result)
		if n > 0 {
			f.CF = a&(1<<(n-1)) != 0
		}
		return result, f, nil
	},
	"cmp": func(ops []uint16) (uint16, Flags, error) {
		a, b := ops[0], ops[1]
		result := a - b
		f := flagsFor(result)
		f.CF = a < b
		signA, signB, signR := a&0x8000 != 0, b&0x8000 != 0, result&0x8000 != 0
		f.OF = signA != signB && signR != signA
		return result, f, nil
	},
}

// Apply looks up mnemonic in Table and invokes it.
func Apply(mnemonic string, ops []uint16) (uint16, Flags, error) {
	fn, ok := Table[mnemonic]
	if !ok {
		return 0, Flags{}, fmt.Errorf("alu: unknown function %q", mnemonic)
	}
	return fn(ops)
}
