// Package isa loads and represents the ISA descriptor tables: instruction
// widths, the opcode -> {mnemonic, category, operand-aliases} map, and
// the register table, for each of the four toy ISAs (stack, accumulator,
// risc, cisc). Descriptors are data, loaded from embedded TOML, not
// built into the core.
package isa

import (
	"fmt"
	"io"
)

// Name identifies one of the four toy ISAs.
type Name string

const (
	Stack       Name = "stack"
	Accumulator Name = "accumulator"
	RISC        Name = "risc"
	CISC        Name = "cisc"
)

// Dest names where an instruction's computed result is written.
type Dest string

const (
	DestFirstOp Dest = "firstop" // RISC/CISC: derived from operand[0]'s alias (reg/memreg/memregoff)
	DestTOS     Dest = "tos"     // stack ISA: push onto the register stack
	DestAcc     Dest = "acc"     // accumulator ISA: the ACC register
	DestIR      Dest = "ir"      // accumulator ISA: the IR register itself
	DestMemIR   Dest = "memir"   // accumulator ISA: memory cell addressed by IR
	DestFlags   Dest = "fr"      // flags only, value discarded
	DestPort    Dest = "port"    // I/O port
	DestNone    Dest = "none"    // control flow / instructions that manage their own writes
)

// Category selects the execute-engine handler for an instruction.
type Category string

const (
	CatALU       Category = "alu"
	CatCall      Category = "call"
	CatRet       Category = "ret"
	CatJmp       Category = "jmp"
	CatEnter     Category = "enter"
	CatLeave     Category = "leave"
	CatStackPush Category = "stackpush"
	CatStackPop  Category = "stackpop"
	CatStackPopF Category = "stackpopf"
	CatOut       Category = "out"
	CatIn        Category = "in"
	CatSwap      Category = "swap"
	CatSimd      Category = "simd"
	CatSimdLoad  Category = "simdload"
	CatSimdStore Category = "simdstore"
)

// Instruction is one opcode's decoded metadata.
type Instruction struct {
	Opcode   string // opcode bits, MSB first, length == Descriptor.OpcodeBits (OpcodeBits-1 for ShortOpcode entries)
	Mnemonic string
	Category Category
	Dest     Dest
	Operands []string // operand aliases, in declared order
}

// RegisterDesc is one entry of an ISA's register table.
type RegisterDesc struct {
	Name           string
	GeneralPurpose bool
	Code           string // binary register code used by reg/memreg/regoff operands
}

// Descriptor is the fully parsed, strongly-typed ISA table.
type Descriptor struct {
	ISA          Name
	InstrBits    int
	OpcodeBits   int
	ByteBits     int
	Instructions []Instruction          // in table order, for overload resolution
	ByMnemonic   map[string][]int       // mnemonic -> indices into Instructions, in table order
	ByOpcode     map[string]int         // opcode bits -> index into Instructions
	ShortOpcode  map[string]int         // RISC mov_low/mov_high: (OpcodeBits-1)-wide opcode -> index
	Registers    []RegisterDesc
	RegByName    map[string]RegisterDesc
	RegByCode    map[string]RegisterDesc
}

// CISCStyle describes how many register packs and long immediates
// follow a CISC opcode, keyed by the opcode's top 3 bits.
var CISCStyle = map[string]struct{ RegCount, ImmCount int }{
	"000": {1, 0},
	"001": {0, 0},
	"010": {0, 1},
	"011": {2, 0},
	"100": {1, 1},
	"101": {2, 1},
	"110": {1, 2},
}

func build(isaName Name, raw rawTable) (*Descriptor, error) {
	d := &Descriptor{
		ISA:         isaName,
		InstrBits:   raw.InstrBits,
		OpcodeBits:  raw.OpcodeBits,
		ByteBits:    raw.ByteBits,
		ByMnemonic:  map[string][]int{},
		ByOpcode:    map[string]int{},
		ShortOpcode: map[string]int{},
		RegByName:   map[string]RegisterDesc{},
		RegByCode:   map[string]RegisterDesc{},
	}

	for _, ri := range raw.Instructions {
		short := len(ri.Opcode) == d.OpcodeBits-1
		if !short && len(ri.Opcode) != d.OpcodeBits {
			return nil, fmt.Errorf("isa %s: instruction %q has opcode width %d, want %d", isaName, ri.Mnemonic, len(ri.Opcode), d.OpcodeBits)
		}
		allZero := true
		for _, c := range ri.Opcode {
			if c != '0' {
				allZero = false
				break
			}
		}
		if allZero {
			return nil, fmt.Errorf("isa %s: instruction %q uses the reserved all-zero halt opcode", isaName, ri.Mnemonic)
		}
		inst := Instruction{
			Opcode:   ri.Opcode,
			Mnemonic: ri.Mnemonic,
			Category: Category(ri.Category),
			Dest:     Dest(ri.Dest),
			Operands: append([]string(nil), ri.Operands...),
		}
		idx := len(d.Instructions)
		d.Instructions = append(d.Instructions, inst)
		d.ByMnemonic[inst.Mnemonic] = append(d.ByMnemonic[inst.Mnemonic], idx)
		if short {
			if _, dup := d.ShortOpcode[inst.Opcode]; dup {
				return nil, fmt.Errorf("isa %s: duplicate short opcode %q", isaName, inst.Opcode)
			}
			d.ShortOpcode[inst.Opcode] = idx
			continue
		}
		if _, dup := d.ByOpcode[inst.Opcode]; dup {
			return nil, fmt.Errorf("isa %s: duplicate opcode %q", isaName, inst.Opcode)
		}
		d.ByOpcode[inst.Opcode] = idx
	}

	for _, rr := range raw.Registers {
		reg := RegisterDesc{Name: rr.Name, GeneralPurpose: rr.GeneralPurpose, Code: rr.Code}
		d.Registers = append(d.Registers, reg)
		d.RegByName[reg.Name] = reg
		if reg.Code != "" {
			d.RegByCode[reg.Code] = reg
		}
	}

	return d, nil
}

// InstructionWidths reports the (instr, opcode, byte) bit widths for the
// given ISA name.
func InstructionWidths(name Name) (instrBits, opcodeBits, byteBits int, err error) {
	d, err := Load(name)
	if err != nil {
		return 0, 0, 0, err
	}
	return d.InstrBits, d.OpcodeBits, d.ByteBits, nil
}

// Load returns the built-in descriptor for one of the four toy ISAs.
func Load(name Name) (*Descriptor, error) {
	data, ok := defaultTables[name]
	if !ok {
		return nil, fmt.Errorf("isa: unknown ISA %q", name)
	}
	return Parse(name, data)
}

// LoadFrom parses an ISA descriptor from caller-supplied TOML data,
// letting a host program supply its own instruction/register tables
// instead of the four built in ones.
func LoadFrom(name Name, r io.Reader) (*Descriptor, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("isa: reading descriptor for %s: %w", name, err)
	}
	return Parse(name, b)
}
