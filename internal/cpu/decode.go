package cpu

import (
	"fmt"

	"github.com/tinyarch/isasim/internal/bitstring"
	"github.com/tinyarch/isasim/internal/isa"
)

func allZero(b bitstring.BitString) bool { return b.Uint() == 0 }

// regCodeWidth returns the bit width every non-empty register code shares
// in this ISA (3 bits for RISC/CISC's 8 general-purpose registers).
func regCodeWidth(d *isa.Descriptor) int {
	for _, r := range d.Registers {
		if r.Code != "" {
			return len(r.Code)
		}
	}
	return 0
}

// decode fetches and classifies the instruction at bitOffset, returning
// its metadata, its resolved written operands in declared order, and the
// total number of bits consumed (opcode plus any register-pack/immediate
// extension).
func (c *CPU) decode(bitOffset int) (isa.Instruction, []resolvedOperand, int, error) {
	switch c.d.ISA {
	case isa.RISC:
		return c.decodeRISC(bitOffset)
	case isa.CISC:
		return c.decodeCISC(bitOffset)
	default:
		return c.decodeOpcodeOnly(bitOffset)
	}
}

func (c *CPU) decodeRISC(bitOffset int) (isa.Instruction, []resolvedOperand, int, error) {
	var inst isa.Instruction
	var opWidth int

	shortBits, err := c.progMem.Read(bitOffset, bitOffset+c.d.OpcodeBits-1)
	if err != nil {
		return isa.Instruction{}, nil, 0, memErr(err)
	}
	if idx, ok := c.d.ShortOpcode[shortBits.String()]; ok {
		inst = c.d.Instructions[idx]
		opWidth = c.d.OpcodeBits - 1
	} else {
		full, err := c.progMem.Read(bitOffset, bitOffset+c.d.OpcodeBits)
		if err != nil {
			return isa.Instruction{}, nil, 0, memErr(err)
		}
		if allZero(full) {
			return isa.Instruction{}, nil, 0, errHalt
		}
		idx, ok := c.d.ByOpcode[full.String()]
		if !ok {
			return isa.Instruction{}, nil, 0, fmt.Errorf("cpu: unknown opcode %s", full.String())
		}
		inst = c.d.Instructions[idx]
		opWidth = c.d.OpcodeBits
	}

	cursor := bitOffset + opWidth
	codeWidth := regCodeWidth(c.d)
	var resolved []resolvedOperand
	for _, alias := range inst.Operands {
		shape := isa.ClassifyOperand(alias)
		if !shape.Written {
			continue
		}
		switch {
		case alias == "reg":
			code, err := c.progMem.Read(cursor, cursor+codeWidth)
			if err != nil {
				return isa.Instruction{}, nil, 0, memErr(err)
			}
			reg, ok := c.d.RegByCode[code.String()]
			if !ok {
				return isa.Instruction{}, nil, 0, fmt.Errorf("cpu: unknown register code %s", code.String())
			}
			resolved = append(resolved, resolvedOperand{Alias: alias, RegName: reg.Name})
			cursor += codeWidth
		case shape.InlineWidth > 0:
			field, err := c.progMem.Read(cursor, cursor+shape.InlineWidth)
			if err != nil {
				return isa.Instruction{}, nil, 0, memErr(err)
			}
			resolved = append(resolved, resolvedOperand{Alias: alias, Imm: field.Int()})
			cursor += shape.InlineWidth
		default:
			return isa.Instruction{}, nil, 0, fmt.Errorf("cpu: operand alias %q unsupported in risc decode", alias)
		}
	}
	return inst, resolved, cursor - bitOffset, nil
}

// decodeOpcodeOnly handles the stack and accumulator ISAs: the whole
// instruction word is the opcode, and at most one written "imm" alias
// contributes a trailing 2*ByteBits word, sign extended by bitstring.Int.
func (c *CPU) decodeOpcodeOnly(bitOffset int) (isa.Instruction, []resolvedOperand, int, error) {
	full, err := c.progMem.Read(bitOffset, bitOffset+c.d.InstrBits)
	if err != nil {
		return isa.Instruction{}, nil, 0, memErr(err)
	}
	if allZero(full) {
		return isa.Instruction{}, nil, 0, errHalt
	}
	idx, ok := c.d.ByOpcode[full.String()]
	if !ok {
		return isa.Instruction{}, nil, 0, fmt.Errorf("cpu: unknown opcode %s", full.String())
	}
	inst := c.d.Instructions[idx]

	cursor := bitOffset + c.d.InstrBits
	wordWidth := 2 * c.d.ByteBits
	var resolved []resolvedOperand
	for _, alias := range inst.Operands {
		shape := isa.ClassifyOperand(alias)
		if !shape.Written {
			continue
		}
		field, err := c.progMem.Read(cursor, cursor+wordWidth)
		if err != nil {
			return isa.Instruction{}, nil, 0, memErr(err)
		}
		resolved = append(resolved, resolvedOperand{Alias: alias, Imm: field.Int()})
		cursor += wordWidth
	}
	return inst, resolved, cursor - bitOffset, nil
}

// decodeCISC reads the opcode byte, then the style-table-driven
// register-pack byte and long immediates, mirroring encodeCISC's packing
// order exactly so decode and encode agree on slot assignment.
func (c *CPU) decodeCISC(bitOffset int) (isa.Instruction, []resolvedOperand, int, error) {
	opBits, err := c.progMem.Read(bitOffset, bitOffset+8)
	if err != nil {
		return isa.Instruction{}, nil, 0, memErr(err)
	}
	if allZero(opBits) {
		return isa.Instruction{}, nil, 0, errHalt
	}
	opStr := opBits.String()
	idx, ok := c.d.ByOpcode[opStr]
	if !ok {
		return isa.Instruction{}, nil, 0, fmt.Errorf("cpu: unknown opcode %s", opStr)
	}
	inst := c.d.Instructions[idx]
	style, ok := isa.CISCStyle[opStr[:3]]
	if !ok {
		return isa.Instruction{}, nil, 0, fmt.Errorf("cpu: opcode %s has no CISC style entry", opStr)
	}

	cursor := bitOffset + 8
	codeWidth := regCodeWidth(c.d)
	var regCodes []string
	if style.RegCount > 0 {
		packByte, err := c.progMem.Read(cursor, cursor+8)
		if err != nil {
			return isa.Instruction{}, nil, 0, memErr(err)
		}
		cursor += 8
		for i := 0; i < style.RegCount; i++ {
			regCodes = append(regCodes, packByte.Slice(i*codeWidth, (i+1)*codeWidth).String())
		}
	}
	var imms []int64
	for i := 0; i < style.ImmCount; i++ {
		word, err := c.progMem.Read(cursor, cursor+16)
		if err != nil {
			return isa.Instruction{}, nil, 0, memErr(err)
		}
		cursor += 16
		imms = append(imms, word.Int())
	}

	var resolved []resolvedOperand
	regIdx, immIdx := 0, 0
	for _, alias := range inst.Operands {
		shape := isa.ClassifyOperand(alias)
		if !shape.Written {
			continue
		}
		ro := resolvedOperand{Alias: alias}
		if shape.UsesRegCode {
			reg, ok := c.d.RegByCode[regCodes[regIdx]]
			if !ok {
				return isa.Instruction{}, nil, 0, fmt.Errorf("cpu: unknown register code %s", regCodes[regIdx])
			}
			regIdx++
			ro.RegName = reg.Name
		}
		if shape.UsesImmediate {
			if isa.HasOffset(alias) {
				ro.Offset = imms[immIdx]
			} else {
				ro.Imm = imms[immIdx]
			}
			immIdx++
		}
		resolved = append(resolved, ro)
	}
	return inst, resolved, cursor - bitOffset, nil
}
