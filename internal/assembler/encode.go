package assembler

import (
	"github.com/tinyarch/isasim/internal/bitstring"
	"github.com/tinyarch/isasim/internal/isa"
)

// encode builds the full bit-listing line for one matched instruction:
// opcode bits followed by whatever register-pack and immediate
// extension the ISA's encoding strategy calls for, right-padded to the
// instruction width.
func encode(d *isa.Descriptor, inst isa.Instruction, operands []operand, lineNo int) (bitstring.BitString, error) {
	switch d.ISA {
	case isa.CISC:
		return encodeCISC(d, inst, operands, lineNo)
	case isa.Stack, isa.Accumulator:
		return encodeOpcodeOnly(d, inst, operands, lineNo)
	default: // isa.RISC
		return encodeRISC(d, inst, operands, lineNo)
	}
}

// encodeRISC packs every written operand inline after the opcode, right
// padding the result to the full 16-bit instruction width.
func encodeRISC(d *isa.Descriptor, inst isa.Instruction, operands []operand, lineNo int) (bitstring.BitString, error) {
	bits, err := bitstring.FromBinary(inst.Opcode)
	if err != nil {
		return bitstring.BitString{}, err
	}
	opIdx := 0
	for _, alias := range inst.Operands {
		shape := isa.ClassifyOperand(alias)
		if !shape.Written {
			continue
		}
		op := operands[opIdx]
		opIdx++
		switch {
		case alias == "reg":
			reg, ok := d.RegByName[op.regName]
			if !ok || reg.Code == "" {
				return bitstring.BitString{}, errf(InvalidOperand, lineNo, "unknown register %q", op.raw)
			}
			code, err := bitstring.FromBinary(reg.Code)
			if err != nil {
				return bitstring.BitString{}, err
			}
			bits = bits.Concat(code)
		case shape.InlineWidth > 0:
			v, err := encodeSignedChecked(op.value, shape.InlineWidth, lineNo)
			if err != nil {
				return bitstring.BitString{}, err
			}
			bits = bits.Concat(v)
		default:
			return bitstring.BitString{}, errf(InvalidOperand, lineNo, "operand alias %q unsupported for risc inline encoding", alias)
		}
	}
	if bits.Width() > d.InstrBits {
		return bitstring.BitString{}, errf(InvalidOperand, lineNo, "encoded instruction width %d exceeds %d", bits.Width(), d.InstrBits)
	}
	return bits.Concat(bitstring.Zero(d.InstrBits - bits.Width())), nil
}

// encodeOpcodeOnly handles the stack and accumulator ISAs: the opcode
// occupies the entire instruction word (its stored value already
// encodes whether a trailing long immediate follows), and at most one
// bare "imm" operand contributes a trailing 2*ByteBits-wide word.
func encodeOpcodeOnly(d *isa.Descriptor, inst isa.Instruction, operands []operand, lineNo int) (bitstring.BitString, error) {
	bits, err := bitstring.FromBinary(inst.Opcode)
	if err != nil {
		return bitstring.BitString{}, err
	}
	opIdx := 0
	wordWidth := 2 * d.ByteBits
	for _, alias := range inst.Operands {
		shape := isa.ClassifyOperand(alias)
		if !shape.Written {
			continue
		}
		op := operands[opIdx]
		opIdx++
		v, err := encodeSignedChecked(op.value, wordWidth, lineNo)
		if err != nil {
			return bitstring.BitString{}, err
		}
		bits = bits.Concat(v)
	}
	return bits, nil
}

// encodeCISC packs register codes for the opcode's style.RegCount
// operands into a single trailing byte, followed by one 16-bit word per
// style.ImmCount immediate, per isa.CISCStyle.
func encodeCISC(d *isa.Descriptor, inst isa.Instruction, operands []operand, lineNo int) (bitstring.BitString, error) {
	bits, err := bitstring.FromBinary(inst.Opcode)
	if err != nil {
		return bitstring.BitString{}, err
	}
	style, ok := isa.CISCStyle[inst.Opcode[:3]]
	if !ok {
		return bitstring.BitString{}, errf(InvalidOperand, lineNo, "opcode %q has no CISC style entry", inst.Opcode)
	}

	var regCodes []bitstring.BitString
	var imms []bitstring.BitString
	opIdx := 0
	for _, alias := range inst.Operands {
		shape := isa.ClassifyOperand(alias)
		if !shape.Written {
			continue
		}
		op := operands[opIdx]
		opIdx++
		if shape.UsesRegCode {
			reg, ok := d.RegByName[op.regName]
			if !ok || reg.Code == "" {
				return bitstring.BitString{}, errf(InvalidOperand, lineNo, "unknown register %q", op.raw)
			}
			code, err := bitstring.FromBinary(reg.Code)
			if err != nil {
				return bitstring.BitString{}, err
			}
			regCodes = append(regCodes, code)
		}
		if shape.UsesImmediate {
			value := op.value
			if isa.HasOffset(alias) {
				value = op.offset
			}
			v, err := encodeSignedChecked(value, 16, lineNo)
			if err != nil {
				return bitstring.BitString{}, err
			}
			imms = append(imms, v)
		}
	}
	if len(regCodes) != style.RegCount {
		return bitstring.BitString{}, errf(InvalidOperand, lineNo, "opcode %q needs %d register operands, got %d", inst.Opcode, style.RegCount, len(regCodes))
	}
	if len(imms) != style.ImmCount {
		return bitstring.BitString{}, errf(InvalidOperand, lineNo, "opcode %q needs %d immediate operands, got %d", inst.Opcode, style.ImmCount, len(imms))
	}

	if style.RegCount > 0 {
		packed := regCodes[0]
		for _, c := range regCodes[1:] {
			packed = packed.Concat(c)
		}
		bits = bits.Concat(packed).Concat(bitstring.Zero(8 - packed.Width()))
	}
	for _, w := range imms {
		bits = bits.Concat(w)
	}
	return bits, nil
}

// encodeSignedChecked enforces the strict open-interval immediate range
// rule before encoding.
func encodeSignedChecked(v int64, width int, lineNo int) (bitstring.BitString, error) {
	limit := int64(1) << uint(width-1)
	if v <= -limit || v >= limit {
		return bitstring.BitString{}, errf(ImmediateOutOfRange, lineNo, "immediate %d out of range for %d-bit field", v, width)
	}
	return bitstring.EncodeSigned(v, width), nil
}
