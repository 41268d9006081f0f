package cpu

import (
	"fmt"
	"strings"

	"github.com/tinyarch/isasim/internal/alu"
	"github.com/tinyarch/isasim/internal/device"
	"github.com/tinyarch/isasim/internal/isa"
)

// execute dispatches on the instruction's result-category. It returns
// advanced=true when the handler has already updated IP/program_pointer
// itself (call, ret, a taken jump, a suspending in) so Step must not also
// apply the default instr-width advance.
func (c *CPU) execute(inst isa.Instruction, resolved []resolvedOperand, totalBits int) (bool, error) {
	switch inst.Category {
	case isa.CatALU:
		return c.execALU(inst, resolved)
	case isa.CatCall:
		return c.execCall(inst, resolved)
	case isa.CatRet:
		return c.execRet(inst, resolved)
	case isa.CatJmp:
		return c.execJmp(inst, resolved)
	case isa.CatEnter:
		return c.execEnter(inst, resolved)
	case isa.CatLeave:
		return c.execLeave(inst, resolved)
	case isa.CatStackPush:
		return c.execStackPush(inst, resolved)
	case isa.CatStackPop:
		return c.execStackPop(inst, resolved)
	case isa.CatStackPopF:
		return c.execStackPopF()
	case isa.CatOut:
		return c.execOut(inst, resolved)
	case isa.CatIn:
		return c.execIn(inst, resolved, totalBits)
	case isa.CatSwap:
		return c.execSwap()
	case isa.CatSimd:
		return c.execSimd(inst, resolved)
	case isa.CatSimdLoad:
		return c.execSimdLoad(resolved)
	case isa.CatSimdStore:
		return c.execSimdStore(resolved)
	default:
		return false, fmt.Errorf("cpu: unhandled instruction category %q", inst.Category)
	}
}

// readOperandValue resolves one operand alias to its 16-bit value. ro is
// nil for implicit aliases (tos, tos2, tospop, memtos, acc, ir, fr, one)
// that never consume a decoded slot.
func (c *CPU) readOperandValue(alias string, ro *resolvedOperand) (uint16, error) {
	switch alias {
	case "reg":
		return c.regVal(ro.RegName), nil
	case "memreg":
		return c.readMemWord(c.regVal(ro.RegName))
	case "memregoff":
		addr := uint16(int64(c.regVal(ro.RegName)) + ro.Offset)
		return c.readMemWord(addr)
	case "regoff":
		return uint16(int64(c.regVal(ro.RegName)) + ro.Offset), nil
	case "memimm":
		return c.readMemWord(uint16(ro.Imm))
	case "tos":
		return c.peekTOS(0)
	case "tos2":
		return c.peekTOS(1)
	case "tospop":
		return c.popTOS()
	case "memtos":
		addr, err := c.popTOS()
		if err != nil {
			return 0, err
		}
		return c.readMemWord(addr)
	case "memir":
		return c.readMemWord(c.regVal("IR"))
	case "fr":
		return c.regVal("FR"), nil
	case "ir":
		return c.regVal("IR"), nil
	case "acc":
		return c.regVal("ACC"), nil
	case "one":
		return 1, nil
	default:
		if strings.HasPrefix(alias, "imm") {
			return uint16(ro.Imm), nil
		}
		return 0, fmt.Errorf("cpu: unresolvable operand alias %q", alias)
	}
}

// operandValues walks inst.Operands in declared order and collects every
// operand's value, written or implicit.
func (c *CPU) operandValues(inst isa.Instruction, resolved []resolvedOperand) ([]uint16, error) {
	values := make([]uint16, len(inst.Operands))
	widx := 0
	for i, alias := range inst.Operands {
		shape := isa.ClassifyOperand(alias)
		var ro *resolvedOperand
		if shape.Written {
			ro = &resolved[widx]
			widx++
		}
		v, err := c.readOperandValue(alias, ro)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// writeResult implements destination resolution for every
// Dest except port (out handles its own device write). DestFlags writes
// the value into FR.
func (c *CPU) writeResult(dest isa.Dest, resolved []resolvedOperand, value uint16) error {
	switch dest {
	case isa.DestFirstOp:
		if len(resolved) == 0 {
			return fmt.Errorf("cpu: dest=firstop with no written operand")
		}
		first := resolved[0]
		switch first.Alias {
		case "reg":
			c.setReg(first.RegName, value)
			return nil
		case "memreg":
			return c.writeMemWord(c.regVal(first.RegName), value)
		case "memregoff":
			addr := uint16(int64(c.regVal(first.RegName)) + first.Offset)
			return c.writeMemWord(addr, value)
		default:
			return fmt.Errorf("cpu: dest=firstop unsupported for operand alias %q", first.Alias)
		}
	case isa.DestTOS:
		return c.pushTOS(value)
	case isa.DestAcc:
		c.setReg("ACC", value)
		return nil
	case isa.DestIR:
		c.setReg("IR", value)
		return nil
	case isa.DestMemIR:
		return c.writeMemWord(c.regVal("IR"), value)
	case isa.DestFlags:
		c.setReg("FR", value)
		return nil
	case isa.DestNone:
		return nil
	default:
		return fmt.Errorf("cpu: unhandled destination %q", dest)
	}
}

// aluFuncName maps an instruction's assembly-facing mnemonic to its entry
// in alu.Table, for the handful of mnemonics (accumulator's indirect-load
// family) that reuse the identity move under a domain-specific name.
func aluFuncName(mnemonic string) string {
	switch mnemonic {
	case "mov_ir", "store_ir", "load_ir":
		return "mov"
	default:
		return mnemonic
	}
}

func (c *CPU) execALU(inst isa.Instruction, resolved []resolvedOperand) (bool, error) {
	values, err := c.operandValues(inst, resolved)
	if err != nil {
		return false, err
	}
	// Stack ISA's binary ALU ops pop twice ("tospop","tospop"), yielding
	// [b, a] since the most recently pushed word comes off first; reverse
	// to get the a-op-b order every other ISA's operand list already has.
	if c.d.ISA == isa.Stack && len(inst.Operands) == 2 &&
		inst.Operands[0] == "tospop" && inst.Operands[1] == "tospop" {
		values[0], values[1] = values[1], values[0]
	}
	result, flags, err := alu.Apply(aluFuncName(inst.Mnemonic), values)
	if err != nil {
		return false, err
	}
	c.setReg("FR", flags.Pack())
	if inst.Dest == isa.DestFlags {
		return false, nil
	}
	return false, c.writeResult(inst.Dest, resolved, result)
}

func callTargetDelta(ro resolvedOperand, c *CPU) int64 {
	if ro.Alias == "reg" {
		return int64(int16(c.regVal(ro.RegName)))
	}
	return ro.Imm
}

// jumpTarget recomputes the absolute IP for program_pointer+delta by
// summing the per-instruction byte widths recorded at load time: jump
// distances are counted in instructions, not bytes, because instructions
// have variable byte width.
func (c *CPU) jumpTarget(delta int) (newIP int, newProgramPointer int, err error) {
	newPP := c.programPointer + delta
	if newPP < 0 || newPP > len(c.instrSizeList) {
		return 0, 0, simErrf(MemoryOutOfRange, "jump target instruction index %d out of range", newPP)
	}
	bitOffset := c.programStartBits()
	for i := 0; i < newPP; i++ {
		bitOffset += c.instrSizeList[i]
	}
	return bitOffset / c.d.ByteBits, newPP, nil
}

func (c *CPU) execCall(inst isa.Instruction, resolved []resolvedOperand) (bool, error) {
	delta := callTargetDelta(resolved[0], c)
	if c.d.ISA == isa.RISC {
		c.setReg("LR", uint16(c.programPointer+1))
	} else if err := c.pushSP(uint16(c.programPointer + 1)); err != nil {
		return false, err
	}
	newIP, newPP, err := c.jumpTarget(int(delta))
	if err != nil {
		return false, err
	}
	c.setReg("IP", uint16(newIP))
	c.programPointer = newPP
	return true, nil
}

func (c *CPU) execRet(inst isa.Instruction, resolved []resolvedOperand) (bool, error) {
	var target int
	if c.d.ISA == isa.RISC {
		target = int(c.regVal("LR"))
	} else {
		v, err := c.popSP()
		if err != nil {
			return false, err
		}
		target = int(v)
	}
	newIP, newPP, err := c.jumpTarget(target - c.programPointer)
	if err != nil {
		return false, err
	}
	c.setReg("IP", uint16(newIP))
	c.programPointer = newPP
	return true, nil
}

// jumpPredicate evaluates a jmp-family mnemonic against the current flags.
// jc is the one mnemonic whose predicate tests the jump's own operand
// rather than a flag: "operand equals all-ones 16-bit", which for a
// sign-extended N-bit field is exactly the decoded value -1.
func jumpPredicate(mnemonic string, f alu.Flags, delta int64) bool {
	switch mnemonic {
	case "jmp":
		return true
	case "jc":
		return delta == -1
	case "je":
		return f.ZF
	case "jne":
		return !f.ZF
	case "jg":
		return f.SF == f.OF && !f.ZF
	case "jge":
		return f.SF == f.OF
	case "jl":
		return f.SF != f.OF
	case "jle":
		return f.SF != f.OF || f.ZF
	default:
		return false
	}
}

func (c *CPU) execJmp(inst isa.Instruction, resolved []resolvedOperand) (bool, error) {
	delta := resolved[0].Imm
	if !jumpPredicate(inst.Mnemonic, c.Flags(), delta) {
		return false, nil
	}
	newIP, newPP, err := c.jumpTarget(int(delta))
	if err != nil {
		return false, err
	}
	c.setReg("IP", uint16(newIP))
	c.programPointer = newPP
	return true, nil
}

func (c *CPU) execEnter(inst isa.Instruction, resolved []resolvedOperand) (bool, error) {
	n := resolved[0].Imm
	if err := c.pushSP(c.regVal("BP")); err != nil {
		return false, err
	}
	c.setReg("BP", c.regVal("SP"))
	c.setReg("SP", uint16(int64(c.regVal("SP"))-n))
	return false, nil
}

func (c *CPU) execLeave(inst isa.Instruction, resolved []resolvedOperand) (bool, error) {
	c.setReg("SP", c.regVal("BP"))
	v, err := c.popSP()
	if err != nil {
		return false, err
	}
	c.setReg("BP", v)
	return false, nil
}

func (c *CPU) execStackPush(inst isa.Instruction, resolved []resolvedOperand) (bool, error) {
	values, err := c.operandValues(inst, resolved)
	if err != nil {
		return false, err
	}
	value := values[0]
	if inst.Dest == isa.DestTOS {
		return false, c.pushTOS(value)
	}
	return false, c.pushSP(value)
}

func (c *CPU) execStackPop(inst isa.Instruction, resolved []resolvedOperand) (bool, error) {
	v, err := c.popSP()
	if err != nil {
		return false, err
	}
	return false, c.writeResult(inst.Dest, resolved, v)
}

func (c *CPU) execStackPopF() (bool, error) {
	v, err := c.popSP()
	if err != nil {
		return false, err
	}
	c.setReg("FR", v)
	return false, nil
}

func (c *CPU) execSwap() (bool, error) {
	tos := c.regVal("TOS")
	topAddr, nextAddr := tos-2, tos-4
	top, err := c.readMemWord(topAddr)
	if err != nil {
		return false, err
	}
	next, err := c.readMemWord(nextAddr)
	if err != nil {
		return false, err
	}
	if err := c.writeMemWord(topAddr, next); err != nil {
		return false, err
	}
	if err := c.writeMemWord(nextAddr, top); err != nil {
		return false, err
	}
	c.setReg("TOS", tos+4)
	return false, nil
}

// isImmAlias reports whether alias carries an immediate-shaped value:
// "imm" or "immN". The bracketed "memimm" alias is not included.
func isImmAlias(alias string) bool {
	return alias == "imm" || strings.HasPrefix(alias, "imm")
}

func (c *CPU) execOut(inst isa.Instruction, resolved []resolvedOperand) (bool, error) {
	if c.ioMode != device.ModeSpecial {
		return false, simErrf(IllegalInstructionInMode, "out is port-mapped only; CPU is configured for mmio")
	}
	values, err := c.operandValues(inst, resolved)
	if err != nil {
		return false, err
	}
	port := 0
	portIdx := -1
	for i, alias := range inst.Operands {
		if isImmAlias(alias) {
			portIdx = i
		}
	}
	var value uint16
	switch {
	case portIdx < 0:
		value = values[0]
	case len(values) == 1:
		value = values[0]
	default:
		port = int(values[portIdx])
		if portIdx == 0 {
			value = values[1]
		} else {
			value = values[0]
		}
	}
	c.portShell(port).OutShell(value)
	return false, nil
}

func (c *CPU) execIn(inst isa.Instruction, resolved []resolvedOperand, totalBits int) (bool, error) {
	if c.ioMode != device.ModeSpecial {
		return false, simErrf(IllegalInstructionInMode, "in is port-mapped only; CPU is configured for mmio")
	}
	port := 0
	for _, ro := range resolved {
		if isImmAlias(ro.Alias) {
			port = int(ro.Imm)
		}
	}
	c.pendingInputDest = inst.Dest
	c.pendingInputResolved = resolved
	c.pendingInputPort = port
	c.pendingAdvanceBits = totalBits
	c.inputActive = true
	c.portShell(port).BeginInput(string(inst.Dest))
	return true, nil
}

func (c *CPU) execSimd(inst isa.Instruction, resolved []resolvedOperand) (bool, error) {
	addr := c.regVal(resolved[0].RegName)
	broadcast := c.regVal(resolved[1].RegName)
	base := strings.TrimSuffix(inst.Mnemonic, "v")
	for i := 0; i < 4; i++ {
		lane := addr + uint16(2*i)
		word, err := c.readMemWord(lane)
		if err != nil {
			return false, err
		}
		result, _, err := alu.Apply(base, []uint16{word, broadcast})
		if err != nil {
			return false, err
		}
		if err := c.writeMemWord(lane, result); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (c *CPU) execSimdLoad(resolved []resolvedOperand) (bool, error) {
	addr := c.regVal(resolved[0].RegName)
	for i := 0; i < 4; i++ {
		v, err := c.readMemWord(addr + uint16(2*i))
		if err != nil {
			return false, err
		}
		c.setReg(fmt.Sprintf("R%02d", i), v)
	}
	return false, nil
}

func (c *CPU) execSimdStore(resolved []resolvedOperand) (bool, error) {
	addr := c.regVal(resolved[0].RegName)
	for i := 0; i < 4; i++ {
		v := c.regVal(fmt.Sprintf("R%02d", i))
		if err := c.writeMemWord(addr+uint16(2*i), v); err != nil {
			return false, err
		}
	}
	return false, nil
}
