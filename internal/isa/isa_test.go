package isa

import "testing"

func TestLoadAllBuiltinISAs(t *testing.T) {
	for _, name := range []Name{Stack, Accumulator, RISC, CISC} {
		d, err := Load(name)
		if err != nil {
			t.Fatalf("Load(%s): %v", name, err)
		}
		if len(d.Instructions) == 0 {
			t.Fatalf("Load(%s): no instructions loaded", name)
		}
		if len(d.Registers) == 0 {
			t.Fatalf("Load(%s): no registers loaded", name)
		}
		for opcode := range d.ByOpcode {
			if len(opcode) != d.OpcodeBits {
				t.Errorf("%s: opcode %q has width %d, want %d", name, opcode, len(opcode), d.OpcodeBits)
			}
		}
	}
}

func TestNoISAReservesAllZeroOpcode(t *testing.T) {
	for _, name := range []Name{Stack, Accumulator, RISC, CISC} {
		d, err := Load(name)
		if err != nil {
			t.Fatalf("Load(%s): %v", name, err)
		}
		zero := make([]byte, d.OpcodeBits)
		for i := range zero {
			zero[i] = '0'
		}
		if _, ok := d.ByOpcode[string(zero)]; ok {
			t.Errorf("%s: all-zero opcode must remain reserved for halt", name)
		}
	}
}

func TestRISCMovLowHighUseShortOpcode(t *testing.T) {
	d, err := Load(RISC)
	if err != nil {
		t.Fatal(err)
	}
	for _, mnemonic := range []string{"mov_low", "mov_high"} {
		idxs, ok := d.ByMnemonic[mnemonic]
		if !ok || len(idxs) != 1 {
			t.Fatalf("expected exactly one %s overload, got %v", mnemonic, idxs)
		}
		inst := d.Instructions[idxs[0]]
		if len(inst.Opcode) != d.OpcodeBits-1 {
			t.Errorf("%s: opcode width = %d, want %d", mnemonic, len(inst.Opcode), d.OpcodeBits-1)
		}
		if _, ok := d.ShortOpcode[inst.Opcode]; !ok {
			t.Errorf("%s: opcode %q missing from ShortOpcode table", mnemonic, inst.Opcode)
		}
	}
}

func TestMovOverloadsDifferBySecondOperandType(t *testing.T) {
	d, err := Load(RISC)
	if err != nil {
		t.Fatal(err)
	}
	idxs := d.ByMnemonic["mov"]
	if len(idxs) != 2 {
		t.Fatalf("expected 2 mov overloads in risc, got %d", len(idxs))
	}
	seen := map[string]bool{}
	for _, idx := range idxs {
		inst := d.Instructions[idx]
		if len(inst.Operands) != 2 {
			t.Errorf("mov overload %v: want 2 operands, got %d", inst, len(inst.Operands))
		}
		seen[inst.Operands[1]] = true
	}
	if !seen["reg"] || !seen["imm7"] {
		t.Errorf("expected reg,reg and reg,imm7 mov overloads, got %v", seen)
	}
}

func TestCISCRegistersHaveThreeBitCodes(t *testing.T) {
	d, err := Load(CISC)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range d.Registers {
		if !r.GeneralPurpose {
			continue
		}
		if len(r.Code) != 3 {
			t.Errorf("register %s: code %q has width %d, want 3", r.Name, r.Code, len(r.Code))
		}
	}
}
