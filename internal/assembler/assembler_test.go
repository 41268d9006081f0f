package assembler

import (
	"errors"
	"strings"
	"testing"

	"github.com/tinyarch/isasim/internal/isa"
)

func mustLoad(t *testing.T, name isa.Name) *isa.Descriptor {
	t.Helper()
	d, err := isa.Load(name)
	if err != nil {
		t.Fatalf("load isa %s: %v", name, err)
	}
	return d
}

// mov has two RISC overloads, reg,reg and reg,imm7; the assembler must
// pick the one matching the written operands' shapes.
func TestOverloadResolutionPicksMatchingOperandShapes(t *testing.T) {
	d := mustLoad(t, isa.RISC)

	regReg, err := Assemble(d, "mov %R00, %R01,\n")
	if err != nil {
		t.Fatalf("assemble reg,reg: %v", err)
	}
	if got, want := regReg[0][:6], "000001"; got != want {
		t.Errorf("reg,reg opcode = %s, want %s", got, want)
	}

	regImm, err := Assemble(d, "mov %R00, $5,\n")
	if err != nil {
		t.Fatalf("assemble reg,imm7: %v", err)
	}
	if got, want := regImm[0][:6], "000010"; got != want {
		t.Errorf("reg,imm7 opcode = %s, want %s", got, want)
	}
}

// mov_low/mov_high store their opcode 5 bits wide rather than the
// ISA's usual 6, freeing one extra bit for an 8-bit immediate.
func TestMovLowMovHighShortOpcode(t *testing.T) {
	d := mustLoad(t, isa.RISC)

	listing, err := Assemble(d, "mov_low %R00, $100,\n")
	if err != nil {
		t.Fatalf("assemble mov_low: %v", err)
	}
	line := listing[0]
	if len(line) != d.InstrBits {
		t.Fatalf("encoded width = %d, want %d", len(line), d.InstrBits)
	}
	if got, want := line[:5], "11110"; got != want {
		t.Errorf("mov_low opcode = %s, want %s", got, want)
	}
	if got, want := line[5:8], "000"; got != want {
		t.Errorf("mov_low register field = %s, want %s", got, want)
	}

	listing, err = Assemble(d, "mov_high %R00, $100,\n")
	if err != nil {
		t.Fatalf("assemble mov_high: %v", err)
	}
	if got, want := listing[0][:5], "11111"; got != want {
		t.Errorf("mov_high opcode = %s, want %s", got, want)
	}
}

func TestMissingCommaRejectsUnterminatedOperandList(t *testing.T) {
	d := mustLoad(t, isa.RISC)
	_, err := Assemble(d, "mov %R00, %R01\n")
	var aerr *AssemblerError
	if !errors.As(err, &aerr) {
		t.Fatalf("err = %v, want *AssemblerError", err)
	}
	if aerr.Kind != MissingComma {
		t.Errorf("kind = %s, want %s", aerr.Kind, MissingComma)
	}
}

func TestMissingCommaRejectsBareWhitespaceOperand(t *testing.T) {
	d := mustLoad(t, isa.RISC)
	_, err := Assemble(d, "mov %R00 %R01,\n")
	var aerr *AssemblerError
	if !errors.As(err, &aerr) {
		t.Fatalf("err = %v, want *AssemblerError", err)
	}
	if aerr.Kind != MissingComma {
		t.Errorf("kind = %s, want %s", aerr.Kind, MissingComma)
	}
}

// imm7's legal range is the strict open interval (-64, 64); the
// boundary values themselves are rejected as well.
func TestImmediateOutOfRangeBoundaries(t *testing.T) {
	d := mustLoad(t, isa.RISC)

	for _, ok := range []string{"$63", "$-63", "$0"} {
		if _, err := Assemble(d, "mov %R00, "+ok+",\n"); err != nil {
			t.Errorf("assemble mov %%R00, %s,: unexpected error %v", ok, err)
		}
	}

	for _, bad := range []string{"$64", "$-64", "$200"} {
		_, err := Assemble(d, "mov %R00, "+bad+",\n")
		var aerr *AssemblerError
		if !errors.As(err, &aerr) {
			t.Fatalf("mov %%R00, %s,: err = %v, want *AssemblerError", bad, err)
		}
		if aerr.Kind != ImmediateOutOfRange {
			t.Errorf("mov %%R00, %s,: kind = %s, want %s", bad, aerr.Kind, ImmediateOutOfRange)
		}
	}
}

// jmp-family relative distances are written as bare signed decimals,
// with no leading "$", and must assemble identically to an equivalent
// "$N" immediate.
func TestBareSignedDecimalJumpDistanceMatchesDollarImmediate(t *testing.T) {
	d := mustLoad(t, isa.RISC)

	bare, err := Assemble(d, "jg +2,\n")
	if err != nil {
		t.Fatalf("assemble jg +2,: %v", err)
	}
	dollar, err := Assemble(d, "jg $2,\n")
	if err != nil {
		t.Fatalf("assemble jg $2,: %v", err)
	}
	if bare[0] != dollar[0] {
		t.Errorf("jg +2, = %s, want %s (same as jg $2,)", bare[0], dollar[0])
	}

	neg, err := Assemble(d, "call -1,\n")
	if err != nil {
		t.Fatalf("assemble call -1,: %v", err)
	}
	if !strings.HasPrefix(neg[0], "011000") {
		t.Errorf("call -1, opcode = %s, want prefix 011000", neg[0])
	}
}

func TestUnknownMnemonicRejected(t *testing.T) {
	d := mustLoad(t, isa.RISC)
	_, err := Assemble(d, "frobnicate %R00,\n")
	var aerr *AssemblerError
	if !errors.As(err, &aerr) {
		t.Fatalf("err = %v, want *AssemblerError", err)
	}
	if aerr.Kind != UnknownMnemonic {
		t.Errorf("kind = %s, want %s", aerr.Kind, UnknownMnemonic)
	}
}
