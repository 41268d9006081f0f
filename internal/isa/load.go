package isa

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// rawTable mirrors the on-disk TOML shape: instructions.<isa> and
// registers.<isa>, flattened into a single per-ISA document since each
// descriptor is loaded one ISA at a time.
type rawTable struct {
	InstrBits    int              `toml:"instr_bits"`
	OpcodeBits   int              `toml:"opcode_bits"`
	ByteBits     int              `toml:"byte_bits"`
	Instructions []rawInstruction `toml:"instructions"`
	Registers    []rawRegister    `toml:"registers"`
}

type rawInstruction struct {
	Opcode   string   `toml:"opcode"`
	Mnemonic string   `toml:"mnemonic"`
	Category string   `toml:"category"`
	Dest     string   `toml:"dest"`
	Operands []string `toml:"operands"`
}

type rawRegister struct {
	Name           string `toml:"name"`
	GeneralPurpose bool   `toml:"general_purpose"`
	Code           string `toml:"code"`
}

// Parse decodes raw TOML bytes into a Descriptor for the named ISA.
func Parse(name Name, data []byte) (*Descriptor, error) {
	var raw rawTable
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, fmt.Errorf("isa: parsing descriptor for %s: %w", name, err)
	}
	return build(name, raw)
}
