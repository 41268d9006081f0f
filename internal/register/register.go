// Package register implements a named, fixed-width register cell with a
// small struct-plus-named-accessor shape.
package register

import (
	"fmt"

	"github.com/tinyarch/isasim/internal/bitstring"
)

// Width is the fixed width of every register in this simulator.
const Width = 16

// Register is a named, fixed-width bit cell.
type Register struct {
	Name           string
	GeneralPurpose bool
	state          bitstring.BitString
}

// New returns a zeroed register with the given name.
func New(name string, generalPurpose bool) *Register {
	return &Register{Name: name, GeneralPurpose: generalPurpose, state: bitstring.Zero(Width)}
}

// State returns the register's current 16-bit value.
func (r *Register) State() bitstring.BitString { return r.state }

// Write stores v into the register. A value wider than Width is
// rejected; narrower values are left-padded with zero bits.
func (r *Register) Write(v bitstring.BitString) error {
	if v.Width() > Width {
		return fmt.Errorf("register %s: cannot write %d-bit value into %d-bit register", r.Name, v.Width(), Width)
	}
	r.state = v.PadLeft(Width)
	return nil
}

// WriteUint stores the low 16 bits of v into the register.
func (r *Register) WriteUint(v uint64) {
	r.state = bitstring.FromUint(Width, v)
}

// Uint16 returns the register's value as a uint16.
func (r *Register) Uint16() uint16 { return r.state.Uint16() }

// Int returns the register's value as a two's complement signed integer.
func (r *Register) Int() int64 { return r.state.Int() }
