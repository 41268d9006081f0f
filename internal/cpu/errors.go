// Package cpu implements a fetch/decode/execute engine: a single-threaded
// cooperative stepper, parameterised over an isa.Descriptor, that mutates
// registers, memory, and device state one instruction at a time.
package cpu

import "fmt"

// SimKind enumerates the SimulatorError categories.
type SimKind string

const (
	IllegalInstructionInMode SimKind = "IllegalInstructionInMode"
	MemoryOutOfRange         SimKind = "MemoryOutOfRange"
	StackUnderflow           SimKind = "StackUnderflow"
	UnbalancedInput          SimKind = "UnbalancedInput"
)

// SimulatorError is the error type for the simulator's named failure
// kinds. Step and InputFinish also return plain errors for unknown
// opcodes or register codes, unhandled categories or destinations, and
// ALU failures such as division by zero.
type SimulatorError struct {
	Kind SimKind
	Msg  string
}

func (e *SimulatorError) Error() string {
	return fmt.Sprintf("cpu: %s: %s", e.Kind, e.Msg)
}

func simErrf(kind SimKind, format string, args ...any) *SimulatorError {
	return &SimulatorError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// memErr wraps a memory-package range error as a SimulatorError so callers
// never need to know the boundary between the two packages.
func memErr(err error) error {
	if err == nil {
		return nil
	}
	return &SimulatorError{Kind: MemoryOutOfRange, Msg: err.Error()}
}

// errHalt is the sentinel decode returns for an all-zero opcode word.
var errHalt = fmt.Errorf("cpu: halt")
