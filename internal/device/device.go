// Package device implements the Shell the execute engine talks to for
// `in`/`out`, in two styles: memory-mapped (a byte window synced from
// memory after every step) and port-mapped (an addressable buffer fed
// directly by `out`/blocked on by `in`).
package device

import "github.com/tinyarch/isasim/internal/memory"

// Mode selects how a Shell is addressed.
type Mode string

const (
	ModeMMIO    Mode = "mmio"
	ModeSpecial Mode = "special" // port-mapped
)

// Shell accumulates device output and, in MMIO mode, mirrors a fixed
// byte window of memory after every executed cycle.
type Shell struct {
	mode             Mode
	startByte        int
	endByte          int
	output           []byte
	inputActive      bool
	inputDestination string // destination label from BeginInput; the CPU passes the instruction's isa.Dest
}

// NewPortShell builds a port-mapped device with an empty output buffer.
func NewPortShell() *Shell {
	return &Shell{mode: ModeSpecial}
}

// NewMMIOShell builds a memory-mapped device watching [startByte,endByte).
func NewMMIOShell(startByte, endByte int) *Shell {
	return &Shell{mode: ModeMMIO, startByte: startByte, endByte: endByte}
}

func (s *Shell) Mode() Mode { return s.mode }

// OutShell appends the ASCII character whose code equals value's low
// byte to the output buffer. Mirrors the original's unguarded behaviour:
// no filtering of non-printable byte values.
func (s *Shell) OutShell(value uint16) {
	s.output = append(s.output, byte(value&0xff))
}

// Output returns the accumulated output buffer. May contain bytes
// outside the printable ASCII range; callers that need valid UTF-8
// should sanitize before display.
func (s *Shell) Output() string {
	return string(s.output)
}

// SyncFromMemory refreshes an MMIO shell's buffer from its memory
// window. A no-op for port-mapped shells.
func (s *Shell) SyncFromMemory(mem *memory.Memory) error {
	if s.mode != ModeMMIO {
		return nil
	}
	b, err := mem.ReadByteRange(s.startByte, s.endByte)
	if err != nil {
		return err
	}
	s.output = append(s.output[:0], b...)
	return nil
}

// BeginInput marks the shell as waiting on input_finish, recording where
// the eventual value should be written.
func (s *Shell) BeginInput(destination string) {
	s.inputActive = true
	s.inputDestination = destination
}

// InputActive reports whether the shell is suspended awaiting input.
func (s *Shell) InputActive() bool { return s.inputActive }

// InputDestination returns the pending write target recorded by
// BeginInput.
func (s *Shell) InputDestination() string { return s.inputDestination }

// FinishInput clears the suspended state. Callers should have already
// written the resumed value to InputDestination before calling this.
func (s *Shell) FinishInput() {
	s.inputActive = false
	s.inputDestination = ""
}
