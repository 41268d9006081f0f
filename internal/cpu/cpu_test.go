package cpu

import (
	"testing"

	"github.com/tinyarch/isasim/internal/assembler"
	"github.com/tinyarch/isasim/internal/device"
	"github.com/tinyarch/isasim/internal/isa"
)

func mustAssemble(t *testing.T, d *isa.Descriptor, src string) []string {
	t.Helper()
	listing, err := assembler.Assemble(d, src)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	return listing
}

func mustCPU(t *testing.T, name isa.Name, ioMode device.Mode, src string) *CPU {
	t.Helper()
	d, err := isa.Load(name)
	if err != nil {
		t.Fatalf("load isa: %v", err)
	}
	listing := mustAssemble(t, d, src)
	c, err := New(name, Neumann, ioMode, listing)
	if err != nil {
		t.Fatalf("new cpu: %v", err)
	}
	return c
}

func step(t *testing.T, c *CPU, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := c.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
}

func TestMoveAddSetsRegisterAndFlags(t *testing.T) {
	c := mustCPU(t, isa.RISC, device.ModeSpecial, "mov %R00, $5,\nmov %R01, $7,\nadd %R00, %R01,\n")
	step(t, c, 4) // 3 real instructions plus the halt-detecting step
	regs := c.Registers()
	if regs["R00"] != 0x000C {
		t.Fatalf("R00 = %#04x, want 0x000c", regs["R00"])
	}
	if f := c.Flags(); f.ZF || f.SF {
		t.Errorf("flags = %+v, want ZF=0 SF=0", f)
	}
	if !c.Halted() {
		t.Error("expected CPU to be halted after running off the end of the listing")
	}
}

func TestSignedCompareAndConditionalJump(t *testing.T) {
	src := "mov %R00, $1,\nmov %R01, $-1,\ncmp %R00, %R01,\njg +2,\nmov %R02, $0,\nmov %R02, $1,\n"
	c := mustCPU(t, isa.RISC, device.ModeSpecial, src)
	step(t, c, 5) // cmp, jg (taken, skips the $0 assignment), then the $1 assignment
	if got := c.Registers()["R02"]; got != 0x0001 {
		t.Fatalf("R02 = %#04x, want 0x0001", got)
	}
}

func TestCallReturnsToInstructionAfterCall(t *testing.T) {
	// call +2 skips the instruction after it and lands on the subroutine
	// body (mov %R00, $3); ret always
	// returns to program_pointer(call)+1, regardless of where the call
	// jumped to execute the subroutine.
	src := "call +2,\nmov %R00, $9,\nmov %R00, $3,\nret,\n"
	c := mustCPU(t, isa.RISC, device.ModeSpecial, src)
	step(t, c, 1) // call: program_pointer 0 -> 2
	if c.ProgramPointer() != 2 {
		t.Fatalf("program_pointer after call = %d, want 2", c.ProgramPointer())
	}
	step(t, c, 1) // mov %R00, $3
	if got := c.Registers()["R00"]; got != 3 {
		t.Fatalf("R00 after subroutine body = %d, want 3", got)
	}
	step(t, c, 1) // ret: program_pointer -> 1
	if c.ProgramPointer() != 1 {
		t.Fatalf("program_pointer after ret = %d, want 1 (call's program_pointer + 1)", c.ProgramPointer())
	}
	step(t, c, 1) // mov %R00, $9
	if got := c.Registers()["R00"]; got != 9 {
		t.Fatalf("R00 after return = %d, want 9", got)
	}
}

func TestStackISAPushAddLeavesSumOnTOS(t *testing.T) {
	c := mustCPU(t, isa.Stack, device.ModeSpecial, "push $4,\npush $6,\nadd,\n")
	step(t, c, 3)
	tos := c.Registers()["TOS"]
	if tos != TOSStart+2 {
		t.Fatalf("TOS = %d, want %d (one word above tos_start after two pushes and one pop-pop-push)", tos, TOSStart+2)
	}
	hex, err := c.MemoryHex(int(tos-2), int(tos))
	if err != nil {
		t.Fatal(err)
	}
	if hex != "000a" {
		t.Fatalf("top-of-stack = %q, want %q", hex, "000a")
	}
}

func TestCISCEnterLeaveRestoresFrame(t *testing.T) {
	d, err := isa.Load(isa.CISC)
	if err != nil {
		t.Fatal(err)
	}
	listing := mustAssemble(t, d, "enter $4,\nleave,\n")
	c, err := New(isa.CISC, Neumann, device.ModeSpecial, listing)
	if err != nil {
		t.Fatal(err)
	}
	spBefore, bpBefore := c.Registers()["SP"], c.Registers()["BP"]
	step(t, c, 2)
	spAfter, bpAfter := c.Registers()["SP"], c.Registers()["BP"]
	if spAfter != spBefore {
		t.Errorf("SP = %d, want %d (restored)", spAfter, spBefore)
	}
	if bpAfter != bpBefore {
		t.Errorf("BP = %d, want %d (restored)", bpAfter, bpBefore)
	}
	hex, err := c.MemoryHex(int(spBefore-2), int(spBefore))
	if err != nil {
		t.Fatal(err)
	}
	want, _ := hexOfUint16(bpBefore)
	if hex != want {
		t.Errorf("memory at old SP-2 = %q, want %q (the saved BP)", hex, want)
	}
}

func hexOfUint16(v uint16) (string, error) {
	const digits = "0123456789abcdef"
	b := [4]byte{digits[(v>>12)&0xf], digits[(v>>8)&0xf], digits[(v>>4)&0xf], digits[v&0xf]}
	return string(b[:]), nil
}

func TestPortIOEchoesInputByte(t *testing.T) {
	c := mustCPU(t, isa.RISC, device.ModeSpecial, "in %R00, $1,\nout $1, %R00,\n")
	step(t, c, 1)
	if !c.InputActive() {
		t.Fatal("expected CPU to suspend on `in`")
	}
	if err := c.InputFinish(0x0041); err != nil {
		t.Fatal(err)
	}
	if c.InputActive() {
		t.Error("expected input to no longer be active after InputFinish")
	}
	if got := c.Registers()["R00"]; got != 0x0041 {
		t.Fatalf("R00 = %#04x, want 0x0041", got)
	}
	step(t, c, 1)
	if got := c.DeviceOutput(); got != "A" {
		t.Fatalf("device output = %q, want %q", got, "A")
	}
}

func TestOutRejectedInMMIOMode(t *testing.T) {
	c := mustCPU(t, isa.RISC, device.ModeMMIO, "out $1, %R00,\n")
	err := c.Step()
	if err == nil {
		t.Fatal("expected IllegalInstructionInMode")
	}
	simErr, ok := err.(*SimulatorError)
	if !ok || simErr.Kind != IllegalInstructionInMode {
		t.Fatalf("err = %v, want SimulatorError{Kind: IllegalInstructionInMode}", err)
	}
}

func TestRegisterStackUnderflow(t *testing.T) {
	c := mustCPU(t, isa.Stack, device.ModeSpecial, "add,\n")
	err := c.Step()
	if err == nil {
		t.Fatal("expected StackUnderflow popping an empty register stack")
	}
	simErr, ok := err.(*SimulatorError)
	if !ok || simErr.Kind != StackUnderflow {
		t.Fatalf("err = %v, want SimulatorError{Kind: StackUnderflow}", err)
	}
}

func TestUnbalancedInputFinishRejected(t *testing.T) {
	c := mustCPU(t, isa.RISC, device.ModeSpecial, "mov %R00, $1,\n")
	err := c.InputFinish(0)
	simErr, ok := err.(*SimulatorError)
	if !ok || simErr.Kind != UnbalancedInput {
		t.Fatalf("err = %v, want SimulatorError{Kind: UnbalancedInput}", err)
	}
}
