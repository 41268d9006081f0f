package cpu

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/tinyarch/isasim/internal/alu"
	"github.com/tinyarch/isasim/internal/bitstring"
	"github.com/tinyarch/isasim/internal/device"
	"github.com/tinyarch/isasim/internal/isa"
	"github.com/tinyarch/isasim/internal/memory"
	"github.com/tinyarch/isasim/internal/register"
)

// Architecture selects the memory topology.
type Architecture string

const (
	Neumann  Architecture = "neumann"
	Harvard  Architecture = "harvard"
	HarvardM Architecture = "harvardm"
)

// Memory layout defaults. program_start is interpreted through IP's own
// ISA-native byte-bits (so instruction fetch stays correct for the stack
// ISA's 6-bit byte), while tos_start/stack_start and every register-held
// data address (SP, BP, TOS, memreg/memregoff/memir/memtos/memimm) are
// conventional 8-bit bytes: reg·8.
const (
	MemorySize   = 1024
	ProgramStart = 512
	TOSStart     = 256
	StackStart   = 1024
)

// resolvedOperand is one decoded operand: either a register reference
// (possibly with a signed offset) or an immediate value, already sign
// extended to int64 by bitstring.BitString.Int.
type resolvedOperand struct {
	Alias   string
	RegName string
	Offset  int64
	Imm     int64
}

// CPU is one loaded program's fetch/decode/execute engine. It owns its
// memory, registers, and device map exclusively for its lifetime; a fresh
// CPU is constructed per program load. A CPU is not safe for concurrent
// use by multiple goroutines; Step must not be reentered.
type CPU struct {
	d    *isa.Descriptor
	arch Architecture

	ioMode device.Mode
	ports  map[int]*device.Shell
	mmio   *device.Shell

	progMem *memory.Memory
	dataMem *memory.Memory

	regs map[string]*register.Register

	instrSizeList  []int
	programPointer int
	halted         bool

	inputActive         bool
	pendingInputDest    isa.Dest
	pendingInputResolved []resolvedOperand
	pendingInputPort    int
	pendingAdvanceBits  int

	lastTotalBits int
}

// New builds a CPU from an assembled bit listing.
func New(isaName isa.Name, arch Architecture, ioMode device.Mode, listing []string) (*CPU, error) {
	d, err := isa.Load(isaName)
	if err != nil {
		return nil, err
	}

	progMem := memory.New(MemorySize)
	dataMem := progMem
	if arch == Harvard {
		dataMem = memory.New(MemorySize)
	}

	regs := make(map[string]*register.Register, len(d.Registers))
	for _, rd := range d.Registers {
		regs[rd.Name] = register.New(rd.Name, rd.GeneralPurpose)
	}
	if r, ok := regs["IP"]; ok {
		r.WriteUint(uint64(ProgramStart))
	}
	if r, ok := regs["SP"]; ok {
		r.WriteUint(uint64(StackStart))
	}
	if r, ok := regs["BP"]; ok {
		r.WriteUint(uint64(StackStart))
	}
	if r, ok := regs["TOS"]; ok {
		r.WriteUint(uint64(TOSStart))
	}

	sizes := make([]int, 0, len(listing))
	cursor := ProgramStart * d.ByteBits
	for _, line := range listing {
		if line == "" {
			sizes = append(sizes, 0)
			continue
		}
		bits, err := bitstring.FromBinary(line)
		if err != nil {
			return nil, fmt.Errorf("cpu: loading listing: %w", err)
		}
		if err := progMem.Write(cursor, bits); err != nil {
			return nil, memErr(err)
		}
		sizes = append(sizes, bits.Width())
		cursor += bits.Width()
	}

	c := &CPU{
		d:             d,
		arch:          arch,
		ioMode:        ioMode,
		ports:         map[int]*device.Shell{},
		progMem:       progMem,
		dataMem:       dataMem,
		regs:          regs,
		instrSizeList: sizes,
	}
	if ioMode == device.ModeMMIO {
		end := dataMem.Size()
		start := end - 16
		if start < 0 {
			start = 0
		}
		c.mmio = device.NewMMIOShell(start, end)
	}
	return c, nil
}

func (c *CPU) regVal(name string) uint16 {
	r, ok := c.regs[name]
	if !ok {
		return 0
	}
	return r.Uint16()
}

func (c *CPU) setReg(name string, v uint16) {
	if r, ok := c.regs[name]; ok {
		r.WriteUint(uint64(v))
	}
}

func (c *CPU) readMemWord(addr uint16) (uint16, error) {
	bits, err := c.dataMem.Read(int(addr)*8, int(addr)*8+16)
	if err != nil {
		return 0, memErr(err)
	}
	return bits.Uint16(), nil
}

func (c *CPU) writeMemWord(addr uint16, v uint16) error {
	return memErr(c.dataMem.Write(int(addr)*8, bitstring.FromUint(16, uint64(v))))
}

func (c *CPU) portShell(port int) *device.Shell {
	s, ok := c.ports[port]
	if !ok {
		s = device.NewPortShell()
		c.ports[port] = s
	}
	return s
}

func (c *CPU) programStartBits() int { return ProgramStart * c.d.ByteBits }

// Step advances by at most one instruction. Ordering within one step:
// operand fetch, ALU evaluation, destination write, IP/stack update,
// then device sync.
func (c *CPU) Step() error {
	if c.halted || c.inputActive {
		return nil
	}
	bitOffset := int(c.regVal("IP")) * c.d.ByteBits
	slog.Debug("fetch", "ip", c.regVal("IP"), "bit_offset", bitOffset)

	inst, resolved, totalBits, err := c.decode(bitOffset)
	if err == errHalt {
		c.halted = true
		return nil
	}
	if err != nil {
		return err
	}
	slog.Debug("decode", "mnemonic", inst.Mnemonic, "category", string(inst.Category), "operand_count", len(resolved), "bits", totalBits)

	slog.Debug("execute", "mnemonic", inst.Mnemonic)
	advanced, err := c.execute(inst, resolved, totalBits)
	if err != nil {
		return err
	}
	slog.Debug("writeback", "mnemonic", inst.Mnemonic, "dest", string(inst.Dest), "advanced", advanced)

	if !advanced {
		c.advanceDefault(totalBits)
	}
	return c.syncDevices()
}

func (c *CPU) advanceDefault(totalBits int) {
	ip := int(c.regVal("IP"))
	c.setReg("IP", uint16(ip+totalBits/c.d.ByteBits))
	c.programPointer++
}

func (c *CPU) syncDevices() error {
	if c.mmio == nil {
		return nil
	}
	return memErr(c.mmio.SyncFromMemory(c.dataMem))
}

// InputFinish resumes a suspended `in` instruction, writing value to the
// saved destination and completing the deferred IP advance.
func (c *CPU) InputFinish(value uint16) error {
	if !c.inputActive {
		return simErrf(UnbalancedInput, "input_finish called with no pending in")
	}
	if err := c.writeResult(c.pendingInputDest, c.pendingInputResolved, value); err != nil {
		return err
	}
	c.portShell(c.pendingInputPort).FinishInput()
	c.inputActive = false
	c.advanceDefault(c.pendingAdvanceBits)
	c.pendingInputResolved = nil
	return c.syncDevices()
}

// Halted reports whether the CPU has reached the all-zero halt opcode.
func (c *CPU) Halted() bool { return c.halted }

// InputActive reports whether the CPU is suspended on `in`.
func (c *CPU) InputActive() bool { return c.inputActive }

// Registers returns a snapshot of every register's current value.
func (c *CPU) Registers() map[string]uint16 {
	out := make(map[string]uint16, len(c.regs))
	for name, r := range c.regs {
		out[name] = r.Uint16()
	}
	return out
}

// Flags returns the current condition flags decoded from FR.
func (c *CPU) Flags() alu.Flags { return alu.Unpack(c.regVal("FR")) }

// MemoryHex renders the data memory's [startByte, endByte) range as hex.
func (c *CPU) MemoryHex(startByte, endByte int) (string, error) {
	return c.dataMem.Hex(startByte, endByte)
}

// DeviceOutput returns the accumulated device output. In MMIO mode this is
// the synced memory window; in port mode it concatenates every port's
// buffer in ascending port-number order.
func (c *CPU) DeviceOutput() string {
	if c.mmio != nil {
		return c.mmio.Output()
	}
	ports := make([]int, 0, len(c.ports))
	for p := range c.ports {
		ports = append(ports, p)
	}
	sort.Ints(ports)
	var b strings.Builder
	for _, p := range ports {
		b.WriteString(c.ports[p].Output())
	}
	return b.String()
}

// Instruction returns the raw bits of the instruction currently at IP.
func (c *CPU) Instruction() (bitstring.BitString, error) {
	bitOffset := int(c.regVal("IP")) * c.d.ByteBits
	bits, err := c.progMem.Read(bitOffset, bitOffset+c.d.InstrBits)
	if err != nil {
		return bitstring.BitString{}, memErr(err)
	}
	return bits, nil
}

// ProgramPointer returns the logical instruction index the CPU is at.
func (c *CPU) ProgramPointer() int { return c.programPointer }
