package device

import (
	"testing"

	"github.com/tinyarch/isasim/internal/bitstring"
	"github.com/tinyarch/isasim/internal/memory"
)

func TestPortShellAccumulatesOutput(t *testing.T) {
	s := NewPortShell()
	s.OutShell(0x0041)
	s.OutShell(0x0042)
	if got := s.Output(); got != "AB" {
		t.Errorf("Output() = %q, want %q", got, "AB")
	}
}

func TestPortShellKeepsNonPrintableBytes(t *testing.T) {
	s := NewPortShell()
	s.OutShell(0x0000)
	s.OutShell(0x00ff)
	if got := s.Output(); len(got) != 2 {
		t.Errorf("Output() length = %d, want 2", len(got))
	}
}

func TestMMIOShellSyncsWindow(t *testing.T) {
	mem := memory.New(64)
	if err := mem.Write(0, bitstring.FromUint(16, 0x4142)); err != nil {
		t.Fatal(err)
	}
	s := NewMMIOShell(0, 2)
	if err := s.SyncFromMemory(mem); err != nil {
		t.Fatal(err)
	}
	if got := s.Output(); got != "AB" {
		t.Errorf("Output() = %q, want %q", got, "AB")
	}
}

func TestInputSuspendLifecycle(t *testing.T) {
	s := NewPortShell()
	if s.InputActive() {
		t.Fatal("shell should not start input-active")
	}
	s.BeginInput("R00")
	if !s.InputActive() || s.InputDestination() != "R00" {
		t.Fatalf("BeginInput state = (%v,%q)", s.InputActive(), s.InputDestination())
	}
	s.FinishInput()
	if s.InputActive() || s.InputDestination() != "" {
		t.Fatal("FinishInput did not clear state")
	}
}
