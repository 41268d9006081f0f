package alu

import "testing"

func TestAddSetsCarryAndZero(t *testing.T) {
	result, f, err := Apply("add", []uint16{0xffff, 0x0001})
	if err != nil {
		t.Fatal(err)
	}
	if result != 0 {
		t.Errorf("result = %#04x, want 0", result)
	}
	if !f.CF || !f.ZF {
		t.Errorf("flags = %+v, want CF and ZF set", f)
	}
}

func TestAddSignedOverflow(t *testing.T) {
	result, f, err := Apply("add", []uint16{0x7fff, 0x0001})
	if err != nil {
		t.Fatal(err)
	}
	if result != 0x8000 {
		t.Errorf("result = %#04x, want 0x8000", result)
	}
	if !f.OF || !f.SF {
		t.Errorf("flags = %+v, want OF and SF set", f)
	}
}

func TestSubBorrow(t *testing.T) {
	result, f, err := Apply("sub", []uint16{0x0000, 0x0001})
	if err != nil {
		t.Fatal(err)
	}
	if result != 0xffff {
		t.Errorf("result = %#04x, want 0xffff", result)
	}
	if !f.CF {
		t.Error("expected CF set on borrow")
	}
}

func TestDivByZero(t *testing.T) {
	if _, _, err := Apply("div", []uint16{10, 0}); err == nil {
		t.Error("expected error dividing by zero")
	}
}

func TestCmpDiscardsResultButSetsFlags(t *testing.T) {
	_, f, err := Apply("cmp", []uint16{5, 5})
	if err != nil {
		t.Fatal(err)
	}
	if !f.ZF {
		t.Error("expected ZF set comparing equal operands")
	}
}

func TestMovLowHighByteSplice(t *testing.T) {
	result, _, err := Apply("mov_low", []uint16{0xabcd, 0x00ef})
	if err != nil {
		t.Fatal(err)
	}
	if result != 0xabef {
		t.Errorf("mov_low result = %#04x, want 0xabef", result)
	}
	result, _, err = Apply("mov_high", []uint16{0xabcd, 0x00ef})
	if err != nil {
		t.Fatal(err)
	}
	if result != 0xefcd {
		t.Errorf("mov_high result = %#04x, want 0xefcd", result)
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	f := Flags{CF: true, ZF: false, SF: true, OF: false}
	if got := Unpack(f.Pack()); got != f {
		t.Errorf("Unpack(Pack(%+v)) = %+v", f, got)
	}
}
