package cpu

// Stack disciplines: the register stack (TOS, stack ISA only) grows
// upward in data memory; the memory stack (SP) grows downward. Both
// stacks hold 16-bit words addressed as conventional 8-bit bytes
// (reg·8), independent of the ISA's own instruction byte_bits.

// peekTOS reads the word `depth` slots below TOS without popping: depth 0
// is the word immediately below TOS ("tos"), depth 1 is one further down
// ("tos2").
func (c *CPU) peekTOS(depth int) (uint16, error) {
	tos := c.regVal("TOS")
	addr := tos - uint16(2*(depth+1))
	return c.readMemWord(addr)
}

// popTOS reads the word immediately below TOS and decrements TOS by 2.
func (c *CPU) popTOS() (uint16, error) {
	if c.regVal("TOS") <= TOSStart {
		return 0, simErrf(StackUnderflow, "register stack underflow: TOS at or below tos_start")
	}
	v, err := c.peekTOS(0)
	if err != nil {
		return 0, err
	}
	c.setReg("TOS", c.regVal("TOS")-2)
	return v, nil
}

// pushTOS writes v at TOS and increments TOS by 2.
func (c *CPU) pushTOS(v uint16) error {
	tos := c.regVal("TOS")
	if err := c.writeMemWord(tos, v); err != nil {
		return err
	}
	c.setReg("TOS", tos+2)
	return nil
}

// popSP reads the word at SP then increments SP by 2 (the memory stack
// grows downward, so a pop is a read-then-advance).
func (c *CPU) popSP() (uint16, error) {
	if c.regVal("SP") >= StackStart {
		return 0, simErrf(StackUnderflow, "memory stack underflow: SP at or above stack_start")
	}
	v, err := c.readMemWord(c.regVal("SP"))
	if err != nil {
		return 0, err
	}
	c.setReg("SP", c.regVal("SP")+2)
	return v, nil
}

// pushSP decrements SP by 2 then writes v.
func (c *CPU) pushSP(v uint16) error {
	sp := c.regVal("SP") - 2
	if err := c.writeMemWord(sp, v); err != nil {
		return err
	}
	c.setReg("SP", sp)
	return nil
}
