package cortexm

import (
	"testing"
)

func newTestCore(t *testing.T, legacy bool) (*Core, *Sim) {
	t.Helper()
	SetLogger(nil)
	sim := NewSim()
	core, err := NewWithHardware(HardwareConfig{Bus: sim, LegacyPriorityBase: legacy})
	if err != nil {
		t.Fatalf("NewWithHardware failed: %v", err)
	}
	sim.OnSysTick(core.SysTick.Handler)
	return core, sim
}

func TestEnableDisableIRQ(t *testing.T) {
	core, sim := newTestCore(t, false)
	n := core.NVIC

	for irq := IRQ(0); irq <= MaxIRQ; irq++ {
		addr := uint32(RegISERBase) + uint32(irq/32)*4
		bit := uint32(1) << (irq % 32)

		n.EnableIRQ(irq)
		if sim.Peek(addr)&bit == 0 {
			t.Fatalf("EnableIRQ(%d) didn't set bit %d at 0x%08X: 0x%08X", irq, irq%32, addr, sim.Peek(addr))
		}
		if !n.IRQEnabled(irq) {
			t.Fatalf("IRQEnabled(%d) = false after EnableIRQ", irq)
		}

		n.DisableIRQ(irq)
		if sim.Peek(addr)&bit != 0 {
			t.Fatalf("DisableIRQ(%d) didn't clear bit %d at 0x%08X: 0x%08X", irq, irq%32, addr, sim.Peek(addr))
		}
	}
}

func TestEnableIRQKeepsOtherBits(t *testing.T) {
	core, sim := newTestCore(t, false)

	// IRQ 33 lives in bank 1, bit 1
	sim.Poke(RegISERBase+4, 0x80000001)
	core.NVIC.EnableIRQ(33)
	if got := sim.Peek(RegISERBase + 4); got != 0x80000003 {
		t.Errorf("EnableIRQ(33) expected bank 1 = 0x80000003, got 0x%08X", got)
	}
	core.NVIC.DisableIRQ(32)
	if got := sim.Peek(RegISERBase + 4); got != 0x80000002 {
		t.Errorf("DisableIRQ(32) expected bank 1 = 0x80000002, got 0x%08X", got)
	}
	// IRQ 136 is bit 8 of bank 4
	core.NVIC.EnableIRQ(136)
	if got := sim.Peek(RegISERBase + 16); got != 1<<8 {
		t.Errorf("EnableIRQ(136) expected bank 4 = 0x100, got 0x%08X", got)
	}
}

func TestOutOfRangeIRQIsNoOp(t *testing.T) {
	core, sim := newTestCore(t, false)
	n := core.NVIC

	// Seed a few registers so a stray write would show up
	sim.Poke(RegISERBase+16, 0x12345678)
	sim.Poke(RegISERBase+20, 0xCAFEBABE)
	sim.Poke(RegIPRBase+34*4, 0xA5A5A5A5)
	before := sim.Snapshot()

	for irq := int(MaxIRQ) + 1; irq <= 255; irq++ {
		n.EnableIRQ(IRQ(irq))
		n.DisableIRQ(IRQ(irq))
		n.SetPriorityIRQ(IRQ(irq), 5)
		if n.IRQEnabled(IRQ(irq)) {
			t.Errorf("IRQEnabled(%d) expected false", irq)
		}
		if p := n.PriorityIRQ(IRQ(irq)); p != 0 {
			t.Errorf("PriorityIRQ(%d) expected 0, got %d", irq, p)
		}
	}

	after := sim.Snapshot()
	if len(after) != len(before) {
		t.Fatalf("Out of range IRQs wrote new registers: before %d, after %d", len(before), len(after))
	}
	for addr, v := range before {
		if after[addr] != v {
			t.Errorf("Register 0x%08X changed from 0x%08X to 0x%08X", addr, v, after[addr])
		}
	}
}

func TestSetPriorityIRQ(t *testing.T) {
	core, sim := newTestCore(t, false)
	n := core.NVIC

	for irq := IRQ(0); irq <= MaxIRQ; irq++ {
		addr := uint32(RegIPRBase) + uint32(irq/4)*4
		slot := uint32(irq % 4)

		for p := Priority(0); p <= PriorityLowest; p++ {
			// Sentinel neighbours: every byte 0xFF except our slot, which is 0x1F so
			// the low 5 bits must survive too.
			sentinel := uint32(0xFFFFFFFF) &^ (0xE0 << (slot * 8))
			sim.Poke(addr, sentinel)

			n.SetPriorityIRQ(irq, p)

			want := sentinel | uint32(p)<<(slot*8+5)
			if got := sim.Peek(addr); got != want {
				t.Fatalf("SetPriorityIRQ(%d, %d) expected 0x%08X at 0x%08X, got 0x%08X", irq, p, want, addr, got)
			}
			if got := n.PriorityIRQ(irq); got != p {
				t.Fatalf("PriorityIRQ(%d) expected %d, got %d", irq, p, got)
			}
		}
	}
}

func TestSetPriorityIRQOverwrite(t *testing.T) {
	core, sim := newTestCore(t, false)

	// IRQ 6 is slot 2 of IPR1
	core.NVIC.SetPriorityIRQ(6, 7)
	core.NVIC.SetPriorityIRQ(6, 2)
	if got := sim.Peek(RegIPRBase + 4); got != 2<<21 {
		t.Errorf("Expected IPR1 = 0x%08X, got 0x%08X", uint32(2<<21), got)
	}

	// Only 3 bits are implemented: 0x0A must not spill into slot 3
	core.NVIC.SetPriorityIRQ(6, 0x0A)
	if got := sim.Peek(RegIPRBase + 4); got != 2<<21 {
		t.Errorf("Priority 0x0A expected to be masked to 2, got IPR1 = 0x%08X", got)
	}
}

func TestLegacyPriorityBase(t *testing.T) {
	core, sim := newTestCore(t, true)

	core.NVIC.SetPriorityIRQ(5, 3)
	// Bank 1 of the legacy base is the second enable register
	if got := sim.Peek(RegLegacyIPRBase + 4); got != 3<<13 {
		t.Errorf("Legacy SetPriorityIRQ(5, 3) expected 0x%08X at 0xE000E104, got 0x%08X", uint32(3<<13), got)
	}
	if got := sim.Peek(RegIPRBase + 4); got != 0 {
		t.Errorf("Legacy mode wrote the architectural priority register: 0x%08X", got)
	}
	if got := core.NVIC.PriorityIRQ(5); got != 3 {
		t.Errorf("PriorityIRQ(5) expected 3, got %d", got)
	}
}

func TestEnableDisableException(t *testing.T) {
	core, sim := newTestCore(t, false)
	n := core.NVIC

	faults := map[Exception]uint32{
		MemManage:  1 << 16,
		BusFault:   1 << 17,
		UsageFault: 1 << 18,
	}
	for e, bit := range faults {
		sim.Poke(RegSHCSR, 0x00000800) // SVCALLACT, must survive
		n.EnableException(e)
		if got := sim.Peek(RegSHCSR); got != 0x800|bit {
			t.Errorf("EnableException(%s) expected SHCSR 0x%08X, got 0x%08X", e, 0x800|bit, got)
		}
		if !n.ExceptionEnabled(e) {
			t.Errorf("ExceptionEnabled(%s) expected true", e)
		}
		n.DisableException(e)
		if got := sim.Peek(RegSHCSR); got != 0x800 {
			t.Errorf("DisableException(%s) expected SHCSR 0x00000800, got 0x%08X", e, got)
		}
	}

	sim.Poke(RegSHCSR, 0)
	before := sim.Snapshot()
	for e := 0; e <= 255; e++ {
		if _, ok := faults[Exception(e)]; ok {
			continue
		}
		n.EnableException(Exception(e))
		n.DisableException(Exception(e))
		if n.ExceptionEnabled(Exception(e)) {
			t.Errorf("ExceptionEnabled(%d) expected false", e)
		}
	}
	after := sim.Snapshot()
	for addr, v := range before {
		if after[addr] != v {
			t.Errorf("Non-fault exception changed 0x%08X: 0x%08X -> 0x%08X", addr, v, after[addr])
		}
	}
	if len(after) != len(before) {
		t.Errorf("Non-fault exceptions wrote new registers")
	}
}

func TestSetPriorityException(t *testing.T) {
	core, sim := newTestCore(t, false)
	n := core.NVIC

	// SysTick is 15: bank 0xE000ED14 + 12 = SHPR3, slot 3
	sim.Poke(0xE000ED20, 0x00FF00FF)
	n.SetPriorityException(SysTickException, 4)
	if got := sim.Peek(0xE000ED20); got != 0x80FF00FF {
		t.Errorf("SetPriorityException(SysTick, 4) expected SHPR3 0x80FF00FF, got 0x%08X", got)
	}
	// PendSV is 14: SHPR3, slot 2. Bits [20:16] of the sentinel must survive.
	n.SetPriorityException(PendSV, 2)
	if got := sim.Peek(0xE000ED20); got != 0x805F00FF {
		t.Errorf("SetPriorityException(PendSV, 2) expected SHPR3 0x805F00FF, got 0x%08X", got)
	}
	// MemManage is 4: SHPR1, slot 0
	n.SetPriorityException(MemManage, 1)
	if got := sim.Peek(0xE000ED18); got != 0x20 {
		t.Errorf("SetPriorityException(MemManage, 1) expected SHPR1 0x20, got 0x%08X", got)
	}

	for e := Exception(0); e <= MaxException; e++ {
		n.SetPriorityException(e, Priority(e%8))
		if got := n.PriorityException(e); got != Priority(e%8) {
			t.Errorf("PriorityException(%d) expected %d, got %d", e, e%8, got)
		}
	}

	before := sim.Snapshot()
	n.SetPriorityException(16, 3)
	n.SetPriorityException(200, 3)
	after := sim.Snapshot()
	for addr, v := range before {
		if after[addr] != v {
			t.Errorf("SetPriorityException out of range changed 0x%08X", addr)
		}
	}
}

func TestExceptionString(t *testing.T) {
	for e, want := range map[Exception]string{
		NMI:              "NMI",
		HardFault:        "HardFault",
		SysTickException: "SysTick",
		0:                "Exception(0)",
		9:                "Exception(9)",
	} {
		if got := e.String(); got != want {
			t.Errorf("Exception(%d).String() expected %q, got %q", uint8(e), want, got)
		}
	}
}
