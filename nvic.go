package cortexm

import (
	"golang.org/x/exp/slices"
)

// faultExceptions are the exceptions with an enable bit in SHCSR.
var faultExceptions = [...]Exception{MemManage, BusFault, UsageFault}

// NVIC configures peripheral interrupts and system exceptions.
// It holds no state besides the register addresses; every call goes straight to the bus.
// All methods are safe to call from interrupt context.
type NVIC struct {
	bus          Bus
	priorityBase uint32
}

func newNVIC(bus Bus, legacyPriorityBase bool) *NVIC {
	n := &NVIC{bus: bus, priorityBase: RegIPRBase}
	if legacyPriorityBase {
		n.priorityBase = RegLegacyIPRBase
	}
	return n
}

func (n *NVIC) enableReg(irq IRQ) register {
	return register{n.bus, RegISERBase + uint32(irq>>5)<<2}
}

func (n *NVIC) priorityReg(irq IRQ) register {
	return register{n.bus, n.priorityBase + uint32(irq>>2)<<2}
}

func (n *NVIC) exceptionPriorityReg(e Exception) register {
	return register{n.bus, RegSHPRBase + uint32(e>>2)<<2}
}

// priorityPos is the bit position of the priority field for slot 0..3 of a priority register.
func priorityPos(slot uint8) uint8 {
	return slot*8 + _PRI_SHIFT
}

// EnableIRQ enables the peripheral interrupt irq.
// Numbers above MaxIRQ are ignored.
func (n *NVIC) EnableIRQ(irq IRQ) {
	if irq > MaxIRQ {
		return
	}
	n.enableReg(irq).SetBits(1 << (irq & 0x1F))
}

// DisableIRQ disables the peripheral interrupt irq.
// Numbers above MaxIRQ are ignored.
func (n *NVIC) DisableIRQ(irq IRQ) {
	if irq > MaxIRQ {
		return
	}
	n.enableReg(irq).ClearBits(1 << (irq & 0x1F))
}

// IRQEnabled reports whether irq is enabled. It returns false for numbers above MaxIRQ.
func (n *NVIC) IRQEnabled(irq IRQ) bool {
	if irq > MaxIRQ {
		return false
	}
	return n.enableReg(irq).HasBits(1 << (irq & 0x1F))
}

// SetPriorityIRQ sets the priority of irq, leaving the three neighbouring
// priority fields of the same register untouched.
// Numbers above MaxIRQ are ignored. Only the low 3 bits of priority are used.
func (n *NVIC) SetPriorityIRQ(irq IRQ, priority Priority) {
	if irq > MaxIRQ {
		return
	}
	n.priorityReg(irq).ReplaceBits(uint32(priority), _PRI_MASK, priorityPos(uint8(irq&3)))
}

// PriorityIRQ returns the priority of irq, or 0 for numbers above MaxIRQ.
func (n *NVIC) PriorityIRQ(irq IRQ) Priority {
	if irq > MaxIRQ {
		return 0
	}
	v := n.priorityReg(irq).Get()
	return Priority(v >> priorityPos(uint8(irq&3)) & _PRI_MASK)
}

func isFault(e Exception) bool {
	return slices.Contains(faultExceptions[:], e)
}

// EnableException enables one of the configurable fault exceptions
// (MemManage, BusFault, UsageFault). Any other exception is ignored.
func (n *NVIC) EnableException(e Exception) {
	if !isFault(e) {
		return
	}
	register{n.bus, RegSHCSR}.SetBits(1 << (uint32(e) + _SHCSR_ENA_SHIFT))
}

// DisableException disables one of the configurable fault exceptions.
// Any other exception is ignored.
func (n *NVIC) DisableException(e Exception) {
	if !isFault(e) {
		return
	}
	register{n.bus, RegSHCSR}.ClearBits(1 << (uint32(e) + _SHCSR_ENA_SHIFT))
}

// ExceptionEnabled reports whether fault exception e is enabled.
// It returns false for exceptions without an enable bit.
func (n *NVIC) ExceptionEnabled(e Exception) bool {
	if !isFault(e) {
		return false
	}
	return register{n.bus, RegSHCSR}.HasBits(1 << (uint32(e) + _SHCSR_ENA_SHIFT))
}

// SetPriorityException sets the priority of system exception e.
// Numbers above MaxException are ignored.
//
// Exceptions 0 to 3 have fixed priorities on the core; their slots
// alias the word below SHPR1 and writing them is the caller's responsibility.
func (n *NVIC) SetPriorityException(e Exception, priority Priority) {
	if e > MaxException {
		return
	}
	n.exceptionPriorityReg(e).ReplaceBits(uint32(priority), _PRI_MASK, priorityPos(uint8(e&3)))
}

// PriorityException returns the priority of system exception e, or 0 for numbers above MaxException.
func (n *NVIC) PriorityException(e Exception) Priority {
	if e > MaxException {
		return 0
	}
	v := n.exceptionPriorityReg(e).Get()
	return Priority(v >> priorityPos(uint8(e&3)) & _PRI_MASK)
}
