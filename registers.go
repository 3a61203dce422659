package cortexm

// System Control Space register addresses
const (
	RegSysTickCtrl    = 0xE000E010 // SYST_CSR
	RegSysTickReload  = 0xE000E014 // SYST_RVR
	RegSysTickCurrent = 0xE000E018 // SYST_CVR

	RegISERBase      = 0xE000E100 // Interrupt enable banks, 32 IRQs each
	RegIPRBase       = 0xE000E400 // Interrupt priority banks, 4 IRQs each
	RegLegacyIPRBase = 0xE000E100 // Priority banks at the enable-register base, see HardwareConfig.LegacyPriorityBase

	RegSHPRBase = 0xE000ED14 // Exception priority banks, indexed by exception number
	RegSHCSR    = 0xE000ED24 // System Handler Control and State
)

// SysTick CTRL bits
const (
	SysTickEnable    = 1 << 0
	SysTickTickInt   = 1 << 1
	SysTickClkSource = 1 << 2
	SysTickCountFlag = 1 << 16 // cleared by reading CTRL
)

// SysTickReloadMask covers the implemented bits of RELOAD and CURRENT.
const SysTickReloadMask = 0x00FFFFFF

const (
	_PRI_SHIFT = 5   // priority occupies bits [7:5] of its slot
	_PRI_MASK  = 0x7 // 3 implemented priority bits

	_SHCSR_ENA_SHIFT = 12 // fault enable bit = exception number + 12
)

// register is a typed accessor for one 32-bit register behind a Bus.
// The method set follows TinyGo's volatile.Register32.
type register struct {
	bus  Bus
	addr uint32
}

func (r register) Get() uint32 {
	return r.bus.Load(r.addr)
}

func (r register) Set(value uint32) {
	r.bus.Store(r.addr, value)
}

func (r register) SetBits(value uint32) {
	r.bus.Store(r.addr, r.bus.Load(r.addr)|value)
}

func (r register) ClearBits(value uint32) {
	r.bus.Store(r.addr, r.bus.Load(r.addr)&^value)
}

// HasBits reads the register once and reports whether any bit of value is set.
func (r register) HasBits(value uint32) bool {
	return r.bus.Load(r.addr)&value != 0
}

// ReplaceBits clears mask<<pos and ORs in (value&mask)<<pos in one read-modify-write.
func (r register) ReplaceBits(value uint32, mask uint32, pos uint8) {
	v := r.bus.Load(r.addr)
	v &^= mask << pos
	v |= (value & mask) << pos
	r.bus.Store(r.addr, v)
}
