package cortexm

import "strconv"

// Bus represents a 32-bit memory-mapped register space.
// Addresses are absolute byte addresses on the core's private peripheral bus.
type Bus interface {
	// Load reads the 32-bit register at addr.
	// Reads may have side effects (SysTick CTRL clears COUNTFLAG), so implementations
	// must never serve a cached value.
	Load(addr uint32) uint32
	// Store writes val to the 32-bit register at addr.
	Store(addr uint32, val uint32)
}

// IRQ is a peripheral interrupt number from the device vector table.
type IRQ uint8

// MaxIRQ is the highest peripheral interrupt number this controller accepts.
const MaxIRQ IRQ = 136

// Exception is a system exception number (0 to 15).
type Exception uint8

const (
	Reset            Exception = 1
	NMI              Exception = 2
	HardFault        Exception = 3
	MemManage        Exception = 4
	BusFault         Exception = 5
	UsageFault       Exception = 6
	SVCall           Exception = 11
	DebugMonitor     Exception = 12
	PendSV           Exception = 14
	SysTickException Exception = 15

	// MaxException is the highest exception number with a priority slot.
	MaxException Exception = 15
)

func (e Exception) String() string {
	switch e {
	case Reset:
		return "Reset"
	case NMI:
		return "NMI"
	case HardFault:
		return "HardFault"
	case MemManage:
		return "MemManage"
	case BusFault:
		return "BusFault"
	case UsageFault:
		return "UsageFault"
	case SVCall:
		return "SVCall"
	case DebugMonitor:
		return "DebugMonitor"
	case PendSV:
		return "PendSV"
	case SysTickException:
		return "SysTick"
	default:
		return "Exception(" + strconv.Itoa(int(e)) + ")"
	}
}

// Priority is an interrupt priority level. Lower values are more urgent.
// Only the top 3 bits of each 8-bit priority slot are implemented, so the range is 0 to 7.
type Priority uint8

const (
	// PriorityHighest is the most urgent configurable priority.
	PriorityHighest Priority = 0
	// PriorityLowest is the least urgent configurable priority.
	PriorityLowest Priority = 7
)
