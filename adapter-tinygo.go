//go:build tinygo

package cortexm

import (
	"runtime/volatile"
	"sync/atomic"
	"unsafe"
)

// volatileBus reaches the registers directly through their physical addresses.
type volatileBus struct{}

func (volatileBus) Load(addr uint32) uint32 {
	return (*volatile.Register32)(unsafe.Pointer(uintptr(addr))).Get()
}

func (volatileBus) Store(addr uint32, val uint32) {
	(*volatile.Register32)(unsafe.Pointer(uintptr(addr))).Set(val)
}

// vector is the SysTick the exported exception handler dispatches to.
var vector atomic.Pointer[SysTick]

// NewTinyGo creates the Core of the running chip and routes the SysTick
// exception to its SysTick.Handler. c.Bus is ignored.
// Only one Core should be created per program; a later call takes over the vector.
func NewTinyGo(c HardwareConfig) (*Core, error) {
	c.Bus = volatileBus{}
	core, err := NewWithHardware(c)
	if err != nil {
		return nil, err
	}
	vector.Store(core.SysTick)
	return core, nil
}

//go:export SysTick_Handler
func sysTickHandler() {
	if t := vector.Load(); t != nil {
		t.Handler()
	}
}
