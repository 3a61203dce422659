//go:build !tinygo

package cortexm

import (
	"fmt"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/pmem"
)

const (
	// scsBase is the page holding SysTick, the NVIC and the system control block.
	scsBase = 0xE000E000
	scsSize = 0x1000
)

// memBus is a Bus over a physical memory mapping of the System Control Space.
type memBus struct {
	view  *pmem.View
	words []uint32
}

func (b *memBus) index(addr uint32) (int, bool) {
	if addr < scsBase || addr&3 != 0 {
		return 0, false
	}
	i := int((addr - scsBase) >> 2)
	return i, i < len(b.words)
}

func (b *memBus) Load(addr uint32) uint32 {
	i, ok := b.index(addr)
	if !ok {
		return 0
	}
	return atomic.LoadUint32(&b.words[i])
}

func (b *memBus) Store(addr uint32, val uint32) {
	i, ok := b.index(addr)
	if !ok {
		return
	}
	atomic.StoreUint32(&b.words[i], val)
}

func (b *memBus) Close() error {
	return b.view.Close()
}

// Config holds the configuration for the Linux/periph.io backend.
type Config struct {
	// CoreClock is the SysTick clock source frequency.
	// Defaults to 16MHz if not provided.
	CoreClock physic.Frequency
	// LegacyPriorityBase, see HardwareConfig.
	LegacyPriorityBase bool
	// PollInterval is how often the software dispatcher samples COUNTFLAG.
	// Defaults to 1ms if not provided.
	PollInterval time.Duration
	// DisableWatch leaves SysTick.Handler to be called by the caller instead of
	// starting the software dispatcher.
	DisableWatch bool
}

// Open maps the System Control Space through /dev/mem and returns a Core on it.
// It is meant for hosts that can reach a Cortex-M core's private peripheral bus
// physically, such as a companion core exposed to Linux or a debug bridge.
// Unless DisableWatch is set, SysTick.Handler is dispatched by Core.Watch.
func Open(c Config) (*Core, error) {
	// 1. Initialize periph.io host drivers
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: failed to initialize periph.io host: %w", ErrPkg, err)
	}

	// 2. Default clock
	if c.CoreClock == 0 {
		c.CoreClock = DefaultCoreClockHz * physic.Hertz
	}
	if c.CoreClock < physic.KiloHertz {
		return nil, fmt.Errorf("%w: core clock must be at least 1kHz, got %s", ErrPkg, c.CoreClock)
	}

	// 3. Map the register page
	view, err := pmem.Map(scsBase, scsSize)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to map System Control Space: %w", ErrPkg, err)
	}
	bus := &memBus{view: view, words: view.Uint32()}
	globalLogger.Info("System Control Space mapped at 0xE000E000.")

	// 4. Build the core
	core, err := NewWithHardware(HardwareConfig{
		Bus:                bus,
		CoreClockHz:        uint32(c.CoreClock / physic.Hertz),
		LegacyPriorityBase: c.LegacyPriorityBase,
	})
	if err != nil {
		view.Close()
		return nil, err
	}
	core.closer = bus

	// 5. Dispatch SysTick from a goroutine
	if !c.DisableWatch {
		core.Watch(c.PollInterval)
	}
	return core, nil
}
