package cortexm

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

var (
	ErrPkg     = errors.New("cortexm")
	ErrProfile = errors.New("invalid interrupt profile")
)

// HardwareConfig holds the configuration shared by every backend.
type HardwareConfig struct {
	// Bus is the register space the core's private peripherals are reached through.
	Bus Bus
	// CoreClockHz is the SysTick clock source frequency in Hz.
	// Defaults to 16000000 (16MHz) if not provided.
	CoreClockHz uint32
	// LegacyPriorityBase addresses IRQ priority registers from 0xE000E100, the
	// enable-register base, instead of the architectural 0xE000E400.
	// Only needed for firmware that programmed priorities at that address.
	LegacyPriorityBase bool
}

// Core groups the private peripherals of one Cortex-M core.
type Core struct {
	NVIC    *NVIC
	SysTick *SysTick

	config    HardwareConfig
	mu        sync.Mutex
	closer    io.Closer
	stopWatch chan struct{}
	watchDone chan struct{}
}

// NewWithHardware creates a Core on the provided register bus.
func NewWithHardware(c HardwareConfig) (*Core, error) {
	if c.Bus == nil {
		return nil, fmt.Errorf("%w: register bus not configured", ErrPkg)
	}
	if c.CoreClockHz == 0 {
		c.CoreClockHz = DefaultCoreClockHz
	}
	if c.CoreClockHz < 1000 {
		return nil, fmt.Errorf("%w: core clock must be at least 1kHz, got %dHz", ErrPkg, c.CoreClockHz)
	}

	core := &Core{
		NVIC:    newNVIC(c.Bus, c.LegacyPriorityBase),
		SysTick: newSysTick(c.Bus, c.CoreClockHz),
		config:  c,
	}
	if c.LegacyPriorityBase {
		globalLogger.Warn("IRQ priorities addressed from the legacy 0xE000E100 base")
	}
	globalLogger.Info("Cortex-M core peripherals ready.")
	return core, nil
}

func (c *Core) String() string {
	base := uint32(RegIPRBase)
	if c.config.LegacyPriorityBase {
		base = RegLegacyIPRBase
	}
	return fmt.Sprintf("CortexM(CoreClock=%dHz, PriorityBase=0x%08X, SysTick=%s, MaxPeriod=%dms)",
		c.config.CoreClockHz,
		base,
		c.SysTick.State(),
		c.SysTick.MaxPeriodMs(),
	)
}

// Close stops the SysTick timer, the software tick dispatcher if running,
// and releases the register mapping.
// This method is concurrent safe.
func (c *Core) Close() error {
	c.Unwatch()
	c.SysTick.DeInit()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closer != nil {
		err := c.closer.Close()
		c.closer = nil
		if err != nil {
			globalLogger.Warn("Failed to release register mapping")
			return fmt.Errorf("%w: %w", ErrPkg, err)
		}
		globalLogger.Info("Register mapping released.")
	}
	return nil
}
