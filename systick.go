package cortexm

import (
	"strconv"
	"sync/atomic"
)

// DefaultCoreClockHz is the core clock used when HardwareConfig.CoreClockHz is zero.
const DefaultCoreClockHz = 16000000

// State is the operating mode of the SysTick timer.
type State uint32

const (
	// Stopped means the counter is disabled.
	Stopped State = iota
	// RunningInterrupt means the counter free-runs and raises the SysTick exception on every wrap.
	RunningInterrupt
	// RunningPolled means a busy-wait is in progress.
	RunningPolled
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case RunningInterrupt:
		return "RunningInterrupt"
	case RunningPolled:
		return "RunningPolled"
	default:
		return "unknown"
	}
}

// SysTick drives the core's 24-bit SysTick timer and owns its single callback slot.
//
// There is exactly one SysTick per core; Core creates it. Handler must be wired to the
// SysTick exception: the TinyGo adapter exports it as SysTick_Handler, Sim calls it on
// every simulated wrap, and Core.Watch dispatches it from a goroutine on hosts.
type SysTick struct {
	bus        Bus
	clockHz    uint32
	ticksPerMs uint32
	callback   atomic.Pointer[func()]
	mode       atomic.Uint32 // State selected by the last Init/StartBusyWait/DeInit
	running    atomic.Bool
}

func newSysTick(bus Bus, clockHz uint32) *SysTick {
	return &SysTick{
		bus:        bus,
		clockHz:    clockHz,
		ticksPerMs: clockHz / 1000,
	}
}

func (t *SysTick) ctrl() register    { return register{t.bus, RegSysTickCtrl} }
func (t *SysTick) reload() register  { return register{t.bus, RegSysTickReload} }
func (t *SysTick) current() register { return register{t.bus, RegSysTickCurrent} }

// CoreClockHz returns the clock the reload values are computed from.
func (t *SysTick) CoreClockHz() uint32 {
	return t.clockHz
}

// State returns the current operating mode.
func (t *SysTick) State() State {
	if !t.running.Load() {
		return Stopped
	}
	return State(t.mode.Load())
}

// ReloadFor returns the RELOAD value for a period of ms milliseconds:
// ms * (clock / 1000) - 1. ok is false when the value does not fit the
// 24-bit field, in which case reload is clamped to SysTickReloadMask.
// A zero period underflows and is clamped the same way.
func (t *SysTick) ReloadFor(ms uint16) (reload uint32, ok bool) {
	if ms == 0 {
		return SysTickReloadMask, false
	}
	v := uint64(ms)*uint64(t.ticksPerMs) - 1
	if v > SysTickReloadMask {
		return SysTickReloadMask, false
	}
	return uint32(v), true
}

// MaxPeriodMs returns the longest period, in milliseconds, whose reload fits the 24-bit field.
func (t *SysTick) MaxPeriodMs() uint16 {
	if t.ticksPerMs == 0 {
		return 0
	}
	m := (uint64(SysTickReloadMask) + 1) / uint64(t.ticksPerMs)
	if m > 0xFFFF {
		m = 0xFFFF
	}
	return uint16(m)
}

// SetCallBack installs fn as the function Handler calls. A nil fn silences the handler.
// It takes effect for the next Handler call, including while the timer is running.
// A Handler already in progress may still observe the previous callback.
func (t *SysTick) SetCallBack(fn func()) {
	if fn == nil {
		t.callback.Store(nil)
		return
	}
	t.callback.Store(&fn)
}

// Handler is the SysTick exception entry point. It runs the installed callback, if any,
// synchronously in the caller's (interrupt) context.
func (t *SysTick) Handler() {
	if fn := t.callback.Load(); fn != nil {
		(*fn)()
	}
}

// reloadOrClamp is ReloadFor with a warning on overflow.
func (t *SysTick) reloadOrClamp(ms uint16) uint32 {
	reload, ok := t.ReloadFor(ms)
	if !ok {
		globalLogger.Warn("SysTick period " + strconv.Itoa(int(ms)) + "ms exceeds the 24-bit reload, clamped to " + strconv.Itoa(int(t.MaxPeriodMs())) + "ms")
	}
	return reload
}

// program stops the counter, loads RELOAD, clears CURRENT and enables the
// counter with the extra CTRL bits in ctrl.
func (t *SysTick) program(reload uint32, ctrl uint32, mode State) {
	state := DisableInterrupts()
	t.ctrl().Set(0)
	t.reload().Set(reload)
	t.current().Set(0)
	t.ctrl().SetBits(ctrl)
	t.mode.Store(uint32(mode))
	t.Start()
	RestoreInterrupts(state)
}

// Init starts the timer in periodic interrupt mode with a period of ms milliseconds.
// Handler is invoked on every wrap until Stop or DeInit.
func (t *SysTick) Init(ms uint16) {
	t.program(t.reloadOrClamp(ms), SysTickClkSource|SysTickTickInt, RunningInterrupt)
}

// StartBusyWait blocks the caller for ms milliseconds by polling COUNTFLAG with the
// SysTick interrupt disabled, then stops the timer. It cannot be cancelled.
// Like Init, a zero or over-long ms runs for the full 24-bit period.
func (t *SysTick) StartBusyWait(ms uint16) {
	t.program(t.reloadOrClamp(ms), SysTickClkSource, RunningPolled)

	// Every read of CTRL clears COUNTFLAG, so poll the register itself.
	for !t.ctrl().HasBits(SysTickCountFlag) {
	}
	t.Stop()
}

// Delay blocks for ms milliseconds, splitting periods longer than MaxPeriodMs
// into consecutive busy-waits.
func (t *SysTick) Delay(ms uint32) {
	chunk := uint32(t.MaxPeriodMs())
	if chunk == 0 {
		return
	}
	for ms > 0 {
		step := min(ms, chunk)
		t.StartBusyWait(uint16(step))
		ms -= step
	}
}

// Start sets the counter enable bit without touching RELOAD, CURRENT or the callback.
func (t *SysTick) Start() {
	t.ctrl().SetBits(SysTickEnable)
	t.running.Store(true)
}

// Stop clears the counter enable bit. RELOAD, CURRENT and the callback are kept,
// so Start resumes the previous mode.
func (t *SysTick) Stop() {
	t.ctrl().ClearBits(SysTickEnable)
	t.running.Store(false)
}

// DeInit clears CTRL, RELOAD and CURRENT. The callback is left installed.
func (t *SysTick) DeInit() {
	t.ctrl().Set(0)
	t.reload().Set(0)
	t.current().Set(0)
	t.mode.Store(uint32(Stopped))
	t.running.Store(false)
	globalLogger.Debug("SysTick deinitialized")
}
