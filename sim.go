package cortexm

import (
	"sync"
)

// DefaultCyclesPerPoll is the number of core cycles a Sim lets elapse on every CTRL read
// while the counter is enabled.
const DefaultCyclesPerPoll = 1000

// Sim is a simulated register bank implementing Bus.
//
// Every address behaves as plain memory except the SysTick registers, which follow
// the hardware: RELOAD keeps 24 bits, any write to CURRENT clears it and COUNTFLAG,
// COUNTFLAG ignores writes and is cleared by reading CTRL, and the counter counts
// down while enabled. Time advances explicitly with Advance, and by CyclesPerPoll on
// every CTRL read made while the counter is enabled, so that a busy-wait loop makes
// progress without the reads that program the timer counting as elapsed time.
//
// When the counter wraps with TICKINT set, Sim calls the handler installed with
// OnSysTick, after releasing its lock, once per wrap.
type Sim struct {
	mu             sync.Mutex
	regs           map[uint32]uint32
	cyclesPerPoll  uint64
	cycles         uint64
	countFlagReads int
	onSysTick      func()
}

// NewSim returns an empty register bank.
func NewSim() *Sim {
	return &Sim{
		regs:          make(map[uint32]uint32),
		cyclesPerPoll: DefaultCyclesPerPoll,
	}
}

// SetCyclesPerPoll changes how many cycles elapse on every CTRL read while enabled.
func (s *Sim) SetCyclesPerPoll(n uint64) {
	s.mu.Lock()
	s.cyclesPerPoll = n
	s.mu.Unlock()
}

// OnSysTick installs the function the simulated core calls for the SysTick exception.
func (s *Sim) OnSysTick(fn func()) {
	s.mu.Lock()
	s.onSysTick = fn
	s.mu.Unlock()
}

func (s *Sim) Load(addr uint32) uint32 {
	s.mu.Lock()
	if addr != RegSysTickCtrl {
		v := s.regs[addr]
		s.mu.Unlock()
		return v
	}

	var fired int
	if s.regs[RegSysTickCtrl]&SysTickEnable != 0 {
		fired = s.step(s.cyclesPerPoll)
	}
	v := s.regs[RegSysTickCtrl]
	if v&SysTickCountFlag != 0 {
		s.countFlagReads++
		s.regs[RegSysTickCtrl] = v &^ SysTickCountFlag
	}
	fn := s.onSysTick
	s.mu.Unlock()

	s.dispatch(fn, fired)
	return v
}

func (s *Sim) Store(addr uint32, val uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch addr {
	case RegSysTickCtrl:
		s.regs[addr] = val&^SysTickCountFlag | s.regs[addr]&SysTickCountFlag
	case RegSysTickReload:
		s.regs[addr] = val & SysTickReloadMask
	case RegSysTickCurrent:
		s.regs[addr] = 0
		s.regs[RegSysTickCtrl] &^= SysTickCountFlag
	default:
		s.regs[addr] = val
	}
}

// Peek reads a register without side effects or elapsed time.
func (s *Sim) Peek(addr uint32) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs[addr]
}

// Poke writes a register verbatim, bypassing the SysTick write rules.
func (s *Sim) Poke(addr uint32, val uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regs[addr] = val
}

// Snapshot returns a copy of every register written so far.
func (s *Sim) Snapshot() map[uint32]uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uint32]uint32, len(s.regs))
	for k, v := range s.regs {
		out[k] = v
	}
	return out
}

// Cycles returns the number of core cycles simulated so far.
func (s *Sim) Cycles() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cycles
}

// CountFlagReads returns how many CTRL reads have returned COUNTFLAG set.
func (s *Sim) CountFlagReads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countFlagReads
}

// Advance lets n core cycles elapse, dispatching the SysTick handler for every
// wrap that happens with TICKINT set.
func (s *Sim) Advance(n uint64) {
	s.mu.Lock()
	fired := s.step(n)
	fn := s.onSysTick
	s.mu.Unlock()

	s.dispatch(fn, fired)
}

// dispatch calls fn once per wrap. Calls are sequential, as the core never
// re-enters an exception handler.
func (s *Sim) dispatch(fn func(), fired int) {
	if fn == nil {
		return
	}
	for i := 0; i < fired; i++ {
		fn()
	}
}

// step runs the counter for n cycles and returns the number of wraps that should
// raise the SysTick exception. Callers hold s.mu.
//
// An enabled counter at zero loads RELOAD on the next cycle, then reaching zero
// again sets COUNTFLAG, so one period is RELOAD+1 cycles. A zero RELOAD halts it.
func (s *Sim) step(n uint64) (fired int) {
	s.cycles += n
	ctrl := s.regs[RegSysTickCtrl]
	if ctrl&SysTickEnable == 0 {
		return 0
	}
	reload := s.regs[RegSysTickReload] & SysTickReloadMask
	cur := s.regs[RegSysTickCurrent]

	for n > 0 {
		if cur == 0 {
			if reload == 0 {
				break
			}
			cur = reload
			n--
			continue
		}
		if n < uint64(cur) {
			cur -= uint32(n)
			break
		}
		n -= uint64(cur)
		cur = 0
		ctrl |= SysTickCountFlag
		if ctrl&SysTickTickInt != 0 {
			fired++
		}
	}

	s.regs[RegSysTickCtrl] = ctrl
	s.regs[RegSysTickCurrent] = cur
	return fired
}
