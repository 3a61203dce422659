package cortexm

import (
	"time"
)

// DefaultPollInterval is the COUNTFLAG sampling period used by Watch when none is given.
const DefaultPollInterval = time.Millisecond

// Watch starts a goroutine that stands in for the SysTick exception where the
// core's exceptions are not delivered to this program, such as a Linux host that
// reaches the registers through /dev/mem. While the timer is in RunningInterrupt
// mode it samples CTRL every interval and calls SysTick.Handler whenever
// COUNTFLAG reads set. Wraps that happen between two samples are merged.
// The mode check and the CTRL read run with interrupts disabled, so a busy-wait
// being programmed never loses its COUNTFLAG to the dispatcher.
//
// Calling Watch while already watching restarts the dispatcher with the new interval.
func (c *Core) Watch(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	c.Unwatch()

	c.mu.Lock()
	defer c.mu.Unlock()
	stop := make(chan struct{})
	done := make(chan struct{})
	c.stopWatch = stop
	c.watchDone = done

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.pollTick()
			}
		}
	}()
	globalLogger.Debug("SysTick software dispatch started")
}

// pollTick samples COUNTFLAG once and runs Handler if the timer wrapped in
// interrupt mode. It reports whether Handler ran.
func (c *Core) pollTick() bool {
	t := c.SysTick
	state := DisableInterrupts()
	wrapped := t.State() == RunningInterrupt && t.ctrl().HasBits(SysTickCountFlag)
	RestoreInterrupts(state)

	if wrapped {
		t.Handler()
	}
	return wrapped
}

// Unwatch stops the goroutine started by Watch and waits for it to exit.
// It is a no-op when not watching.
func (c *Core) Unwatch() {
	c.mu.Lock()
	stop, done := c.stopWatch, c.watchDone
	c.stopWatch, c.watchDone = nil, nil
	c.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
	globalLogger.Debug("SysTick software dispatch stopped")
}
