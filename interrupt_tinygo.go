//go:build tinygo

package cortexm

import "runtime/interrupt"

// InterruptState is the saved interrupt mask returned by DisableInterrupts.
type InterruptState = interrupt.State

// DisableInterrupts masks interrupts and returns the previous state.
// Callers that swap the SysTick callback while the timer runs wrap the swap in
// DisableInterrupts/RestoreInterrupts when they need it to be atomic with other state.
func DisableInterrupts() InterruptState {
	return interrupt.Disable()
}

// RestoreInterrupts restores the mask saved by DisableInterrupts.
func RestoreInterrupts(state InterruptState) {
	interrupt.Restore(state)
}
