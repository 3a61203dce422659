//go:build !tinygo

package cortexm

import "sync"

// InterruptState is the saved interrupt mask returned by DisableInterrupts.
type InterruptState uintptr

// interruptMask stands in for PRIMASK on regular Go. No exception can preempt the
// caller here, so the only thing it holds off is the software tick dispatcher
// started by Core.Watch.
var interruptMask sync.Mutex

// DisableInterrupts holds off the software tick dispatcher until RestoreInterrupts.
// Sections must not nest.
func DisableInterrupts() InterruptState {
	interruptMask.Lock()
	return 0
}

// RestoreInterrupts ends the section started by DisableInterrupts.
func RestoreInterrupts(state InterruptState) {
	interruptMask.Unlock()
}
