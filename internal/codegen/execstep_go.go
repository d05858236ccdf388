//go:build amd64

package codegen

import (
	"unsafe"

	"psxrec/internal/recompiler"
)

// execStepGo is what execstep_amd64.s's trampoline forwards into. It
// recovers the currently-executing block's OpStep slice from state.Current
// (set by the dispatcher before invoking the block) and runs the one the
// emitted code asked for.
func execStepGo(statePtr uintptr, idx int32) {
	state := (*recompiler.State)(unsafe.Pointer(statePtr))
	if state.Current == nil {
		return
	}
	fn, ok := state.Current.Function.(*cyclesAwareHostFunc)
	if !ok || int(idx) >= len(fn.block.steps) {
		return
	}
	fn.block.steps[idx](state)
}
