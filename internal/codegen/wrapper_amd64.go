//go:build amd64

package codegen

import (
	"unsafe"

	"psxrec/internal/recompiler"
)

// wrapperResolveEntryTrampoline and wrapperAfterInvokeTrampoline are the two
// call targets the emitted dispatcher wrapper loop (see
// CompileWrapper in backend_amd64.go) uses: the loop itself only ever does
// an indirect CALL into a resolved block entry and these two bookkeeping
// calls, exactly the way execStepTrampoline keeps a block's own per-opcode
// semantics out of hand-assembled code. Both read the state pointer from
// R12, the same pinned register jitcall establishes, rather than from a
// marshaled argument, since the wrapper loop never has it on the Go stack.
func wrapperResolveEntryTrampoline() (entry uintptr)
func wrapperAfterInvokeTrampoline() (cont int32)

// wrapperResolveEntryGo resolves state.Current to a callable host code
// entry address, mirroring closureWrapperFunc's leading nil-check: a nil
// Current or Function raises ExitSegfault and halts the loop.
func wrapperResolveEntryGo(statePtr uintptr) uintptr {
	state := (*recompiler.State)(unsafe.Pointer(statePtr))
	if state.Current == nil || state.Current.Function == nil {
		state.SetExitFlags(recompiler.ExitSegfault)
		return 0
	}
	fn, ok := state.Current.Function.(*cyclesAwareHostFunc)
	if !ok || len(fn.block.code) == 0 {
		state.SetExitFlags(recompiler.ExitSegfault)
		return 0
	}
	return uintptr(unsafe.Pointer(&fn.block.code[0]))
}

// wrapperAfterInvokeGo runs after the emitted loop's indirect CALL into the
// current block returns: fold its cycle cost into state.CurrentCycle, check
// the exit conditions exactly as closureWrapperFunc does, and resolve the
// next block on a cache miss. Returns 0 to stop the loop, 1 to continue.
func wrapperAfterInvokeGo(statePtr uintptr) int32 {
	state := (*recompiler.State)(unsafe.Pointer(statePtr))
	fn, ok := state.Current.Function.(*cyclesAwareHostFunc)
	if ok {
		state.CurrentCycle += fn.cycles
	}

	if state.ExitFlags != recompiler.ExitNormal {
		return 0
	}
	if state.CurrentCycle >= state.TargetCycle {
		return 0
	}

	next, err := state.ResolveBlock(state.NextPC)
	if err != nil {
		state.SetExitFlags(recompiler.ExitSegfault)
		return 0
	}
	state.Current = next
	return 1
}
