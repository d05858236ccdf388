//go:build amd64

package codegen

// execStepTrampoline is the one call target every emitted block uses to
// run a guest opcode's semantics: a "threaded-call" codegen style,
// analogous to how lightrec's own emitted code calls back into
// lightrec_rw for anything too complex to inline. Its body (in
// execstep_amd64.s) is the sole ABI0 entry point hand-assembled blocks are
// allowed to CALL directly; it forwards into execStepGo, an ordinary Go
// function, through the linker's standard ABI0-to-ABIInternal wrapper.
func execStepTrampoline(statePtr uintptr, idx int32)
