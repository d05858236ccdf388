//go:build amd64

package codegen

import (
	"fmt"
	"reflect"
	"unsafe"

	asm "github.com/twitchyliquid64/golang-asm"
	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"

	"psxrec/internal/recompiler"
)

// builderCacheSize is the scratch buffer golang-asm pre-sizes per block;
// wazero's JIT engine uses the same "arbitrary number, optimize later"
// sizing (see other_examples/.../jit_amd64.go) since real block sizes vary
// too widely to guess well up front.
const builderCacheSize = 1024

// execStepTrampolineAddr is resolved once: the real entry address emitted
// blocks CALL to run one OpStep. reflect.ValueOf on a body-less, assembly-
// implemented function returns its ABI0 entry point directly, since no
// ABIInternal variant exists for it to be confused with.
var execStepTrampolineAddr = reflect.ValueOf(execStepTrampoline).Pointer()

// Backend is the amd64 CodeGenerator: it assembles one real call per guest
// opcode into the state-pinned register convention wazero's jitcall
// popularized, rather than emitting a native instruction sequence per
// MIPS opcode. See execstep_amd64.go for why this is the one safe way to
// call back into Go from hand-assembled, non-linked machine code.
type Backend struct{}

// NewBackend returns the amd64 CodeGenerator. Callers outside this
// package wire it in via recompiler.Options.CodeGenerator; it is never the
// default (the portable closure backend is) so builds on non-amd64
// platforms, and every test in this repo, stay architecture-independent.
func NewBackend() (recompiler.CodeGenerator, error) { return &Backend{}, nil }

type amd64Block struct {
	steps []recompiler.OpStep
	code  []byte
}

func (b *amd64Block) Invoke(state *recompiler.State) uint32 {
	jitcall(uintptr(unsafe.Pointer(&b.code[0])), uintptr(unsafe.Pointer(state)))
	return 0
}

type amd64Session struct{ code []byte }

func (s amd64Session) Close() {
	if s.code != nil {
		freeExec(s.code)
	}
}

// cyclesAwareHostFunc pairs the real amd64 block with the pre-computed
// guest cycle count: the emitted code performs the guest opcodes' side
// effects via execStepTrampoline, Go supplies the cycle bookkeeping the
// dispatcher wrapper needs.
type cyclesAwareHostFunc struct {
	block  *amd64Block
	cycles uint32
}

func (f *cyclesAwareHostFunc) Invoke(state *recompiler.State) uint32 {
	f.block.Invoke(state)
	return f.cycles
}

// Compile emits one CALL to execStepTrampoline per step, each carrying
// that step's index as an immediate operand: the generated code's only
// job is sequencing, exactly mirroring how the reference recompiler keeps
// per-opcode complexity out of the hot path by delegating to lightrec_rw
// and friends.
func (b *Backend) Compile(steps []recompiler.OpStep, totalCycles uint32) (recompiler.HostFunc, recompiler.Session, error) {
	builder, err := asm.NewBuilder("amd64", builderCacheSize)
	if err != nil {
		return nil, nil, fmt.Errorf("codegen: new builder: %w", err)
	}

	for i := range steps {
		emitStepCall(builder, int32(i))
	}
	emitRet(builder)

	raw := builder.Assemble()
	code, err := allocExec(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("codegen: mapping executable block: %w", err)
	}

	blk := &amd64Block{steps: steps, code: code}
	return &cyclesAwareHostFunc{block: blk, cycles: totalCycles}, amd64Session{code: code}, nil
}

// wrapperFrameSize is the dispatcher wrapper's own stack frame, matching
// the 256-byte spill area the reference trampoline reserves.
const wrapperFrameSize = 256

// wrapperResolveEntryAddr and wrapperAfterInvokeAddr are the two Go call
// targets the emitted wrapper loop CALLs indirectly: the bookkeeping each
// iteration needs (resolve the current block's entry, fold cycles, check
// exit conditions, resolve the next block on a cache miss) stays in Go,
// exactly as emitStepCall keeps per-opcode semantics in Go. Only the loop's
// sequencing and the block-to-block CALL are real emitted amd64 code.
var wrapperResolveEntryAddr = reflect.ValueOf(wrapperResolveEntryTrampoline).Pointer()
var wrapperAfterInvokeAddr = reflect.ValueOf(wrapperAfterInvokeTrampoline).Pointer()

// wrapperHostFunc is the dispatcher trampoline's real entrypoint: emitted
// amd64 code implementing the block-chaining loop (the reference
// "eob_wrapper_func" landing site), invoked the same way as a compiled
// block through jitcall so the state register pin (R12) is already live
// on entry.
type wrapperHostFunc struct{ code []byte }

func (f *wrapperHostFunc) Invoke(state *recompiler.State) uint32 {
	jitcall(uintptr(unsafe.Pointer(&f.code[0])), uintptr(unsafe.Pointer(state)))
	return state.CurrentCycle
}

// CompileWrapper emits the dispatcher trampoline as real host code: a
// 256-byte-framed function that spills/restores the callee-saved registers
// it touches (BX, BP, R13-R15; R12 stays live throughout since it carries
// the pinned state pointer every block and call target relies on) around a
// loop of indirect calls — one to resolve the current block's entry
// address, one into the block itself, one to fold its cycle cost and
// resolve the next block — ending when either bookkeeping call reports a
// halt. This is the one core component (the block dispatcher) this backend
// exists to prove out in real emitted machine code rather than a Go loop.
func (b *Backend) CompileWrapper(s *recompiler.State) (recompiler.HostFunc, recompiler.Session, error) {
	builder, err := asm.NewBuilder("amd64", builderCacheSize)
	if err != nil {
		return nil, nil, fmt.Errorf("codegen: new builder: %w", err)
	}

	emitWrapperProlog(builder)

	loopStart := builder.NewProg()
	loopStart.As = obj.ANOP
	builder.AddInstruction(loopStart)

	addInstr(builder, x86.AMOVQ, immSrc(int64(wrapperResolveEntryAddr)), regDst(x86.REG_AX))
	emitCallReg(builder, x86.REG_AX)
	emitCmpRegImm(builder, x86.REG_AX, 0)
	toDoneNoEntry := newBranch(builder, x86.AJEQ)

	// AX holds the resolved block's code entry; move it out of AX before
	// the indirect call since the call itself may clobber AX.
	addInstr(builder, x86.AMOVQ, regSrc(x86.REG_AX), regDst(x86.REG_CX))
	emitCallReg(builder, x86.REG_CX)

	addInstr(builder, x86.AMOVQ, immSrc(int64(wrapperAfterInvokeAddr)), regDst(x86.REG_AX))
	emitCallReg(builder, x86.REG_AX)
	emitCmpRegImm(builder, x86.REG_AX, 0)
	toDoneHalt := newBranch(builder, x86.AJEQ)

	backToLoop := newBranch(builder, obj.AJMP)
	backToLoop.To.SetTarget(loopStart)

	done := builder.NewProg()
	done.As = obj.ANOP
	builder.AddInstruction(done)
	toDoneNoEntry.To.SetTarget(done)
	toDoneHalt.To.SetTarget(done)

	emitWrapperEpilog(builder)
	emitRet(builder)

	raw := builder.Assemble()
	code, err := allocExec(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("codegen: mapping executable wrapper block: %w", err)
	}

	return &wrapperHostFunc{code: code}, amd64Session{code: code}, nil
}

func emitWrapperProlog(b *asm.Builder) {
	addInstr(b, x86.ASUBQ, immSrc(wrapperFrameSize), regDst(x86.REG_SP))
	addInstr(b, x86.AMOVQ, regSrc(x86.REG_BX), memDst(x86.REG_SP, 0))
	addInstr(b, x86.AMOVQ, regSrc(x86.REG_BP), memDst(x86.REG_SP, 8))
	addInstr(b, x86.AMOVQ, regSrc(x86.REG_R13), memDst(x86.REG_SP, 16))
	addInstr(b, x86.AMOVQ, regSrc(x86.REG_R14), memDst(x86.REG_SP, 24))
	addInstr(b, x86.AMOVQ, regSrc(x86.REG_R15), memDst(x86.REG_SP, 32))
}

func emitWrapperEpilog(b *asm.Builder) {
	addInstr(b, x86.AMOVQ, memSrc(x86.REG_SP, 0), regDst(x86.REG_BX))
	addInstr(b, x86.AMOVQ, memSrc(x86.REG_SP, 8), regDst(x86.REG_BP))
	addInstr(b, x86.AMOVQ, memSrc(x86.REG_SP, 16), regDst(x86.REG_R13))
	addInstr(b, x86.AMOVQ, memSrc(x86.REG_SP, 24), regDst(x86.REG_R14))
	addInstr(b, x86.AMOVQ, memSrc(x86.REG_SP, 32), regDst(x86.REG_R15))
	addInstr(b, x86.AADDQ, immSrc(wrapperFrameSize), regDst(x86.REG_SP))
}

func emitCallReg(b *asm.Builder, reg int16) {
	call := b.NewProg()
	call.As = obj.ACALL
	call.To.Type = obj.TYPE_REG
	call.To.Reg = reg
	b.AddInstruction(call)
}

func emitCmpRegImm(b *asm.Builder, reg int16, imm int64) {
	p := b.NewProg()
	p.As = x86.ACMPQ
	p.From.Type = obj.TYPE_REG
	p.From.Reg = reg
	p.To.Type = obj.TYPE_CONST
	p.To.Offset = imm
	b.AddInstruction(p)
}

// newBranch emits a control-flow instruction whose target is filled in
// later via To.SetTarget, once the destination Prog exists.
func newBranch(b *asm.Builder, as obj.As) *obj.Prog {
	p := b.NewProg()
	p.As = as
	p.To.Type = obj.TYPE_BRANCH
	b.AddInstruction(p)
	return p
}

// emitStepCall assembles:
//
//	SUBQ $16, SP
//	MOVQ R12, 0(SP)   ; state pointer, pinned by jitcall
//	MOVL $idx, 8(SP)
//	MOVQ $execStepTrampolineAddr, AX
//	CALL AX
//	ADDQ $16, SP
func emitStepCall(b *asm.Builder, idx int32) {
	addInstr(b, x86.ASUBQ, immSrc(16), regDst(x86.REG_SP))
	addInstr(b, x86.AMOVQ, regSrc(x86.REG_R12), memDst(x86.REG_SP, 0))
	addInstr(b, x86.AMOVL, immSrc(int64(idx)), memDst(x86.REG_SP, 8))
	addInstr(b, x86.AMOVQ, immSrc(int64(execStepTrampolineAddr)), regDst(x86.REG_AX))

	call := b.NewProg()
	call.As = obj.ACALL
	call.To.Type = obj.TYPE_REG
	call.To.Reg = x86.REG_AX
	b.AddInstruction(call)

	addInstr(b, x86.AADDQ, immSrc(16), regDst(x86.REG_SP))
}

func emitRet(b *asm.Builder) {
	ret := b.NewProg()
	ret.As = obj.ARET
	b.AddInstruction(ret)
}

func addInstr(b *asm.Builder, as obj.As, from, to obj.Addr) {
	p := b.NewProg()
	p.As = as
	p.From = from
	p.To = to
	b.AddInstruction(p)
}

func immSrc(v int64) obj.Addr    { return obj.Addr{Type: obj.TYPE_CONST, Offset: v} }
func regSrc(r int16) obj.Addr    { return obj.Addr{Type: obj.TYPE_REG, Reg: r} }
func regDst(r int16) obj.Addr    { return obj.Addr{Type: obj.TYPE_REG, Reg: r} }
func memDst(r int16, off int64) obj.Addr {
	return obj.Addr{Type: obj.TYPE_MEM, Reg: r, Offset: off}
}
func memSrc(r int16, off int64) obj.Addr { return memDst(r, off) }
