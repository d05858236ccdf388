package recompiler

import "fmt"

// compileBlock resolves pc to its backing map, disassembles a block's
// worth of opcodes, resets the register cache, runs the optimizer, emits
// one OpStep per opcode (folding a branch/jump's delay slot into its own
// emission), and hands the step list to the codegen backend.
func (s *State) compileBlock(pc uint32) (*Block, error) {
	kaddr := kunseg(pc)
	m := s.findMap(kaddr)
	if m == nil {
		return nil, fmt.Errorf("recompiler: compile_block pc=0x%08x: %w", pc, ErrNoMap)
	}
	backing := s.resolveMirror(m)
	if backing.Address == nil {
		return nil, fmt.Errorf("recompiler: compile_block pc=0x%08x: %w", pc, ErrNoBacking)
	}

	offset := hostOffset(m, kaddr)
	remaining := (m.Length - (kaddr - m.PC)) / 4

	opcodes, err := s.disassembler.Disassemble(backing.Address[offset:], pc, remaining)
	if err != nil {
		return nil, fmt.Errorf("recompiler: compile_block pc=0x%08x: disassembling: %w", pc, err)
	}
	if len(opcodes) == 0 {
		return nil, fmt.Errorf("recompiler: compile_block pc=0x%08x: %w", pc, ErrEmptyBlock)
	}

	s.RegCache.Reset()
	opcodes = s.optimizer.Optimize(opcodes)

	var cycles uint32
	for i := range opcodes {
		cycles += cyclesOf(&opcodes[i])
	}

	steps := make([]OpStep, 0, len(opcodes))
	foldedDelaySlot := false
	for i := 0; i < len(opcodes); i++ {
		// An opcode only drops out of emission when the PRECEDING branch
		// or jump's Emit call actually folded it (EmitSkipDelaySlot); a
		// plugged-in Emitter is free to return EmitNormal instead and
		// leave the delay slot to be emitted on its own, per op.
		if foldedDelaySlot {
			foldedDelaySlot = false
			continue
		}
		op := &opcodes[i]

		var delaySlot *Opcode
		if op.Kind.IsControlFlow() && op.Kind != OpBreak && i+1 < len(opcodes) {
			delaySlot = &opcodes[i+1]
		}

		step, result := s.emitter.Emit(op, delaySlot)
		steps = append(steps, step)
		if result == EmitSkipDelaySlot && i+1 < len(opcodes) {
			foldedDelaySlot = true
		}
	}

	fn, session, err := s.codeGen.Compile(steps, cycles)
	if err != nil {
		return nil, fmt.Errorf("recompiler: compile_block pc=0x%08x: codegen: %w", pc, err)
	}

	b := &Block{
		PC:           pc,
		KunsegPC:     kaddr,
		state:        s,
		Map:          m,
		Code:         backing.Address[offset:],
		Opcodes:      opcodes,
		Function:     fn,
		session:      session,
		CompileCycle: s.CurrentCycle,
		Cycles:       cycles,
		Length:       uint32(len(opcodes)),
	}
	b.Hash = s.hashBlockCode(b)

	return b, nil
}
