package recompiler

// defaultEmitter is the shipped per-opcode translator. It turns each
// Opcode into an OpStep closure over guest register and memory semantics;
// both codegen backends consume the resulting step list unchanged, since
// Emitter and CodeGenerator share one extension point and a backend
// supplies only its own step sequencing policy.
type defaultEmitter struct{}

func (defaultEmitter) Emit(op *Opcode, delaySlot *Opcode) (OpStep, EmitResult) {
	if op == nil {
		return nil, EmitNormal
	}
	switch op.Kind {
	case OpALU:
		return emitALU(op), EmitNormal
	case OpLB, OpLBU, OpLH, OpLHU, OpLW:
		return emitLoad(op), EmitNormal
	case OpLWL, OpLWR:
		return emitUnalignedLoad(op), EmitNormal
	case OpSB, OpSH, OpSW:
		return emitStore(op), EmitNormal
	case OpSWL, OpSWR:
		return emitUnalignedStore(op), EmitNormal
	case OpLWC2, OpSWC2:
		return emitCop2Transfer(op), EmitNormal
	case OpMFC0:
		return emitMFC0(op), EmitNormal
	case OpMTC0:
		return emitMTC0(op), EmitNormal
	case OpJ, OpJAL:
		return emitJump(op, delaySlot), EmitSkipDelaySlot
	case OpJR, OpJALR:
		return emitJumpReg(op, delaySlot), EmitSkipDelaySlot
	case OpBranch:
		return emitBranch(op, delaySlot), EmitSkipDelaySlot
	case OpBreak:
		return emitBreak(op), EmitNormal
	default:
		return func(*State) {}, EmitNormal
	}
}

func emitALU(op *Opcode) OpStep {
	raw := op.Raw
	opc := opcodeField(raw)

	if opc == 0x00 {
		funct := functField(raw)
		rs, rt, rd, sh := op.Rs, op.Rt, op.Rd, op.Shamt
		return func(s *State) {
			a, b := int32(s.reg(rs)), int32(s.reg(rt))
			switch funct {
			case 0x00:
				s.setReg(rd, s.reg(rt)<<sh)
			case 0x02:
				s.setReg(rd, s.reg(rt)>>sh)
			case 0x03:
				s.setReg(rd, uint32(int32(s.reg(rt))>>sh))
			case 0x04:
				s.setReg(rd, s.reg(rt)<<(s.reg(rs)&0x1f))
			case 0x06:
				s.setReg(rd, s.reg(rt)>>(s.reg(rs)&0x1f))
			case 0x07:
				s.setReg(rd, uint32(int32(s.reg(rt))>>(s.reg(rs)&0x1f)))
			case 0x10:
				s.setReg(rd, s.HI)
			case 0x11:
				s.HI = s.reg(rs)
			case 0x12:
				s.setReg(rd, s.LO)
			case 0x13:
				s.LO = s.reg(rs)
			case 0x18:
				p := int64(a) * int64(b)
				s.HI, s.LO = uint32(p>>32), uint32(p)
			case 0x19:
				p := uint64(s.reg(rs)) * uint64(s.reg(rt))
				s.HI, s.LO = uint32(p>>32), uint32(p)
			case 0x1a:
				if b != 0 {
					s.LO, s.HI = uint32(a/b), uint32(a%b)
				}
			case 0x1b:
				if s.reg(rt) != 0 {
					s.LO, s.HI = s.reg(rs)/s.reg(rt), s.reg(rs)%s.reg(rt)
				}
			case 0x20, 0x21:
				s.setReg(rd, uint32(a+b))
			case 0x22, 0x23:
				s.setReg(rd, uint32(a-b))
			case 0x24:
				s.setReg(rd, s.reg(rs)&s.reg(rt))
			case 0x25:
				s.setReg(rd, s.reg(rs)|s.reg(rt))
			case 0x26:
				s.setReg(rd, s.reg(rs)^s.reg(rt))
			case 0x27:
				s.setReg(rd, ^(s.reg(rs) | s.reg(rt)))
			case 0x2a:
				if a < b {
					s.setReg(rd, 1)
				} else {
					s.setReg(rd, 0)
				}
			case 0x2b:
				if s.reg(rs) < s.reg(rt) {
					s.setReg(rd, 1)
				} else {
					s.setReg(rd, 0)
				}
			}
		}
	}

	rs, rt, imm := op.Rs, op.Rt, op.Imm
	return func(s *State) {
		a := int32(s.reg(rs))
		switch opc {
		case 0x08, 0x09:
			s.setReg(rt, uint32(a+imm))
		case 0x0a:
			if a < imm {
				s.setReg(rt, 1)
			} else {
				s.setReg(rt, 0)
			}
		case 0x0b:
			if s.reg(rs) < uint32(imm) {
				s.setReg(rt, 1)
			} else {
				s.setReg(rt, 0)
			}
		case 0x0c:
			s.setReg(rt, s.reg(rs)&uint32(uint16(imm)))
		case 0x0d:
			s.setReg(rt, s.reg(rs)|uint32(uint16(imm)))
		case 0x0e:
			s.setReg(rt, s.reg(rs)^uint32(uint16(imm)))
		case 0x0f:
			s.setReg(rt, uint32(imm)<<16)
		}
	}
}

func emitLoad(op *Opcode) OpStep {
	rs, rt := op.Rs, op.Rt
	o := *op
	return func(s *State) {
		s.setReg(rt, s.rw(&o, s.reg(rs), 0))
	}
}

func emitUnalignedLoad(op *Opcode) OpStep {
	rs, rt := op.Rs, op.Rt
	o := *op
	return func(s *State) {
		s.setReg(rt, s.rw(&o, s.reg(rs), s.reg(rt)))
	}
}

func emitStore(op *Opcode) OpStep {
	rs, rt := op.Rs, op.Rt
	o := *op
	return func(s *State) {
		s.rw(&o, s.reg(rs), s.reg(rt))
	}
}

func emitUnalignedStore(op *Opcode) OpStep {
	rs, rt := op.Rs, op.Rt
	o := *op
	return func(s *State) {
		s.rw(&o, s.reg(rs), s.reg(rt))
	}
}

func emitCop2Transfer(op *Opcode) OpStep {
	rs, rt := op.Rs, op.Rt
	o := *op
	return func(s *State) {
		s.rw(&o, s.reg(rs), s.reg(rt))
	}
}

func emitMFC0(op *Opcode) OpStep {
	rt, rd := op.Rt, op.Rd
	return func(s *State) {
		if s.CopOps == nil {
			return
		}
		s.setReg(rt, s.CopOps.MFC(s, 0, rd))
	}
}

func emitMTC0(op *Opcode) OpStep {
	rt, rd := op.Rt, op.Rd
	return func(s *State) {
		if s.CopOps == nil {
			return
		}
		s.CopOps.MTC(s, 0, rd, s.reg(rt))
	}
}

// emitJump folds the delay slot into the jump's own step: branch/jump
// emission consumes the following opcode rather than leaving it for a
// separate emission. JAL additionally links $ra to the instruction after
// the delay slot.
func emitJump(op *Opcode, delaySlot *Opcode) OpStep {
	target := op.Target
	link := op.Kind == OpJAL
	linkPC := op.PC + 8
	dsStep, _ := defaultEmitter{}.Emit(delaySlot, nil)
	return func(s *State) {
		if dsStep != nil {
			dsStep(s)
		}
		if link {
			s.setReg(31, linkPC)
		}
		s.NextPC = target
	}
}

func emitJumpReg(op *Opcode, delaySlot *Opcode) OpStep {
	rs := op.Rs
	link := op.Kind == OpJALR
	rd := op.Rd
	linkPC := op.PC + 8
	dsStep, _ := defaultEmitter{}.Emit(delaySlot, nil)
	return func(s *State) {
		target := s.reg(rs)
		if dsStep != nil {
			dsStep(s)
		}
		if link {
			s.setReg(rd, linkPC)
		}
		s.NextPC = target
	}
}

// emitBranch decodes the branch condition from the raw instruction since
// OpBranch does not itself distinguish BEQ/BNE/BLEZ/BGTZ/BLTZ/BGEZ.
func emitBranch(op *Opcode, delaySlot *Opcode) OpStep {
	raw := op.Raw
	opc := opcodeField(raw)
	rs, rt := op.Rs, op.Rt
	target := op.Target
	fallthroughPC := op.PC + 8
	dsStep, _ := defaultEmitter{}.Emit(delaySlot, nil)

	return func(s *State) {
		var taken bool
		a := int32(s.reg(rs))
		switch opc {
		case 0x01: // REGIMM
			switch rt {
			case 0x00:
				taken = a < 0
			case 0x01:
				taken = a >= 0
			default:
				taken = false
			}
		case 0x04:
			taken = s.reg(rs) == s.reg(rt)
		case 0x05:
			taken = s.reg(rs) != s.reg(rt)
		case 0x06:
			taken = a <= 0
		case 0x07:
			taken = a > 0
		}

		if dsStep != nil {
			dsStep(s)
		}
		if taken {
			s.NextPC = target
		} else {
			s.NextPC = fallthroughPC
		}
	}
}

func emitBreak(op *Opcode) OpStep {
	return func(s *State) {
		s.ExitFlags |= ExitHost0
	}
}
