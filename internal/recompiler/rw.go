package recompiler

// rw is the runtime helper invoked by compiled code (or by the interpreted
// test backend) for any guest load or store. base is the value of rs
// prior to adding the immediate; for stores, data is the value to write.
func (s *State) rw(op *Opcode, base uint32, data uint32) uint32 {
	addr := base + uint32(op.Imm)
	kaddr := kunseg(addr)

	owner := s.findMap(kaddr)
	if owner == nil {
		s.segfault(addr)
		return 0
	}

	offset := hostOffset(owner, kaddr)
	backing := s.resolveMirror(owner)

	if backing.Ops != nil {
		return s.rwOps(op, backing.Ops, addr, data)
	}

	switch op.Kind {
	case OpLB:
		return signExtend8(backing.Address[offset])
	case OpLBU:
		return uint32(backing.Address[offset])
	case OpLH:
		return signExtend16(readU16(backing.Address, offset))
	case OpLHU:
		return uint32(readU16(backing.Address, offset))
	case OpLW:
		return readU32(backing.Address, offset)
	case OpLWL, OpLWR:
		return s.rwUnalignedLoad(op, backing, kaddr, offset, data)
	case OpSB:
		backing.Address[offset] = byte(data)
		s.invalidateStore(owner, kaddr, 1)
		return 0
	case OpSH:
		writeU16(backing.Address, offset, uint16(data))
		s.invalidateStore(owner, kaddr, 2)
		return 0
	case OpSW:
		writeU32(backing.Address, offset, data)
		s.invalidateStore(owner, kaddr, 4)
		return 0
	case OpSWL, OpSWR:
		s.rwUnalignedStore(op, backing, owner, kaddr, offset, data)
		return 0
	case OpLWC2:
		word := readU32(backing.Address, offset&^3)
		if s.CopOps == nil {
			s.logger.Printf("recompiler: missing MTC callback for LWC2")
			return 0
		}
		s.CopOps.MTC(s, 2, uint8(op.Rt), word)
		return 0
	case OpSWC2:
		if s.CopOps == nil {
			s.logger.Printf("recompiler: missing MFC callback for SWC2")
			return 0
		}
		word := s.CopOps.MFC(s, 2, uint8(op.Rt))
		writeU32(backing.Address, offset&^3, word)
		s.invalidateStore(owner, kaddr&^3, 4)
		return 0
	default:
		return 0
	}
}

// rwOps delegates width conversion the same way the reference
// lightrec_rw_ops does: the HWOps callback always deals in raw widths,
// and sign/zero extension for loads happens here, not in the callback.
func (s *State) rwOps(op *Opcode, ops HWOps, addr uint32, data uint32) uint32 {
	switch op.Kind {
	case OpSB:
		ops.SB(s, op, addr, byte(data))
		return 0
	case OpSH:
		ops.SH(s, op, addr, uint16(data))
		return 0
	case OpSW, OpSWL, OpSWR:
		ops.SW(s, op, addr, data)
		return 0
	case OpLB:
		return signExtend8(ops.LB(s, op, addr))
	case OpLBU:
		return uint32(ops.LB(s, op, addr))
	case OpLH:
		return signExtend16(ops.LH(s, op, addr))
	case OpLHU:
		return uint32(ops.LH(s, op, addr))
	case OpLWL, OpLWR, OpLW:
		fallthrough
	default:
		return ops.LW(s, op, addr)
	}
}

// rwUnalignedLoad implements LWL/LWR. data is the prior value of rt,
// supplied by the caller (the emitted code or the closure backend keeps
// rt live across the call since the RW engine cannot see the register
// file directly here).
func (s *State) rwUnalignedLoad(op *Opcode, backing *MemMap, kaddr, offset uint32, data uint32) uint32 {
	memWord := readU32(backing.Address, offset&^3)
	shift := kaddr & 3

	if op.Kind == OpLWL {
		mask := uint32(1)<<(24-shift*8) - 1
		return (data & mask) | (memWord << (24 - shift*8))
	}

	mask := genMask32(31, uint(32-shift*8))
	return (data & mask) | (memWord >> (shift * 8))
}

// rwUnalignedStore implements SWL/SWR, invalidating the aligned word
// touched regardless of which byte lane changed.
func (s *State) rwUnalignedStore(op *Opcode, backing *MemMap, owner *MemMap, kaddr, offset uint32, data uint32) {
	alignedOffset := offset &^ 3
	memWord := readU32(backing.Address, alignedOffset)
	shift := kaddr & 3

	var result uint32
	if op.Kind == OpSWL {
		mask := genMask32(31, uint((shift+1)*8))
		result = (data >> ((3 - shift) * 8)) | (memWord & mask)
	} else {
		mask := uint32(1)<<(shift*8) - 1
		result = (data << (shift * 8)) | (memWord & mask)
	}

	writeU32(backing.Address, alignedOffset, result)
	s.invalidateStore(owner, kaddr&^3, 4)
}

func (s *State) invalidateStore(owner *MemMap, kaddr, length uint32) {
	if owner.isRWX() {
		s.Invalidate(kaddr, length)
	}
}

func (s *State) segfault(addr uint32) {
	s.ExitFlags |= ExitSegfault
	s.logger.Printf("recompiler: segmentation fault in recompiled code: invalid load/store at address 0x%08x", addr)
}

func readU16(b []byte, offset uint32) uint16 {
	return uint16(b[offset])<<8 | uint16(b[offset+1])
}

func writeU16(b []byte, offset uint32, v uint16) {
	b[offset] = byte(v >> 8)
	b[offset+1] = byte(v)
}

func readU32(b []byte, offset uint32) uint32 {
	return uint32(b[offset])<<24 | uint32(b[offset+1])<<16 | uint32(b[offset+2])<<8 | uint32(b[offset+3])
}

func writeU32(b []byte, offset uint32, v uint32) {
	b[offset] = byte(v >> 24)
	b[offset+1] = byte(v >> 16)
	b[offset+2] = byte(v >> 8)
	b[offset+3] = byte(v)
}
