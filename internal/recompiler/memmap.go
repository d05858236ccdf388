package recompiler

// MapFlag bits on a MemMap entry.
type MapFlag uint32

const (
	// MapRWX marks a region as containing executable guest code subject to
	// self-modifying-code tracking.
	MapRWX MapFlag = 1 << iota
)

// HWOps is the hardware/IO callback vtable a host attaches to a MemMap
// entry in place of a concrete host backing buffer. Widths are exact;
// sign extension is the RW engine's responsibility, never the callback's.
type HWOps interface {
	LB(state *State, op *Opcode, addr uint32) uint8
	LH(state *State, op *Opcode, addr uint32) uint16
	LW(state *State, op *Opcode, addr uint32) uint32
	SB(state *State, op *Opcode, addr uint32, data uint8)
	SH(state *State, op *Opcode, addr uint32, data uint16)
	SW(state *State, op *Opcode, addr uint32, data uint32)
}

// MemMap is one entry of the caller-supplied memory map table. Exactly one
// of {Address, Ops, MirrorOf} dominates resolution:
//   - Address is set: the map is backed by a concrete host byte buffer.
//   - Ops is set: loads/stores delegate to the HWOps vtable.
//   - MirrorOf >= 0: the map aliases another map, resolved by walking the
//     index chain. Mirrors reference by index rather than by pointer so
//     cloning or relocating the map table never leaves a dangling alias.
type MemMap struct {
	PC        uint32
	Length    uint32
	Address   []byte
	Ops       HWOps
	MirrorOf  int // index into state.maps, or -1 if this map has no mirror
	Flags     MapFlag
}

func (m *MemMap) isRWX() bool { return m.Flags&MapRWX != 0 }

// kunseg strips the MIPS kseg mapping, yielding the "physical" guest
// address used for map lookup, invalidation, and hashing.
func kunseg(addr uint32) uint32 {
	switch {
	case addr >= 0xa0000000:
		return addr - 0xa0000000
	case addr >= 0x80000000:
		return addr - 0x80000000
	default:
		return addr
	}
}

// findMap linearly scans the map array and returns the first entry whose
// [pc, pc+length) range contains kaddr, or nil. Maps are few (typically
// single digits) so linear scan beats an indexed structure.
func (s *State) findMap(kaddr uint32) *MemMap {
	for i := range s.maps {
		m := &s.maps[i]
		if kaddr >= m.PC && kaddr < m.PC+m.Length {
			return m
		}
	}
	return nil
}

// resolveMirror walks MirrorOf until it terminates at a concrete backing
// map. A cyclic mirror chain is a caller precondition violation, not a
// runtime error, so this never guards against one.
func (s *State) resolveMirror(m *MemMap) *MemMap {
	for m.MirrorOf >= 0 {
		m = &s.maps[m.MirrorOf]
	}
	return m
}

// hostOffset returns the offset of kaddr within the owning map's range.
// The offset is computed against the map that find_map returned (the
// "owner"), not the backing map a mirror chain resolves to, matching the
// reference rw-callbacks: offset is taken before the mirror walk.
func hostOffset(owner *MemMap, kaddr uint32) uint32 {
	return kaddr - owner.PC
}
