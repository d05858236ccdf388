package recompiler

import "psxrec/internal/utils"

// signExtend8 sign-extends an 8-bit loaded byte to a 32-bit word, per the
// MIPS-I LB instruction's semantics.
func signExtend8(v uint8) uint32 {
	return utils.SignExtend(uint32(v), 8)
}

// signExtend16 sign-extends a 16-bit loaded halfword, per the MIPS-I LH
// instruction's semantics.
func signExtend16(v uint16) uint32 {
	return utils.SignExtend(uint32(v), 16)
}

// genMask32 returns a mask with bits [h:l] set (inclusive, h >= l), mirroring
// the GENMASK(h, l) macro used throughout the reference rw-callbacks.
func genMask32(h, l uint) uint32 {
	if h >= 31 {
		return ^uint32(0) << l
	}
	return (^uint32(0) << l) & (^uint32(0) >> (31 - h))
}
