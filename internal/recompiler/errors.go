package recompiler

import "errors"

var (
	// ErrNoMap is returned when an address cannot be resolved to any
	// configured memory map.
	ErrNoMap = errors.New("recompiler: no memory map covers address")
	// ErrNoBacking is returned when compile_block resolves a map with no
	// concrete host buffer to read guest code from.
	ErrNoBacking = errors.New("recompiler: map has no executable backing")
	// ErrEmptyBlock is returned when the disassembler produces zero
	// opcodes for a requested PC.
	ErrEmptyBlock = errors.New("recompiler: disassembly produced an empty block")
	// ErrBlockExists is returned by the block cache when register is
	// asked to install a PC that is already cached.
	ErrBlockExists = errors.New("recompiler: block already registered")
)
