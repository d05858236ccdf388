package recompiler

import (
	"github.com/cespare/xxhash/v2"
)

// HostFunc is a compiled block's entrypoint. The amd64 backend
// (internal/codegen) implements it as a thin wrapper around a raw host code
// pointer invoked through the platform calling-convention trampoline; the
// closure backend (the default, used by tests and as a portable fallback)
// implements it directly as a Go function.
type HostFunc interface {
	// Invoke runs the compiled block against state and returns the number
	// of guest integer cycles it consumed.
	Invoke(state *State) uint32
}

// Block is one compiled, cached translation unit.
type Block struct {
	PC         uint32
	KunsegPC   uint32
	state      *State
	Map        *MemMap
	Code       []byte // the guest code bytes this block was compiled from
	Opcodes    []Opcode
	Function   HostFunc
	session    Session // owns the emitted code buffer; a no-op closureSession for the closure backend
	Hash       uint64
	CompileCycle uint32 // current_cycle at compile time, for the invalidation fast filter
	Cycles     uint32
	Length     uint32 // block length in 32-bit words
}

// hashBlockCode computes the fast deterministic digest over a block's
// guest code bytes, used as the self-modifying-code authority check.
// xxhash is chosen for speed over a cryptographic hash.
func (s *State) hashBlockCode(b *Block) uint64 {
	if b.Map == nil {
		return 0
	}
	return hashCodeBytes(b.Code, b.Length)
}

func hashCodeBytes(code []byte, lengthWords uint32) uint64 {
	n := int(lengthWords) * 4
	if n > len(code) {
		n = len(code)
	}
	return xxhash.Sum64(code[:n])
}

// freeBlock releases a block's opcode list and emitted-code session.
func freeBlock(b *Block) {
	if b == nil {
		return
	}
	if b.session != nil {
		b.session.Close()
		b.session = nil
	}
	b.Opcodes = nil
	b.Function = nil
}
