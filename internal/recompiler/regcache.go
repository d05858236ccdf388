package recompiler

// RegCache is the guest-to-host register allocator a codegen backend
// consults while emitting a block. It tracks which guest registers are
// presently bound to host registers so consecutive instructions touching
// the same guest register don't reload it.
type RegCache interface {
	// Reset clears all bindings; called at the start of every block.
	Reset()
}

// directRegCache is the default RegCache: it never binds a guest register
// to a host register, so every access goes straight through state.Regs.
// This keeps the default emitter backend-agnostic at the cost of real
// register-caching at this layer; a host wanting host-register allocation
// supplies its own RegCache and a codegen backend that consults it.
type directRegCache struct{}

func (directRegCache) Reset() {}
