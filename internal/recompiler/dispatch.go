package recompiler

// getNextBlock resolves pc to a cached, up-to-date block, compiling and
// registering one if needed. It is the single entry point both Execute's
// initial lookup and the dispatcher wrapper's cache-miss callback use.
func (s *State) getNextBlock(pc uint32) (*Block, error) {
	if existing := s.cache.find(pc); existing != nil {
		if !s.blockOutdated(existing) {
			return existing, nil
		}
		s.cache.unregister(existing)
		freeBlock(existing)
	}

	b, err := s.compileBlock(pc)
	if err != nil {
		return nil, err
	}
	if err := s.cache.register(b); err != nil {
		freeBlock(b)
		return nil, err
	}
	return b, nil
}

// ResolveBlock exports getNextBlock for a host codegen backend's own
// dispatcher wrapper (e.g. internal/codegen's amd64 backend, whose wrapper
// calls back into Go for cache-miss resolution rather than reimplementing
// compileBlock in assembly).
func (s *State) ResolveBlock(pc uint32) (*Block, error) {
	return s.getNextBlock(pc)
}
