package recompiler

import "math"

// Execute runs guest code starting at state.NextPC until cycleBudget guest
// cycles (0 uses the budget supplied to Init) have elapsed, stopping early
// on any exit condition, and returns the exit flags raised. The budget is
// checked only between blocks, so the last block may run past it.
func (s *State) Execute(cycleBudget uint32) (ExitFlags, error) {
	if cycleBudget == 0 {
		cycleBudget = s.defaultBudget
	}
	if cycleBudget > math.MaxUint32-s.CurrentCycle {
		s.TargetCycle = math.MaxUint32
	} else {
		s.TargetCycle = s.CurrentCycle + cycleBudget
	}
	s.ExitFlags = ExitNormal

	first, err := s.getNextBlock(s.NextPC)
	if err != nil {
		s.ExitFlags |= ExitSegfault
		return s.ExitFlags, err
	}
	s.Current = first

	s.wrapperFunc.Invoke(s)
	return s.ExitFlags, nil
}

// ExecuteOne runs exactly one compiled block and returns the exit flags
// raised; useful for single-step debugging front ends.
func (s *State) ExecuteOne() (ExitFlags, error) {
	s.ExitFlags = ExitNormal

	b, err := s.getNextBlock(s.NextPC)
	if err != nil {
		s.ExitFlags |= ExitSegfault
		return s.ExitFlags, err
	}
	s.Current = b

	cycles := b.Function.Invoke(s)
	s.CurrentCycle += cycles
	return s.ExitFlags, nil
}

// SetExitFlags ORs extra bits into the exit flags. Within this package only
// ExitSegfault and the default emitter's BREAK (ExitHost0) are raised; the
// rest of the host-reserved bits are left to the host.
func (s *State) SetExitFlags(f ExitFlags) { s.ExitFlags |= f }

// ClearExitFlags resets the exit flags to normal, typically before resuming
// Execute after the host has handled a raised condition.
func (s *State) ClearExitFlags() { s.ExitFlags = ExitNormal }

// CurrentCycleCount returns the running guest cycle counter.
func (s *State) CurrentCycleCount() uint32 { return s.CurrentCycle }

// ResetCycleCount zeroes the running guest cycle counter, independent of
// any compiled block's CompileCycle bookkeeping.
func (s *State) ResetCycleCount() { s.CurrentCycle = 0 }

// RegisterSnapshot holds the 34 guest integer registers: the 32
// general-purpose registers followed by HI and LO.
type RegisterSnapshot [34]uint32

// DumpRegisters returns a snapshot of all 34 guest integer registers (the
// 32 general-purpose registers plus HI and LO), used by debugging front
// ends and savestates.
func (s *State) DumpRegisters() RegisterSnapshot {
	var snap RegisterSnapshot
	copy(snap[:32], s.Regs[:])
	snap[32] = s.HI
	snap[33] = s.LO
	return snap
}

// RestoreRegisters overwrites the guest register file, including HI and
// LO, from a prior DumpRegisters snapshot.
func (s *State) RestoreRegisters(snap RegisterSnapshot) {
	copy(s.Regs[:], snap[:32])
	s.HI = snap[32]
	s.LO = snap[33]
}
