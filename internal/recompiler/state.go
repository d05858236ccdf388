package recompiler

import (
	"fmt"
	"io"
	"log"
)

// Options configures a new State. This is an embeddable library with no
// CLI of its own, so every external collaborator is supplied by the host;
// a nil field other than CopOps falls back to this repo's default
// implementation. A nil CopOps has no default: coprocessor transfers then
// do nothing.
type Options struct {
	Maps          []MemMap
	CopOps        CopOps
	CodeGenerator CodeGenerator // defaults to the portable closure backend
	Disassembler  Disassembler  // defaults to defaultDisassembler
	Optimizer     Optimizer     // defaults to NopOptimizer
	RegCache      RegCache      // defaults to directRegCache
	Emitter       Emitter       // defaults to defaultEmitter
	Log           io.Writer     // defaults to io.Discard
	CycleBudget   uint32        // Execute's default target_cycle delta when 0 is passed
}

// State is the machine: the guest register file, memory map table, block
// cache, and every pluggable collaborator.
type State struct {
	Regs   [32]uint32
	HI, LO uint32

	NextPC       uint32
	CurrentCycle uint32
	TargetCycle  uint32
	ExitFlags    ExitFlags

	Current *Block

	maps      []MemMap
	invTables []*invalidationTable
	cache     *blockCache

	CopOps       CopOps
	codeGen      CodeGenerator
	disassembler Disassembler
	optimizer    Optimizer
	RegCache     RegCache
	emitter      Emitter

	wrapperFunc    HostFunc
	wrapperSession Session

	defaultBudget uint32
	logger        *log.Logger
}

// Init builds a State from opts. The memory map table is copied; callers
// may reuse or discard the slice they passed in.
func Init(opts Options) (*State, error) {
	if len(opts.Maps) == 0 {
		return nil, fmt.Errorf("recompiler: Init requires at least one memory map")
	}

	logOut := opts.Log
	if logOut == nil {
		logOut = io.Discard
	}

	s := &State{
		NextPC:        opts.Maps[0].PC,
		maps:          append([]MemMap(nil), opts.Maps...),
		cache:         newBlockCache(),
		CopOps:        opts.CopOps,
		codeGen:       opts.CodeGenerator,
		disassembler:  opts.Disassembler,
		optimizer:     opts.Optimizer,
		RegCache:      opts.RegCache,
		emitter:       opts.Emitter,
		defaultBudget: opts.CycleBudget,
		logger:        log.New(logOut, "recompiler: ", log.LstdFlags),
	}
	if s.codeGen == nil {
		s.codeGen = newClosureCodeGenerator()
	}
	if s.disassembler == nil {
		s.disassembler = defaultDisassembler{}
	}
	if s.optimizer == nil {
		s.optimizer = NopOptimizer{}
	}
	if s.RegCache == nil {
		s.RegCache = directRegCache{}
	}
	if s.emitter == nil {
		s.emitter = defaultEmitter{}
	}
	if s.defaultBudget == 0 {
		s.defaultBudget = 1 << 20
	}

	s.invTables = make([]*invalidationTable, len(s.maps))
	for i := range s.maps {
		if s.maps[i].isRWX() {
			s.invTables[i] = newInvalidationTable(s.maps[i].Length, defaultPageShift)
		}
	}

	wrapperFunc, wrapperSession, err := s.codeGen.CompileWrapper(s)
	if err != nil {
		return nil, fmt.Errorf("recompiler: compiling dispatcher wrapper: %w", err)
	}
	s.wrapperFunc = wrapperFunc
	s.wrapperSession = wrapperSession

	return s, nil
}

// Destroy releases every compiled block and the dispatcher wrapper.
func (s *State) Destroy() {
	for _, b := range s.cache.dropAll() {
		freeBlock(b)
	}
	if s.wrapperSession != nil {
		s.wrapperSession.Close()
		s.wrapperSession = nil
	}
	s.wrapperFunc = nil
}

func (s *State) reg(i uint8) uint32 { return s.Regs[i] }

func (s *State) setReg(i uint8, v uint32) {
	if i == 0 {
		return
	}
	s.Regs[i] = v
}
