package recompiler

import "testing"

func encodeR(funct uint32, rs, rt, rd, shamt uint8) uint32 {
	return uint32(rs&0x1f)<<21 | uint32(rt&0x1f)<<16 | uint32(rd&0x1f)<<11 |
		uint32(shamt&0x1f)<<6 | funct&0x3f
}

func encodeI(opcode uint32, rs, rt uint8, imm uint16) uint32 {
	return opcode<<26 | uint32(rs&0x1f)<<21 | uint32(rt&0x1f)<<16 | uint32(imm)
}

func encodeJ(opcode uint32, target uint32) uint32 {
	return opcode<<26 | (target>>2)&0x03ffffff
}

func TestDecodeOneALU(t *testing.T) {
	// ADD $t0, $t1, $t2 (SPECIAL, funct 0x20)
	raw := encodeR(0x20, 9, 10, 8, 0)
	op := decodeOne(raw, 0x1000)
	if op.Kind != OpALU {
		t.Errorf("ADD decoded as %v, want OpALU", op.Kind)
	}
	if op.Rs != 9 || op.Rt != 10 || op.Rd != 8 {
		t.Errorf("ADD fields = rs=%d rt=%d rd=%d, want 9/10/8", op.Rs, op.Rt, op.Rd)
	}
}

func TestDecodeOneJR(t *testing.T) {
	raw := encodeR(0x08, 31, 0, 0, 0) // JR $ra
	op := decodeOne(raw, 0x1000)
	if op.Kind != OpJR {
		t.Errorf("JR decoded as %v, want OpJR", op.Kind)
	}
	if op.Rs != 31 {
		t.Errorf("JR rs = %d, want 31", op.Rs)
	}
}

func TestDecodeOneJALR(t *testing.T) {
	raw := encodeR(0x09, 8, 0, 31, 0) // JALR $ra, $t0
	op := decodeOne(raw, 0x1000)
	if op.Kind != OpJALR {
		t.Errorf("JALR decoded as %v, want OpJALR", op.Kind)
	}
}

func TestDecodeOneBreak(t *testing.T) {
	raw := encodeR(0x0d, 0, 0, 0, 0)
	op := decodeOne(raw, 0x1000)
	if op.Kind != OpBreak {
		t.Errorf("BREAK decoded as %v, want OpBreak", op.Kind)
	}
}

func TestDecodeOneRegimmBranchTarget(t *testing.T) {
	// BLTZ $t0, +4 words (REGIMM, rt=0x00)
	raw := encodeI(0x01, 8, 0x00, 4)
	pc := uint32(0x2000)
	op := decodeOne(raw, pc)
	if op.Kind != OpBranch {
		t.Errorf("BLTZ decoded as %v, want OpBranch", op.Kind)
	}
	want := pc + 4 + (4 << 2)
	if op.Target != want {
		t.Errorf("BLTZ target = 0x%08x, want 0x%08x", op.Target, want)
	}

	// BGEZ $t0, -2 words (rt=0x01), negative immediate
	raw = encodeI(0x01, 8, 0x01, 0xfffe) // imm 0xfffe is -2 as int16
	op = decodeOne(raw, pc)
	if op.Kind != OpBranch {
		t.Errorf("BGEZ decoded as %v, want OpBranch", op.Kind)
	}
	want = uint32(int32(pc) + 4 + (int32(-2) << 2))
	if op.Target != want {
		t.Errorf("BGEZ target = 0x%08x, want 0x%08x", op.Target, want)
	}
}

func TestDecodeOneBranchFamily(t *testing.T) {
	pc := uint32(0x4000)
	cases := []struct {
		opcode uint32
		name   string
	}{
		{0x04, "BEQ"}, {0x05, "BNE"}, {0x06, "BLEZ"}, {0x07, "BGTZ"},
	}
	for _, c := range cases {
		raw := encodeI(c.opcode, 8, 9, 10)
		op := decodeOne(raw, pc)
		if op.Kind != OpBranch {
			t.Errorf("%s decoded as %v, want OpBranch", c.name, op.Kind)
		}
		want := pc + 4 + (10 << 2)
		if op.Target != want {
			t.Errorf("%s target = 0x%08x, want 0x%08x", c.name, op.Target, want)
		}
	}
}

func TestDecodeOneJAndJAL(t *testing.T) {
	pc := uint32(0x80010000)
	target := uint32(0x80020004)

	raw := encodeJ(0x02, target)
	op := decodeOne(raw, pc)
	if op.Kind != OpJ {
		t.Errorf("J decoded as %v, want OpJ", op.Kind)
	}
	if op.Target != target {
		t.Errorf("J target = 0x%08x, want 0x%08x", op.Target, target)
	}

	raw = encodeJ(0x03, target)
	op = decodeOne(raw, pc)
	if op.Kind != OpJAL {
		t.Errorf("JAL decoded as %v, want OpJAL", op.Kind)
	}
	if op.Target != target {
		t.Errorf("JAL target = 0x%08x, want 0x%08x", op.Target, target)
	}
}

func TestDecodeOneCop0(t *testing.T) {
	raw := encodeI(0x10, 0x00, 8, 0) // MFC0 $t0, $0
	op := decodeOne(raw, 0x1000)
	if op.Kind != OpMFC0 {
		t.Errorf("MFC0 decoded as %v, want OpMFC0", op.Kind)
	}

	raw = encodeI(0x10, 0x04, 8, 0) // MTC0 $t0, $0
	op = decodeOne(raw, 0x1000)
	if op.Kind != OpMTC0 {
		t.Errorf("MTC0 decoded as %v, want OpMTC0", op.Kind)
	}
}

func TestDecodeOneLoadStoreFamily(t *testing.T) {
	cases := []struct {
		opcode uint32
		want   OpKind
	}{
		{0x20, OpLB}, {0x21, OpLH}, {0x22, OpLWL}, {0x23, OpLW},
		{0x24, OpLBU}, {0x25, OpLHU}, {0x26, OpLWR},
		{0x28, OpSB}, {0x29, OpSH}, {0x2a, OpSWL}, {0x2b, OpSW}, {0x2e, OpSWR},
		{0x32, OpLWC2}, {0x3a, OpSWC2},
	}
	for _, c := range cases {
		raw := encodeI(c.opcode, 8, 9, 0)
		op := decodeOne(raw, 0x1000)
		if op.Kind != c.want {
			t.Errorf("opcode 0x%02x decoded as %v, want %v", c.opcode, op.Kind, c.want)
		}
	}
}

func rawBytes(words ...uint32) []byte {
	b := make([]byte, len(words)*4)
	for i, w := range words {
		writeU32(b, uint32(i*4), w)
	}
	return b
}

func TestDisassembleBranchIncludesDelaySlot(t *testing.T) {
	code := rawBytes(
		encodeI(0x04, 8, 9, 2), // BEQ $t0, $t1, +2
		encodeR(0x20, 0, 0, 0, 0), // delay slot: ADD $0,$0,$0
		encodeR(0x20, 0, 0, 0, 0), // never reached by disassembly
	)
	var d defaultDisassembler
	ops, err := d.Disassemble(code, 0, 3)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("len(ops) = %d, want 2", len(ops))
	}
	if ops[0].Kind != OpBranch {
		t.Errorf("ops[0].Kind = %v, want OpBranch", ops[0].Kind)
	}
	if !ops[1].IsDelaySlot() {
		t.Errorf("ops[1] should carry FlagDelaySlot")
	}
	if ops[1].Kind != OpALU {
		t.Errorf("ops[1].Kind = %v, want OpALU", ops[1].Kind)
	}
}

func TestDisassembleBreakHasNoDelaySlot(t *testing.T) {
	code := rawBytes(
		encodeR(0x20, 0, 0, 0, 0), // ADD $0,$0,$0
		encodeR(0x0d, 0, 0, 0, 0), // BREAK
		encodeR(0x20, 0, 0, 0, 0), // must not be included
	)
	var d defaultDisassembler
	ops, err := d.Disassemble(code, 0, 3)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("len(ops) = %d, want 2", len(ops))
	}
	if ops[1].Kind != OpBreak {
		t.Errorf("ops[1].Kind = %v, want OpBreak", ops[1].Kind)
	}
	if ops[1].IsDelaySlot() {
		t.Errorf("BREAK must not be flagged as a delay slot")
	}
}

func TestDisassembleStopsAtMaxWords(t *testing.T) {
	code := rawBytes(
		encodeR(0x20, 0, 0, 0, 0),
		encodeR(0x20, 0, 0, 0, 0),
		encodeR(0x20, 0, 0, 0, 0),
		encodeR(0x20, 0, 0, 0, 0),
	)
	var d defaultDisassembler
	ops, err := d.Disassemble(code, 0, 2)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("len(ops) = %d, want 2 (bounded by maxWords)", len(ops))
	}
}

func TestDisassembleStopsAtEndOfBuffer(t *testing.T) {
	code := rawBytes(encodeR(0x20, 0, 0, 0, 0))
	var d defaultDisassembler
	ops, err := d.Disassemble(code, 0, 10)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("len(ops) = %d, want 1 (bounded by buffer length)", len(ops))
	}
}
