package recompiler

import "testing"

func TestKunseg(t *testing.T) {
	cases := []struct {
		addr uint32
		want uint32
	}{
		{0x00001000, 0x00001000},
		{0x80001000, 0x00001000},
		{0xa0001000, 0x00001000},
		{0x9fffffff, 0x1fffffff},
	}
	for _, c := range cases {
		if got := kunseg(c.addr); got != c.want {
			t.Errorf("kunseg(0x%08x) = 0x%08x, want 0x%08x", c.addr, got, c.want)
		}
	}
}

func TestKunsegIdempotent(t *testing.T) {
	for _, addr := range []uint32{0x00001234, 0x80001234, 0xa0001234} {
		once := kunseg(addr)
		twice := kunseg(once)
		if once != twice {
			t.Errorf("kunseg not idempotent for 0x%08x: 0x%08x then 0x%08x", addr, once, twice)
		}
	}
}

func TestFindMap(t *testing.T) {
	s := &State{maps: []MemMap{
		{PC: 0x00000000, Length: 0x1000},
		{PC: 0x1f000000, Length: 0x10},
	}}
	if m := s.findMap(0x500); m == nil || m.PC != 0 {
		t.Errorf("expected address 0x500 to resolve to the first map")
	}
	if m := s.findMap(0x1f000004); m == nil || m.PC != 0x1f000000 {
		t.Errorf("expected address 0x1f000004 to resolve to the second map")
	}
	if m := s.findMap(0x2000); m != nil {
		t.Errorf("expected address 0x2000 to resolve to no map, got %+v", m)
	}
}

func TestResolveMirror(t *testing.T) {
	s := &State{maps: []MemMap{
		{PC: 0, Length: 0x1000, Address: make([]byte, 0x1000), MirrorOf: -1},
		{PC: 0x1000, Length: 0x1000, MirrorOf: 0},
		{PC: 0x2000, Length: 0x1000, MirrorOf: 1},
	}}
	backing := s.resolveMirror(&s.maps[2])
	if backing != &s.maps[0] {
		t.Errorf("expected mirror chain to resolve to the first map")
	}
}

func TestHostOffset(t *testing.T) {
	m := &MemMap{PC: 0x1000, Length: 0x1000}
	if off := hostOffset(m, 0x1040); off != 0x40 {
		t.Errorf("hostOffset = 0x%x, want 0x40", off)
	}
}
