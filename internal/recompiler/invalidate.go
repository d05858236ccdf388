package recompiler

// defaultPageShift picks a page granularity for the invalidation table.
// The reference implementation notes "TODO: calculate the best page
// shift" and settles on a 512-byte page (shift 9); no specific granularity
// is mandated, so this repo keeps that value.
const defaultPageShift = 9

// invalidationTable is the per-RWX-map array backing self-modifying-code
// detection: one cell per guest page, storing the current_cycle timestamp
// of the last write to that page.
type invalidationTable struct {
	pageShift uint
	cells     []uint32
}

func newInvalidationTable(length uint32, pageShift uint) *invalidationTable {
	pages := (length >> pageShift) + 1
	return &invalidationTable{
		pageShift: pageShift,
		cells:     make([]uint32, pages),
	}
}

func (t *invalidationTable) pageOf(offset uint32) uint32 {
	return offset >> t.pageShift
}

// Invalidate unsegments addr, locates its owning RWX map, and stamps every
// page in [kaddr, kaddr+len) with the current cycle. A write outside any
// RWX map is a no-op: ROM regions cannot self-modify.
func (s *State) Invalidate(addr, length uint32) {
	kaddr := kunseg(addr)
	for i := range s.maps {
		m := &s.maps[i]
		if !m.isRWX() {
			continue
		}
		if kaddr < m.PC || kaddr >= m.PC+m.Length {
			continue
		}
		if length == 0 {
			return
		}
		tbl := s.invTables[i]
		offset := kaddr - m.PC
		endPage := tbl.pageOf(offset + length - 1)
		for page := tbl.pageOf(offset); page <= endPage && int(page) < len(tbl.cells); page++ {
			tbl.cells[page] = s.CurrentCycle
		}
		return
	}
}

// blockOutdated checks staleness two ways: the per-page timestamp table is
// a fast negative filter, and a fresh content hash is the authority. A
// block is outdated only when the filter shows a write after its compile
// cycle AND its hash no longer matches; either gate passing keeps it.
func (s *State) blockOutdated(b *Block) bool {
	if b.Map == nil {
		return false
	}
	if b.Map.isRWX() {
		tbl := s.invTableFor(b.Map)
		if tbl != nil {
			startPage := tbl.pageOf(b.KunsegPC - b.Map.PC)
			endOffset := (b.KunsegPC - b.Map.PC) + b.Length*4
			endPage := tbl.pageOf(endOffset)
			stale := false
			for p := startPage; p <= endPage && int(p) < len(tbl.cells); p++ {
				if tbl.cells[p] > b.CompileCycle {
					stale = true
					break
				}
			}
			if !stale {
				return false
			}
		}
	}
	return b.Hash != s.hashBlockCode(b)
}

func (s *State) invTableFor(m *MemMap) *invalidationTable {
	for i := range s.maps {
		if &s.maps[i] == m {
			return s.invTables[i]
		}
	}
	return nil
}
