package vm

import "testing"

import "github.com/soxsx/oskernel2023-bitethedisk/mem"

func TestPteEncode(t *testing.T) {
	pa := Pa_t(0x8020_3000)
	pte := Mkpte(pa, PTE_R|PTE_W|PTE_U) | PTE_V
	if !pte.Valid() {
		t.Fatalf("pte invalid")
	}
	if pte.Pa() != pa {
		t.Fatalf("pa %#x", pte.Pa())
	}
	if pte.Flags()&(PTE_R|PTE_W|PTE_U) != PTE_R|PTE_W|PTE_U {
		t.Fatalf("flags %#x", pte.Flags())
	}
	if pte.Cow() {
		t.Fatalf("spurious cow")
	}
	pte |= PTE_COW
	if !pte.Cow() || pte.Pa() != pa {
		t.Fatalf("cow bit clobbered pa")
	}
	if !pte.Leaf() {
		t.Fatalf("leaf")
	}
	mid := Mkpte(pa, 0) | PTE_V
	if mid.Leaf() {
		t.Fatalf("non-leaf")
	}
}

func mkarea(pgn uintptr, pglen int, perms Pte_t, fill fill_t) *Area_t {
	return &Area_t{Pgn: pgn, Pglen: pglen, Perms: perms, Kind: MFRAMED, Fill: fill}
}

func TestRegionInsertLookup(t *testing.T) {
	var m Vmregion_t
	m.Insert(mkarea(0x10, 4, PTE_R|PTE_W, FLAZY))
	m.Insert(mkarea(0x20, 8, PTE_R, FLAZY))

	a, ok := m.Lookup(0x12 << PGSHIFT)
	if !ok || a.Pgn != 0x10 {
		t.Fatalf("lookup inside")
	}
	if _, ok := m.Lookup(0x14 << PGSHIFT); ok {
		t.Fatalf("lookup in hole")
	}
	if _, ok := m.Lookup(0x27 << PGSHIFT); !ok {
		t.Fatalf("lookup second")
	}
	if m.Pglen() != 12 {
		t.Fatalf("pglen %v", m.Pglen())
	}
	if m.Novma != 2 {
		t.Fatalf("novma %v", m.Novma)
	}
}

func TestRegionMerge(t *testing.T) {
	var m Vmregion_t
	m.Insert(mkarea(0x10, 4, PTE_R|PTE_W, FLAZY))
	m.Insert(mkarea(0x14, 4, PTE_R|PTE_W, FLAZY))
	if m.Novma != 1 {
		t.Fatalf("adjacent equal areas must merge: novma %v", m.Novma)
	}
	a, ok := m.Lookup(0x16 << PGSHIFT)
	if !ok || a.Pgn != 0x10 || a.Pglen != 8 {
		t.Fatalf("merged area %v %v", a.Pgn, a.Pglen)
	}
	// different perms must not merge
	m.Insert(mkarea(0x18, 2, PTE_R, FLAZY))
	if m.Novma != 2 {
		t.Fatalf("unlike areas merged")
	}
}

func TestRegionRemoveSplit(t *testing.T) {
	var m Vmregion_t
	m.Insert(mkarea(0x10, 8, PTE_R|PTE_W, FLAZY))

	// punch a hole in the middle: must split into two nodes
	if err := m.Remove(0x12<<PGSHIFT, 2*mem.PGSIZE, 100); err != 0 {
		t.Fatalf("remove err %v", err)
	}
	if m.Novma != 2 {
		t.Fatalf("novma %v after split", m.Novma)
	}
	if _, ok := m.Lookup(0x12 << PGSHIFT); ok {
		t.Fatalf("hole still mapped")
	}
	a, ok := m.Lookup(0x10 << PGSHIFT)
	if !ok || a.Pglen != 2 {
		t.Fatalf("low half wrong")
	}
	a, ok = m.Lookup(0x14 << PGSHIFT)
	if !ok || a.Pgn != 0x14 || a.Pglen != 4 {
		t.Fatalf("high half wrong")
	}

	// trim the head of the high half
	if err := m.Remove(0x14<<PGSHIFT, mem.PGSIZE, 100); err != 0 {
		t.Fatalf("remove err")
	}
	a, ok = m.Lookup(0x15 << PGSHIFT)
	if !ok || a.Pgn != 0x15 || a.Pglen != 3 {
		t.Fatalf("head trim wrong")
	}
}

func TestRegionEmpty(t *testing.T) {
	var m Vmregion_t
	m.Insert(mkarea(0x100, 16, PTE_R|PTE_W, FLAZY))
	start, l := m.Empty(0x100<<PGSHIFT, 4*uintptr(mem.PGSIZE))
	if start < 0x110<<PGSHIFT {
		t.Fatalf("hole overlaps mapping: %#x", start)
	}
	if l < 4*uintptr(mem.PGSIZE) {
		t.Fatalf("hole too small")
	}
	// filling the hole start moves it
	m.Insert(mkarea(Vpn(start), 4, PTE_R|PTE_W, FLAZY))
	nstart, _ := m.Empty(start, 4*uintptr(mem.PGSIZE))
	if nstart < start+4*uintptr(mem.PGSIZE) {
		t.Fatalf("hole not advanced: %#x", nstart)
	}
}

func TestFileAreaOffsets(t *testing.T) {
	var m Vmregion_t
	a := mkarea(0x10, 4, PTE_R, FLAZY)
	a.Fill = FFILE
	a.file.foff = 0x2000
	a.file.flen = 4 * mem.PGSIZE
	m.Insert(a)

	got, ok := m.Lookup(0x10 << PGSHIFT)
	if !ok {
		t.Fatalf("lookup")
	}
	if off := got.fileoff(0x12); off != 0x2000+2*mem.PGSIZE {
		t.Fatalf("fileoff %#x", off)
	}
	// removing the head advances the file offset
	if err := m.Remove(0x10<<PGSHIFT, mem.PGSIZE, 100); err != 0 {
		t.Fatalf("remove")
	}
	got, ok = m.Lookup(0x11 << PGSHIFT)
	if !ok || got.file.foff != 0x2000+mem.PGSIZE {
		t.Fatalf("foff %#x", got.file.foff)
	}
}
