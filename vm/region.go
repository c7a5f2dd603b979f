package vm

import (
	"github.com/soxsx/oskernel2023-bitethedisk/defs"
	"github.com/soxsx/oskernel2023-bitethedisk/mem"
	"github.com/soxsx/oskernel2023-bitethedisk/util"
)

// the ordered set of a process's map areas: a sorted, non-overlapping
// vector of Area_t. lookups binary-search it; inserts coalesce with the
// neighbors when kind, fill, permissions, and (for file areas) the byte
// offsets line up. fork duplicates the vector; the page tables keep track
// of residency, never this set.
type Vmregion_t struct {
	areas  []*Area_t
	_pglen int
	Novma  uint
}

// index of the first area whose end is above pgn; len(areas) if none
func (m *Vmregion_t) searchidx(pgn uintptr) int {
	lo, hi := 0, len(m.areas)
	for lo < hi {
		mid := (lo + hi) / 2
		if m.areas[mid].End() <= pgn {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

func (m *Vmregion_t) Lookup(va uintptr) (*Area_t, bool) {
	pgn := Vpn(va)
	idx := m.searchidx(pgn)
	if idx < len(m.areas) && m.areas[idx].Contains(pgn) {
		return m.areas[idx], true
	}
	return nil, false
}

// can hi be glued onto the end of lo?
func mergeable(lo, hi *Area_t) bool {
	if lo.End() != hi.Pgn {
		return false
	}
	if lo.Kind != hi.Kind || lo.Fill != hi.Fill || lo.Perms != hi.Perms {
		return false
	}
	if lo.Fill == FFILE {
		if lo.file.fops != hi.file.fops || lo.file.shared != hi.file.shared {
			return false
		}
		if lo.fileoff(lo.End()) != hi.file.foff {
			return false
		}
	}
	return true
}

// insert a new area, coalescing with whichever neighbors will take it. the
// range must not overlap an existing area.
func (m *Vmregion_t) Insert(area *Area_t) {
	m._pglen += area.Pglen
	idx := m.searchidx(area.Pgn)
	if idx < len(m.areas) && m.areas[idx].Pgn < area.End() {
		panic("area overlap")
	}
	var prev *Area_t
	if idx > 0 {
		prev = m.areas[idx-1]
	}
	var next *Area_t
	if idx < len(m.areas) {
		next = m.areas[idx]
	}

	if prev != nil && mergeable(prev, area) {
		prev.Pglen += area.Pglen
		// the grown area may now touch its upper neighbor too
		if next != nil && mergeable(prev, next) {
			prev.Pglen += next.Pglen
			m.areas = append(m.areas[:idx], m.areas[idx+1:]...)
			m.Novma--
		}
		return
	}
	if next != nil && mergeable(area, next) {
		next.Pgn = area.Pgn
		next.Pglen += area.Pglen
		if next.Fill == FFILE {
			next.file.foff = area.file.foff
		}
		return
	}
	m.areas = append(m.areas, nil)
	copy(m.areas[idx+1:], m.areas[idx:])
	m.areas[idx] = area
	m.Novma++
}

// drop [start, start+len); the area holding the range may be deleted,
// trimmed, or split in two. splitting can fail against the vma ceiling.
func (m *Vmregion_t) Remove(start, length int, novma uint) defs.Err_t {
	pgn := uintptr(start) >> PGSHIFT
	pglen := util.Roundup(length, mem.PGSIZE) >> PGSHIFT
	idx := m.searchidx(pgn)
	if idx >= len(m.areas) || !m.areas[idx].Contains(pgn) {
		panic("addr not mapped")
	}
	a := m.areas[idx]
	m._pglen -= pglen
	end := pgn + uintptr(pglen)

	// the whole area
	if a.Pgn == pgn && a.End() == end {
		m.areas = append(m.areas[:idx], m.areas[idx+1:]...)
		m.Novma--
		return 0
	}
	// trim the head
	if a.Pgn == pgn {
		a.Pgn = end
		a.Pglen -= pglen
		if a.Fill == FFILE {
			a.file.foff += pglen << PGSHIFT
		}
		return 0
	}
	// trim the tail
	if a.End() == end {
		a.Pglen -= pglen
		return 0
	}
	// punch a hole in the middle
	if m.Novma >= novma {
		return -defs.ENOMEM
	}
	upper := &Area_t{}
	*upper = *a
	upper.Pgn = end
	upper.Pglen = int(a.End() - end)
	if upper.Fill == FFILE {
		upper.file.foff = a.fileoff(end)
	}
	a.Pglen = int(pgn - a.Pgn)
	m.areas = append(m.areas, nil)
	copy(m.areas[idx+2:], m.areas[idx+1:])
	m.areas[idx+1] = upper
	m.Novma++
	return 0
}

// a gap of at least len bytes at or above minva, below the trap contexts;
// (0, 0) when the user half cannot fit the request.
func (m *Vmregion_t) Empty(minva, len uintptr) (uintptr, uintptr) {
	pglen := uintptr(util.Roundup(int(len), mem.PGSIZE) >> PGSHIFT)
	cur := Vpn(minva)
	top := Vpn(mem.TRAP_CONTEXT)
	for _, a := range m.areas {
		if a.End() <= cur {
			continue
		}
		if a.Pgn >= cur+pglen {
			break
		}
		cur = a.End()
	}
	if cur+pglen > top {
		return 0, 0
	}
	return cur << PGSHIFT, (top - cur) << PGSHIFT
}

// duplicate the set for fork; the areas themselves are copied, the backing
// file handles are shared.
func (m *Vmregion_t) Copy() Vmregion_t {
	ret := Vmregion_t{_pglen: m._pglen, Novma: m.Novma}
	ret.areas = make([]*Area_t, len(m.areas))
	for i, a := range m.areas {
		na := &Area_t{}
		*na = *a
		ret.areas[i] = na
	}
	return ret
}

// ascending by address
func (m *Vmregion_t) Iter(f func(*Area_t)) {
	for _, a := range m.areas {
		f(a)
	}
}

func (m *Vmregion_t) Pglen() int {
	return m._pglen
}

func (m *Vmregion_t) Clear() {
	m.areas = nil
	m._pglen = 0
	m.Novma = 0
}
