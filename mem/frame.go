package mem

import "sync"

// physical frame allocator: a bump pointer over [first, end) with a stack of
// recycled frame numbers, plus a 16-bit refcount per frame for COW sharing.
// a frame used by N mappings is freed only when the last one drops it.
type Physmem_t struct {
	sync.Mutex
	startn  uint32
	current uint32
	endn    uint32
	recycle []uint32
	refs    []uint16
}

var Physmem = &Physmem_t{}

func Phys_init(first Pa_t, end Pa_t) *Physmem_t {
	if first&PGOFFSET != 0 || end&PGOFFSET != 0 {
		panic("unaligned phys range")
	}
	phys := Physmem
	phys.startn = uint32(first >> PGSHIFT)
	phys.current = phys.startn
	phys.endn = uint32(end >> PGSHIFT)
	phys.refs = make([]uint16, phys.endn-phys.startn)
	phys.recycle = make([]uint32, 0, 64)
	return phys
}

func (phys *Physmem_t) _idx(p_pg Pa_t) uint32 {
	pgn := uint32(p_pg >> PGSHIFT)
	if pgn < phys.startn || pgn >= phys.endn {
		panic("frame outside allocator range")
	}
	return pgn - phys.startn
}

// returns the frame's physical address with refcount already 1, or false when the region
// is exhausted.
func (phys *Physmem_t) _alloc() (Pa_t, bool) {
	if l := len(phys.recycle); l > 0 {
		pgn := phys.recycle[l-1]
		phys.recycle = phys.recycle[:l-1]
		phys.refs[pgn-phys.startn] = 1
		return Pa_t(pgn) << PGSHIFT, true
	}
	if phys.current == phys.endn {
		return 0, false
	}
	pgn := phys.current
	phys.current++
	phys.refs[pgn-phys.startn] = 1
	return Pa_t(pgn) << PGSHIFT, true
}

func (phys *Physmem_t) Refpg_new_nozero() (Pa_t, bool) {
	phys.Lock()
	p_pg, ok := phys._alloc()
	phys.Unlock()
	return p_pg, ok
}

func (phys *Physmem_t) Refpg_new() (Pa_t, bool) {
	p_pg, ok := phys.Refpg_new_nozero()
	if !ok {
		return 0, false
	}
	Pg_zero(p_pg)
	return p_pg, true
}

// n physically contiguous frames for DMA buffers (virtio queues, block
// cache pages). served from the bump region only; the recycle stack gives
// no contiguity. each frame starts with refcount 1.
func (phys *Physmem_t) Refpg_new_contig(n int) (Pa_t, bool) {
	if n <= 0 {
		panic("bad contig count")
	}
	if n == 1 {
		return phys.Refpg_new_nozero()
	}
	phys.Lock()
	if phys.current+uint32(n) > phys.endn {
		phys.Unlock()
		return 0, false
	}
	first := phys.current
	phys.current += uint32(n)
	for i := uint32(0); i < uint32(n); i++ {
		phys.refs[first+i-phys.startn] = 1
	}
	phys.Unlock()
	return Pa_t(first) << PGSHIFT, true
}

func (phys *Physmem_t) Refcnt(p_pg Pa_t) int {
	phys.Lock()
	c := phys.refs[phys._idx(p_pg)]
	phys.Unlock()
	return int(c)
}

func (phys *Physmem_t) Refup(p_pg Pa_t) {
	phys.Lock()
	idx := phys._idx(p_pg)
	if phys.refs[idx] == 0 {
		panic("refup of free frame")
	}
	phys.refs[idx]++
	phys.Unlock()
}

// drops one reference; returns the new count. the frame goes back on the
// recycle stack when the count reaches 0.
func (phys *Physmem_t) Refdown(p_pg Pa_t) int {
	phys.Lock()
	idx := phys._idx(p_pg)
	if phys.refs[idx] == 0 {
		panic("refdown of free frame")
	}
	phys.refs[idx]--
	c := phys.refs[idx]
	if c == 0 {
		phys.recycle = append(phys.recycle, idx+phys.startn)
	}
	phys.Unlock()
	return int(c)
}

// (frames handed out and not yet freed, frames still available)
func (phys *Physmem_t) Pgcount() (int, int) {
	phys.Lock()
	used := int(phys.current-phys.startn) - len(phys.recycle)
	free := int(phys.endn-phys.current) + len(phys.recycle)
	phys.Unlock()
	return used, free
}
