package vm

import (
	"unsafe"

	"github.com/soxsx/oskernel2023-bitethedisk/defs"
	"github.com/soxsx/oskernel2023-bitethedisk/mem"
)

// sv39 three-level table. the root and all intermediate frames are owned by
// the table and freed with it; leaf frames are owned through the allocator
// refcounts and dropped by Unmap.
type Pagetable_t struct {
	root Pa_t
	// intermediate node frames, so teardown need not rewalk
	mids []Pa_t
}

type Pa_t = mem.Pa_t

func ptes(p Pa_t) *[512]Pte_t {
	return (*[512]Pte_t)(unsafe.Pointer(mem.Dmap(p)))
}

func Pt_new() (*Pagetable_t, defs.Err_t) {
	p, ok := mem.Physmem.Refpg_new()
	if !ok {
		return nil, -defs.ENOMEM
	}
	return &Pagetable_t{root: p}, 0
}

// a table sharing an existing root (the kernel half installed from boot)
func Pt_from_root(root Pa_t) *Pagetable_t {
	return &Pagetable_t{root: root}
}

func (pt *Pagetable_t) Root() Pa_t {
	return pt.root
}

// satp value selecting this table
func (pt *Pagetable_t) Satp() uintptr {
	return uintptr(8)<<60 | uintptr(pt.root>>PGSHIFT)
}

// walk to the leaf pte for va, allocating intermediate frames when create is
// set. returns nil if the path is absent (create false) or on OOM.
func (pt *Pagetable_t) walk(va uintptr, create bool) *Pte_t {
	if pt.root == 0 {
		// the table was already torn down; late unmaps of thread
		// trap-context slots land here
		return nil
	}
	cur := pt.root
	for lvl := uint(2); lvl > 0; lvl-- {
		tbl := ptes(cur)
		pte := &tbl[Pgidx(va, lvl)]
		if pte.Valid() {
			if pte.Leaf() {
				panic("superpage in walk")
			}
			cur = pte.Pa()
			continue
		}
		if !create {
			return nil
		}
		np, ok := mem.Physmem.Refpg_new()
		if !ok {
			return nil
		}
		pt.mids = append(pt.mids, np)
		*pte = Mkpte(np, 0) | PTE_V
		cur = np
	}
	return &ptes(cur)[Pgidx(va, 0)]
}

// install va -> p_pg. the caller owns the refcount transfer: the mapping
// consumes one reference on p_pg.
func (pt *Pagetable_t) Map(va uintptr, p_pg Pa_t, flags Pte_t) defs.Err_t {
	pte := pt.walk(va, true)
	if pte == nil {
		return -defs.ENOMEM
	}
	if pte.Valid() {
		panic("remap")
	}
	*pte = Mkpte(p_pg, flags) | PTE_V
	return 0
}

// clear the leaf pte and drop the mapping's frame reference. missing
// mappings are ignored (lazy pages that were never touched).
func (pt *Pagetable_t) Unmap(va uintptr) {
	pte := pt.walk(va, false)
	if pte == nil || !pte.Valid() {
		return
	}
	p_old := pte.Pa()
	*pte = 0
	mem.Physmem.Refdown(p_old)
}

func (pt *Pagetable_t) Lookup(va uintptr) *Pte_t {
	pte := pt.walk(va, false)
	if pte == nil || !pte.Valid() {
		return nil
	}
	return pte
}

// pte copy for readers that must not retain the pointer
func (pt *Pagetable_t) Translate(va uintptr) (Pte_t, bool) {
	pte := pt.Lookup(va)
	if pte == nil {
		return 0, false
	}
	return *pte, true
}

// physical address for an arbitrary user va
func (pt *Pagetable_t) Translate_pa(va uintptr) (Pa_t, bool) {
	pte := pt.Lookup(va)
	if pte == nil {
		return 0, false
	}
	return pte.Pa() + Pa_t(va&uintptr(mem.PGOFFSET)), true
}

// free the root and intermediate frames. all leaves must already be
// unmapped by the owning areas.
func (pt *Pagetable_t) Free() {
	if pt.root == 0 {
		return
	}
	for _, p := range pt.mids {
		mem.Physmem.Refdown(p)
	}
	pt.mids = nil
	mem.Physmem.Refdown(pt.root)
	pt.root = 0
}
