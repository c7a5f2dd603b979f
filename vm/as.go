package vm

import (
	"sync"

	"github.com/soxsx/oskernel2023-bitethedisk/defs"
	"github.com/soxsx/oskernel2023-bitethedisk/mem"
	"github.com/soxsx/oskernel2023-bitethedisk/riscv"
	"github.com/soxsx/oskernel2023-bitethedisk/util"
)

// eager copy cutoff for ELF segments; anything larger faults in on demand
const eager_thresh = 32 * 4096

// flush the current hart's TLB. stale entries on other harts die with the
// sfence issued when they next install a satp.
func Tlbflush() {
	riscv.Sfence_vma()
}

// trampoline and sigreturn stub pages, shared read-execute by every address
// space. installed once during boot.
var P_trampoline Pa_t
var P_sigtramp Pa_t

func Set_trampolines(tramp, sigtramp Pa_t) {
	P_trampoline = tramp
	P_sigtramp = sigtramp
}

// a user address space: ordered map areas plus the sv39 table rooted at
// pt. the lock orders after the frame allocator's and before any task inner
// lock.
type Vm_t struct {
	sync.Mutex

	Vmregion Vmregion_t
	pt       *Pagetable_t

	// heap bounds for brk
	Brkstart uintptr
	Brk      uintptr

	pgfltaken bool
}

func (as *Vm_t) Lock_pmap() {
	as.Lock()
	as.pgfltaken = true
}

func (as *Vm_t) Unlock_pmap() {
	as.pgfltaken = false
	as.Unlock()
}

func (as *Vm_t) Lockassert_pmap() {
	if !as.pgfltaken {
		panic("pgfl lock must be held")
	}
}

func (as *Vm_t) Satp() uintptr {
	return as.pt.Satp()
}

// install this space on the current hart
func (as *Vm_t) Activate() {
	riscv.W_satp(as.Satp())
}

// an empty user space with only the trampoline pages mapped
func Vm_new() (*Vm_t, defs.Err_t) {
	pt, err := Pt_new()
	if err != 0 {
		return nil, err
	}
	as := &Vm_t{pt: pt}
	if P_trampoline == 0 || P_sigtramp == 0 {
		panic("trampolines not installed")
	}
	if err := pt.Map(mem.TRAMPOLINE, P_trampoline, PTE_R|PTE_X); err != 0 {
		return nil, err
	}
	if err := pt.Map(mem.SIGNAL_TRAMPOLINE, P_sigtramp, PTE_R|PTE_X|PTE_U); err != 0 {
		return nil, err
	}
	return as, 0
}

// map a fresh trap-context page at the slot for tid; returns its frame.
func (as *Vm_t) Map_trapctx(tid int) (Pa_t, defs.Err_t) {
	p_pg, ok := mem.Physmem.Refpg_new()
	if !ok {
		return 0, -defs.ENOMEM
	}
	if err := as.pt.Map(mem.Trapctx_va(tid), p_pg, PTE_R|PTE_W); err != 0 {
		mem.Physmem.Refdown(p_pg)
		return 0, err
	}
	return p_pg, 0
}

func (as *Vm_t) Unmap_trapctx(tid int) {
	as.pt.Unmap(mem.Trapctx_va(tid))
}

// pte permission bits for an area
func area_pte(perms Pte_t) Pte_t {
	return (perms & (PTE_R | PTE_W | PTE_X)) | PTE_U | PTE_A | PTE_D
}

// materialize one page of an area at va: allocate, fill per policy, install.
func (as *Vm_t) _fill1(a *Area_t, va uintptr) defs.Err_t {
	as.Lockassert_pmap()
	p_pg, ok := mem.Physmem.Refpg_new()
	if !ok {
		return -defs.ENOMEM
	}
	if a.Fill == FFILE {
		foff := a.fileoff(Vpn(va))
		left := a.file.flen - (foff - a.file.foff)
		if left > 0 {
			dst := mem.Dmap(p_pg)[:util.Min(left, mem.PGSIZE)]
			if _, err := a.file.fops.Mmapread(foff, dst); err != 0 {
				mem.Physmem.Refdown(p_pg)
				return err
			}
		}
	}
	if err := as.pt.Map(Pgrounddown(va), p_pg, area_pte(a.Perms)); err != 0 {
		mem.Physmem.Refdown(p_pg)
		return err
	}
	return 0
}

// insert an anonymous framed area; eager fills allocate everything now.
func (as *Vm_t) Insert_framed(start uintptr, len int, perms Pte_t, fill fill_t) defs.Err_t {
	as.Lockassert_pmap()
	if start&uintptr(mem.PGOFFSET) != 0 || len <= 0 {
		panic("bad framed area")
	}
	a := &Area_t{
		Pgn:   Vpn(start),
		Pglen: util.Roundup(len, mem.PGSIZE) >> PGSHIFT,
		Perms: perms,
		Kind:  MFRAMED,
		Fill:  fill,
	}
	as.Vmregion.Insert(a)
	if fill == FEAGER {
		for i := 0; i < a.Pglen; i++ {
			va := (a.Pgn + uintptr(i)) << PGSHIFT
			if err := as._fill1(a, va); err != 0 {
				return err
			}
		}
	}
	return 0
}

// insert a file-backed framed area filled on demand
func (as *Vm_t) Insert_file(start uintptr, len int, perms Pte_t, fops Mmapfile_i,
	foff, flen int, shared bool) {
	as.Lockassert_pmap()
	a := &Area_t{
		Pgn:   Vpn(start),
		Pglen: util.Roundup(len, mem.PGSIZE) >> PGSHIFT,
		Perms: perms,
		Kind:  MFRAMED,
		Fill:  FFILE,
	}
	a.file.fops = fops
	a.file.foff = foff
	a.file.flen = flen
	a.file.shared = shared
	as.Vmregion.Insert(a)
}

// unmap [start, start+len) and drop the region bookkeeping
func (as *Vm_t) Unmap_range(start uintptr, len int, novma uint) defs.Err_t {
	as.Lockassert_pmap()
	pgs := util.Roundup(len, mem.PGSIZE) >> PGSHIFT
	if _, ok := as.Vmregion.Lookup(start); !ok {
		return -defs.EINVAL
	}
	if err := as.Vmregion.Remove(int(start), len, novma); err != 0 {
		return err
	}
	for i := 0; i < pgs; i++ {
		as.pt.Unmap(start + uintptr(i*mem.PGSIZE))
	}
	riscv.Sfence_vma()
	return 0
}

// a parsed executable as handed over by the loader
type Elfimg_t struct {
	Segs []Elfseg_t
	Entry uintptr
	// va of the program headers and their count, for the auxv
	Phbase uintptr
	Phnum  int
}

// a loadable segment as handed over by the ELF loader
type Elfseg_t struct {
	Va    uintptr
	Memsz int
	// backing bytes within the image blob
	Fileoff  int
	Filesz   int
	Perms    Pte_t
	Fops     Mmapfile_i
}

// build a user space from loadable segments: page-round each segment, eager
// copy the small ones, fault the rest in from the image; then the heap cap
// and the user stack.
func From_elf(segs []Elfseg_t) (*Vm_t, uintptr, defs.Err_t) {
	as, err := Vm_new()
	if err != 0 {
		return nil, 0, err
	}
	as.Lock_pmap()
	defer as.Unlock_pmap()

	var maxva uintptr
	for i := range segs {
		seg := &segs[i]
		start := Pgrounddown(seg.Va)
		voff := int(seg.Va - start)
		l := util.Roundup(voff+seg.Memsz, mem.PGSIZE)
		end := start + uintptr(l)
		if end > maxva {
			maxva = end
		}
		a := &Area_t{
			Pgn:   Vpn(start),
			Pglen: l >> PGSHIFT,
			Perms: seg.Perms,
			Kind:  MFRAMED,
			Fill:  FFILE,
		}
		// the file offset is adjusted back so that page offsets line up
		// with virtual page offsets.
		a.file.fops = seg.Fops
		a.file.foff = seg.Fileoff - voff
		a.file.flen = voff + seg.Filesz
		as.Vmregion.Insert(a)
		if seg.Memsz <= eager_thresh {
			for i := 0; i < a.Pglen; i++ {
				va := start + uintptr(i*mem.PGSIZE)
				if err := as._fill1(a, va); err != 0 {
					return nil, 0, err
				}
			}
		}
	}

	// heap cap directly above the image
	as.Brkstart = Pgroundup(maxva)
	as.Brk = as.Brkstart
	if err := as.Insert_framed(as.Brkstart, mem.USER_HEAP_SIZE,
		PTE_R|PTE_W, FLAZY); err != 0 {
		return nil, 0, err
	}

	// user stack, faulted in on demand
	stackbot := uintptr(mem.USER_STACK_BASE - mem.USER_STACK_SIZE)
	if err := as.Insert_framed(stackbot, mem.USER_STACK_SIZE,
		PTE_R|PTE_W, FLAZY); err != 0 {
		return nil, 0, err
	}
	return as, uintptr(mem.USER_STACK_BASE), 0
}

// clone for fork: identical areas, every resident page shared write-cleared
// with the COW bit set on both sides and the frame refcount raised. returns
// true when the parent's TLB must be flushed.
func (as *Vm_t) From_cow() (*Vm_t, bool, defs.Err_t) {
	as.Lockassert_pmap()
	child, err := Vm_new()
	if err != 0 {
		return nil, false, err
	}
	child.Vmregion = as.Vmregion.Copy()
	child.Brkstart, child.Brk = as.Brkstart, as.Brk

	doflush := false
	failed := defs.Err_t(0)
	as.Vmregion.Iter(func(a *Area_t) {
		if failed != 0 {
			return
		}
		for i := 0; i < a.Pglen; i++ {
			va := (a.Pgn + uintptr(i)) << PGSHIFT
			pte := as.pt.Lookup(va)
			if pte == nil {
				continue
			}
			phys := pte.Pa()
			flags := pte.Flags()
			if a.file.shared {
				// shared mappings stay writable in both
			} else if flags&PTE_W != 0 {
				flags = (flags &^ PTE_W) | PTE_COW
				*pte = Mkpte(phys, flags)
				doflush = true
			} else if flags&PTE_COW != 0 {
				// grandchild fork of an already-COW page
			}
			if err := child.pt.Map(va, phys, flags); err != 0 {
				failed = err
				return
			}
			mem.Physmem.Refup(phys)
		}
	})
	if failed != 0 {
		return nil, doflush, failed
	}
	return child, doflush, 0
}

// the store half of the COW protocol for the faulting page
func (as *Vm_t) _cowfault(pte *Pte_t, va uintptr) defs.Err_t {
	phys := pte.Pa()
	if mem.Physmem.Refcnt(phys) == 1 {
		// sole owner: take the page back
		*pte = Mkpte(phys, (pte.Flags()&^PTE_COW)|PTE_W)
		riscv.Sfence_vma()
		return 0
	}
	np, ok := mem.Physmem.Refpg_new_nozero()
	if !ok {
		return -defs.ENOMEM
	}
	mem.Pg_copy(np, phys)
	*pte = Mkpte(np, (pte.Flags()&^PTE_COW)|PTE_W)
	mem.Physmem.Refdown(phys)
	riscv.Sfence_vma()
	return 0
}

// page-fault entry. cause is the scause exception number. a non-zero return
// means the fault is a policy violation and the caller delivers SIGSEGV.
func (as *Vm_t) Pgfault(va uintptr, cause uintptr) defs.Err_t {
	as.Lock_pmap()
	defer as.Unlock_pmap()
	return as.pgfault_inner(va, cause)
}

func (as *Vm_t) pgfault_inner(va uintptr, cause uintptr) defs.Err_t {
	iswrite := cause == defs.EXC_SPGFAULT || cause == defs.EXC_SACCESS
	isexec := cause == defs.EXC_IPGFAULT || cause == defs.EXC_IACCESS

	a, ok := as.Vmregion.Lookup(va)
	if !ok {
		return -defs.EFAULT
	}
	if iswrite && a.Perms&PTE_W == 0 {
		return -defs.EFAULT
	}
	if isexec && a.Perms&PTE_X == 0 {
		return -defs.EFAULT
	}

	pte := as.pt.Lookup(va)
	if pte == nil {
		// not resident: lazy or file-backed fill
		if a.Fill == FEAGER {
			// eager pages are always resident; this is a stale access
			return -defs.EFAULT
		}
		if err := as._fill1(a, va); err != 0 {
			return err
		}
		riscv.Sfence_vma()
		return 0
	}
	if iswrite && pte.Cow() {
		return as._cowfault(pte, va)
	}
	if iswrite && *pte&PTE_W == 0 {
		return -defs.EFAULT
	}
	// racing fault on another hart already resolved it
	return 0
}

// tear down all user mappings and the page table. trap-context pages must
// already be unmapped by the owning tasks.
func (as *Vm_t) Uvmfree() {
	as.Lock_pmap()
	as.Vmregion.Iter(func(a *Area_t) {
		for i := 0; i < a.Pglen; i++ {
			va := (a.Pgn + uintptr(i)) << PGSHIFT
			as.pt.Unmap(va)
		}
	})
	as.Vmregion.Clear()
	as.pt.Free()
	as.Unlock_pmap()
}

// physical address of a user va, if resident
func (as *Vm_t) Translate_pa(va uintptr) (Pa_t, bool) {
	return as.pt.Translate_pa(va)
}

// a free user range for mmap placement; 0 when the user half is full
func (as *Vm_t) Unusedva_inner(startva uintptr, len int) uintptr {
	as.Lockassert_pmap()
	if len < 0 {
		panic("weird len")
	}
	startva = Pgrounddown(startva)
	if startva < uintptr(mem.USERMIN) {
		startva = uintptr(mem.USERMIN)
	}
	ret, l := as.Vmregion.Empty(startva, uintptr(len))
	if l == 0 {
		return 0
	}
	if startva > ret && startva < ret+l {
		ret = startva
	}
	return ret
}
