package mem

import "testing"

const tpages = 64

func mkphys(t *testing.T) *Physmem_t {
	first := KERNBASE
	end := KERNBASE + Pa_t(tpages*PGSIZE)
	return Phys_init(first, end)
}

func TestAllocFree(t *testing.T) {
	phys := mkphys(t)
	_, free0 := phys.Pgcount()
	if free0 != tpages {
		t.Fatalf("%v free", free0)
	}

	var pgs []Pa_t
	for i := 0; i < tpages; i++ {
		p, ok := phys.Refpg_new_nozero()
		if !ok {
			t.Fatalf("alloc %v failed", i)
		}
		if p&PGOFFSET != 0 {
			t.Fatalf("unaligned frame %#x", p)
		}
		if c := phys.Refcnt(p); c != 1 {
			t.Fatalf("fresh frame refcnt %v", c)
		}
		pgs = append(pgs, p)
	}
	if _, ok := phys.Refpg_new_nozero(); ok {
		t.Fatalf("alloc past end")
	}

	for _, p := range pgs {
		if c := phys.Refdown(p); c != 0 {
			t.Fatalf("refcnt %v after last drop", c)
		}
	}
	used, free := phys.Pgcount()
	if used != 0 || free != tpages {
		t.Fatalf("not back to start: used %v free %v", used, free)
	}
}

func TestRefcounts(t *testing.T) {
	phys := mkphys(t)
	p, ok := phys.Refpg_new_nozero()
	if !ok {
		t.Fatalf("alloc")
	}
	phys.Refup(p)
	phys.Refup(p)
	if c := phys.Refcnt(p); c != 3 {
		t.Fatalf("refcnt %v", c)
	}
	if c := phys.Refdown(p); c != 2 {
		t.Fatalf("refcnt %v", c)
	}
	if c := phys.Refdown(p); c != 1 {
		t.Fatalf("refcnt %v", c)
	}
	used, _ := phys.Pgcount()
	if used != 1 {
		t.Fatalf("freed while referenced")
	}
	if c := phys.Refdown(p); c != 0 {
		t.Fatalf("refcnt %v", c)
	}
	used, _ = phys.Pgcount()
	if used != 0 {
		t.Fatalf("leak: used %v", used)
	}
	// the frame must come back on the next alloc
	q, ok := phys.Refpg_new_nozero()
	if !ok || q != p {
		t.Fatalf("recycle miss: %#x vs %#x", q, p)
	}
}

func TestContig(t *testing.T) {
	phys := mkphys(t)
	base, ok := phys.Refpg_new_contig(8)
	if !ok {
		t.Fatalf("contig alloc")
	}
	for i := 0; i < 8; i++ {
		p := base + Pa_t(i*PGSIZE)
		if c := phys.Refcnt(p); c != 1 {
			t.Fatalf("frame %v refcnt %v", i, c)
		}
	}
	// a recycled singleton must not satisfy contiguous requests
	p, _ := phys.Refpg_new_nozero()
	phys.Refdown(p)
	if _, ok := phys.Refpg_new_contig(tpages); ok {
		t.Fatalf("contig past end")
	}
}

func TestKstackRange(t *testing.T) {
	b0, t0 := Kstack_range(0)
	b1, t1 := Kstack_range(1)
	if t0 != SIGNAL_TRAMPOLINE {
		t.Fatalf("pid 0 stack top %#x", t0)
	}
	if t0-b0 != uintptr(KERNEL_STACK_SIZE) {
		t.Fatalf("stack size %#x", t0-b0)
	}
	// guard page between adjacent stacks
	if b0-t1 != uintptr(PGSIZE) {
		t.Fatalf("guard gap %#x", b0-t1)
	}
	if b1 >= b0 {
		t.Fatalf("stacks must descend")
	}
}
