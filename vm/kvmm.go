package vm

import (
	"sync"

	"github.com/soxsx/oskernel2023-bitethedisk/defs"
	"github.com/soxsx/oskernel2023-bitethedisk/mem"
	"github.com/soxsx/oskernel2023-bitethedisk/riscv"
)

// the kernel's own address space: identity map of the image and RAM window,
// MMIO, the trampoline, and the per-task kernel stacks.
var kvmm *Pagetable_t
var kvmmlock sync.Mutex

func Kvm() *Pagetable_t {
	if kvmm == nil {
		panic("kernel vm not initted")
	}
	return kvmm
}

func Kvm_satp() uintptr {
	return Kvm().Satp()
}

// build the kernel page table. called once on the boot hart, before the
// secondaries are released.
func Kvm_init(etext, ekernel uintptr) {
	if kvmm != nil {
		panic("double kvm init")
	}
	pt, err := Pt_new()
	if err != 0 {
		panic("oom in boot")
	}
	kvmm = pt

	kmap := func(start, end uintptr, perms Pte_t) {
		for va := Pgrounddown(start); va < end; va += uintptr(mem.PGSIZE) {
			if err := pt.Map(va, Pa_t(va), perms); err != 0 {
				panic("oom in boot")
			}
		}
	}
	// kernel text, then data + the rest of RAM
	kmap(uintptr(mem.KERNBASE), etext, PTE_R|PTE_X)
	kmap(etext, uintptr(mem.MEMORY_END), PTE_R|PTE_W)
	// virtio mmio window
	if mem.VIRTIO0 != 0 {
		kmap(mem.VIRTIO0, mem.VIRTIO0+uintptr(mem.PGSIZE), PTE_R|PTE_W)
	}
	// trap entry/exit runs here on every space
	if err := pt.Map(mem.TRAMPOLINE, P_trampoline, PTE_R|PTE_X); err != 0 {
		panic("oom in boot")
	}
}

// install the kernel space on this hart
func Kvm_activate() {
	riscv.W_satp(Kvm_satp())
}

// map a kernel stack for pid: KERNEL_STACK_SIZE bytes of fresh frames below
// an unmapped guard page.
func Kstack_map(pid int) defs.Err_t {
	bottom, top := mem.Kstack_range(pid)
	kvmmlock.Lock()
	defer kvmmlock.Unlock()
	for va := bottom; va < top; va += uintptr(mem.PGSIZE) {
		p_pg, ok := mem.Physmem.Refpg_new()
		if !ok {
			return -defs.ENOMEM
		}
		if err := kvmm.Map(va, p_pg, PTE_R|PTE_W); err != 0 {
			mem.Physmem.Refdown(p_pg)
			return err
		}
	}
	riscv.Sfence_vma()
	return 0
}

func Kstack_unmap(pid int) {
	bottom, top := mem.Kstack_range(pid)
	kvmmlock.Lock()
	defer kvmmlock.Unlock()
	for va := bottom; va < top; va += uintptr(mem.PGSIZE) {
		kvmm.Unmap(va)
	}
	riscv.Sfence_vma()
}
