package vm

import "github.com/soxsx/oskernel2023-bitethedisk/mem"

type Pte_t uintptr

// sv39 pte bits
const (
	PTE_V Pte_t = 1 << 0
	PTE_R Pte_t = 1 << 1
	PTE_W Pte_t = 1 << 2
	PTE_X Pte_t = 1 << 3
	PTE_U Pte_t = 1 << 4
	PTE_G Pte_t = 1 << 5
	PTE_A Pte_t = 1 << 6
	PTE_D Pte_t = 1 << 7

	// RSW bits, software-defined
	PTE_COW    Pte_t = 1 << 8
	PTE_SHARED Pte_t = 1 << 9
)

const PTE_FLAGS Pte_t = 0x3ff

const PGSHIFT uint = mem.PGSHIFT

func Mkpte(p_pg mem.Pa_t, flags Pte_t) Pte_t {
	return Pte_t(p_pg>>PGSHIFT)<<10 | (flags & PTE_FLAGS)
}

func (pte Pte_t) Pa() mem.Pa_t {
	return mem.Pa_t(pte>>10) << PGSHIFT
}

func (pte Pte_t) Flags() Pte_t {
	return pte & PTE_FLAGS
}

func (pte Pte_t) Valid() bool {
	return pte&PTE_V != 0
}

func (pte Pte_t) Cow() bool {
	return pte&PTE_COW != 0
}

// a non-leaf pte has none of R/W/X set
func (pte Pte_t) Leaf() bool {
	return pte&(PTE_R|PTE_W|PTE_X) != 0
}

// virtual page number helpers
func Vpn(va uintptr) uintptr {
	return va >> PGSHIFT
}

func Pgidx(va uintptr, level uint) uint {
	return uint(va>>(12+9*level)) & 0x1ff
}

func Pgrounddown(va uintptr) uintptr {
	return va &^ (uintptr(mem.PGSIZE) - 1)
}

func Pgroundup(va uintptr) uintptr {
	return Pgrounddown(va + uintptr(mem.PGSIZE) - 1)
}
