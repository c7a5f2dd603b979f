package vm

import "github.com/soxsx/oskernel2023-bitethedisk/defs"

type mkind_t uint
type fill_t uint

// mapping kinds
const (
	// va == pa, kernel half only
	MIDENTICAL mkind_t = 1 << iota
	// frames from the allocator, user half
	MFRAMED
)

// fill policies for framed areas
const (
	// frames allocated and filled at map time
	FEAGER fill_t = 1 << iota
	// frames materialized on first touch, zero-filled
	FLAZY
	// frames materialized on first touch from a file
	FFILE
)

// source for FFILE fills. implemented by the fs layer; vm only pulls bytes.
type Mmapfile_i interface {
	Mmapread(off int, dst []uint8) (int, defs.Err_t)
}

// a contiguous virtual range with uniform permissions and fill policy.
// resident pages are tracked in the owning address space's page table; the
// area's span is the authority for what may be materialized.
type Area_t struct {
	Pgn   uintptr
	Pglen int
	Perms Pte_t
	Kind  mkind_t
	Fill  fill_t
	file  struct {
		fops   Mmapfile_i
		foff   int
		flen   int
		shared bool
	}
}

func (a *Area_t) End() uintptr {
	return a.Pgn + uintptr(a.Pglen)
}

func (a *Area_t) Contains(pgn uintptr) bool {
	return pgn >= a.Pgn && pgn < a.End()
}

// file byte offset backing the page at pgn; bytes past file.flen are zero.
func (a *Area_t) fileoff(pgn uintptr) int {
	return a.file.foff + int(pgn-a.Pgn)<<PGSHIFT
}
