// Package fdops declares the file-operations interface the kernel codes
// against. the fat32 layer, pipes, and the console all implement it.
package fdops

import (
	"github.com/soxsx/oskernel2023-bitethedisk/defs"
	"github.com/soxsx/oskernel2023-bitethedisk/stat"
)

// a source/sink of user bytes; satisfied by vm.Userbuf_t and by kernel-side
// fake buffers.
type Userio_i interface {
	Uioread(dst []uint8) (int, defs.Err_t)
	Uiowrite(src []uint8) (int, defs.Err_t)
	Remain() int
	Totalsz() int
}

type Fdops_i interface {
	Read(dst Userio_i) (int, defs.Err_t)
	Write(src Userio_i) (int, defs.Err_t)
	// absolute-offset read for mmap fills and exec; does not move the
	// file position.
	Pread(dst []uint8, off int) (int, defs.Err_t)
	Lseek(off, whence int) (int, defs.Err_t)
	Fstat(st *stat.Stat_t) defs.Err_t
	// directory entries from the file position onward; bytes written
	Getdents(dst Userio_i) (int, defs.Err_t)
	// a new reference to the same open file
	Reopen() defs.Err_t
	Close() defs.Err_t
}
