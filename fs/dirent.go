package fs

import (
	"github.com/soxsx/oskernel2023-bitethedisk/defs"
	"github.com/soxsx/oskernel2023-bitethedisk/fdops"
	"github.com/soxsx/oskernel2023-bitethedisk/util"
)

const (
	DT_UNKNOWN = 0
	DT_DIR     = 4
	DT_REG     = 8
)

// linux_dirent64: ino, off, reclen, type, then the NUL-terminated name,
// padded to 8 bytes.
func dirent_copy(ents []Dirent_t, dst fdops.Userio_i, off int) (int, int, defs.Err_t) {
	wrote := 0
	idx := off
	for ; idx < len(ents); idx++ {
		e := ents[idx]
		reclen := (19 + len(e.Name) + 1 + 7) &^ 7
		if wrote+reclen > dst.Totalsz() {
			break
		}
		rec := make([]uint8, reclen)
		util.Writen(rec, 8, 0, e.Inum)
		util.Writen(rec, 8, 8, idx+1)
		util.Writen(rec, 2, 16, reclen)
		dtype := DT_REG
		if e.Isdir {
			dtype = DT_DIR
		}
		rec[18] = uint8(dtype)
		copy(rec[19:], e.Name)
		if _, err := dst.Uiowrite(rec); err != 0 {
			return wrote, idx, err
		}
		wrote += reclen
	}
	return wrote, idx, 0
}
