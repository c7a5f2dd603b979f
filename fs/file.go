package fs

import (
	"sync"

	"github.com/soxsx/oskernel2023-bitethedisk/defs"
	"github.com/soxsx/oskernel2023-bitethedisk/fdops"
	"github.com/soxsx/oskernel2023-bitethedisk/stat"
	"github.com/soxsx/oskernel2023-bitethedisk/ustr"
	"github.com/soxsx/oskernel2023-bitethedisk/util"
)

// an open file: an inode plus a shared offset and a refcount. dup'ed and
// inherited fds alias one of these, so the position is shared per POSIX.
// the canonical path sticks around so *at syscalls can resolve relative to
// an open directory.
type File_t struct {
	sync.Mutex
	ino    Inode_i
	path   ustr.Ustr
	pos    int
	refs   int
	append bool
}

func Mkfile(ino Inode_i, flags defs.Fdopt_t, path ustr.Ustr) *File_t {
	return &File_t{ino: ino, path: path, refs: 1, append: flags&defs.O_APPEND != 0}
}

func (f *File_t) Inode() Inode_i {
	return f.ino
}

func (f *File_t) Path() ustr.Ustr {
	return f.path
}

func (f *File_t) Read(dst fdops.Userio_i) (int, defs.Err_t) {
	f.Lock()
	defer f.Unlock()
	buf := make([]uint8, util.Min(dst.Remain(), 4096))
	did := 0
	for dst.Remain() > 0 {
		n, err := f.ino.Read(f.pos, buf)
		if err != 0 {
			return did, err
		}
		if n == 0 {
			break
		}
		c, err := dst.Uiowrite(buf[:n])
		if err != 0 {
			return did, err
		}
		f.pos += c
		did += c
		if c < n {
			break
		}
	}
	return did, 0
}

func (f *File_t) Write(src fdops.Userio_i) (int, defs.Err_t) {
	f.Lock()
	defer f.Unlock()
	if f.append {
		f.pos = f.ino.Size()
	}
	buf := make([]uint8, util.Min(src.Remain(), 4096))
	did := 0
	for src.Remain() > 0 {
		n, err := src.Uioread(buf)
		if err != 0 {
			return did, err
		}
		if n == 0 {
			break
		}
		c, werr := f.ino.Write(f.pos, buf[:n])
		f.pos += c
		did += c
		if werr != 0 {
			return did, werr
		}
	}
	return did, 0
}

func (f *File_t) Pread(dst []uint8, off int) (int, defs.Err_t) {
	return f.ino.Read(off, dst)
}

// vm.Mmapfile_i for file-backed map areas
func (f *File_t) Mmapread(off int, dst []uint8) (int, defs.Err_t) {
	return f.ino.Read(off, dst)
}

func (f *File_t) Lseek(off, whence int) (int, defs.Err_t) {
	f.Lock()
	defer f.Unlock()
	switch whence {
	case defs.SEEK_SET:
		f.pos = off
	case defs.SEEK_CUR:
		f.pos += off
	case defs.SEEK_END:
		f.pos = f.ino.Size() + off
	default:
		return 0, -defs.EINVAL
	}
	if f.pos < 0 {
		f.pos = 0
		return 0, -defs.EINVAL
	}
	return f.pos, 0
}

func (f *File_t) Fstat(st *stat.Stat_t) defs.Err_t {
	return f.ino.Stat(st)
}

// the file position indexes the directory entry list
func (f *File_t) Getdents(dst fdops.Userio_i) (int, defs.Err_t) {
	f.Lock()
	defer f.Unlock()
	if !f.ino.Isdir() {
		return 0, -defs.ENOTDIR
	}
	ents, err := f.ino.Readdir()
	if err != 0 {
		return 0, err
	}
	wrote, newoff, err := dirent_copy(ents, dst, f.pos)
	f.pos = newoff
	return wrote, err
}

func (f *File_t) Reopen() defs.Err_t {
	f.Lock()
	f.refs++
	f.Unlock()
	return 0
}

func (f *File_t) Close() defs.Err_t {
	f.Lock()
	f.refs--
	if f.refs < 0 {
		panic("neg ref")
	}
	f.Unlock()
	return 0
}
