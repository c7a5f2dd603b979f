// Package fs is the kernel's view of the filesystem: the interface the
// fat32 crate implements, open-file objects over it, pipes, and the
// console. the on-disk codec and block cache live outside the kernel.
package fs

import (
	"sync"

	"github.com/soxsx/oskernel2023-bitethedisk/bpath"
	"github.com/soxsx/oskernel2023-bitethedisk/defs"
	"github.com/soxsx/oskernel2023-bitethedisk/stat"
	"github.com/soxsx/oskernel2023-bitethedisk/ustr"
)

// a 512-byte-sector block device; the virtio driver satisfies this.
type Blockdev_i interface {
	Read_block(blockno int, dst *[512]uint8)
	Write_block(blockno int, src *[512]uint8)
}

type Dirent_t struct {
	Name  ustr.Ustr
	Inum  int
	Isdir bool
}

// one file or directory inside the mounted volume
type Inode_i interface {
	Read(off int, dst []uint8) (int, defs.Err_t)
	Write(off int, src []uint8) (int, defs.Err_t)
	Stat(st *stat.Stat_t) defs.Err_t
	Size() int
	Isdir() bool
	Delete() defs.Err_t
	Readdir() ([]Dirent_t, defs.Err_t)
}

// the mounted volume
type Filesystem_i interface {
	Open(path ustr.Ustr, flags defs.Fdopt_t, mode int) (Inode_i, defs.Err_t)
	Mkdir(path ustr.Ustr, mode int) defs.Err_t
	Unlink(path ustr.Ustr) defs.Err_t
	Rename(oldp, newp ustr.Ustr) defs.Err_t
}

// the fat32 crate registers its constructor here from its init().
var Mkfs func(dev Blockdev_i) (Filesystem_i, defs.Err_t)

var rootl sync.Mutex
var rootfs Filesystem_i

func MountRoot(dev Blockdev_i) defs.Err_t {
	if Mkfs == nil {
		panic("no filesystem linked")
	}
	fsys, err := Mkfs(dev)
	if err != 0 {
		return err
	}
	rootl.Lock()
	rootfs = fsys
	rootl.Unlock()
	return 0
}

func rootget() Filesystem_i {
	rootl.Lock()
	ret := rootfs
	rootl.Unlock()
	if ret == nil {
		panic("root not mounted")
	}
	return ret
}

// path resolution: relative paths hang off cwd, then "." and ".." collapse.
func Abspath(cwd, p ustr.Ustr) ustr.Ustr {
	var full ustr.Ustr
	if p.IsAbsolute() {
		full = p.Copy()
	} else {
		full = ustr.Join(cwd, p)
	}
	return bpath.Canonicalize(full)
}

func Open(cwd, path ustr.Ustr, flags defs.Fdopt_t, mode int) (Inode_i, defs.Err_t) {
	return rootget().Open(Abspath(cwd, path), flags, mode)
}

func Mkdir(cwd, path ustr.Ustr, mode int) defs.Err_t {
	return rootget().Mkdir(Abspath(cwd, path), mode)
}

func Unlink(cwd, path ustr.Ustr) defs.Err_t {
	return rootget().Unlink(Abspath(cwd, path))
}

func Rename(cwd, oldp, newp ustr.Ustr) defs.Err_t {
	return rootget().Rename(Abspath(cwd, oldp), Abspath(cwd, newp))
}
