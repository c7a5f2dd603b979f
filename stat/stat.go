// Package stat carries the linux riscv64 stat and utsname wire layouts.
package stat

import "github.com/soxsx/oskernel2023-bitethedisk/util"

const (
	S_IFREG = 0x8000
	S_IFDIR = 0x4000
	S_IFIFO = 0x1000
	S_IFCHR = 0x2000
	S_IFBLK = 0x6000
)

// struct stat, 128 bytes on riscv64
type Stat_t struct {
	_dev    uint
	_ino    uint
	_mode   uint32
	_nlink  uint32
	_uid    uint32
	_gid    uint32
	_rdev   uint
	_pad0   uint
	_size   uint
	_blksz  uint32
	_pad1   uint32
	_blocks uint
	_atime  [2]uint
	_mtime  [2]uint
	_ctime  [2]uint
}

func (st *Stat_t) Wdev(v uint)    { st._dev = v }
func (st *Stat_t) Wino(v uint)    { st._ino = v }
func (st *Stat_t) Wmode(v uint)   { st._mode = uint32(v) }
func (st *Stat_t) Wnlink(v uint)  { st._nlink = uint32(v) }
func (st *Stat_t) Wrdev(v uint)   { st._rdev = v }
func (st *Stat_t) Wsize(v uint)   { st._size = v }
func (st *Stat_t) Wblksz(v uint)  { st._blksz = uint32(v) }
func (st *Stat_t) Wblocks(v uint) { st._blocks = v }
func (st *Stat_t) Wmtime(s, ns uint) {
	st._mtime[0] = s
	st._mtime[1] = ns
}

func (st *Stat_t) Mode() uint { return uint(st._mode) }
func (st *Stat_t) Size() uint { return st._size }
func (st *Stat_t) Rdev() uint { return st._rdev }

func (st *Stat_t) Bytes() []uint8 {
	ret := make([]uint8, 128)
	off := 0
	w := func(v uint) {
		util.Writen(ret, 8, off, int(v))
		off += 8
	}
	w4 := func(v uint32) {
		util.Writen(ret, 4, off, int(v))
		off += 4
	}
	w(st._dev)
	w(st._ino)
	w4(st._mode)
	w4(st._nlink)
	w4(st._uid)
	w4(st._gid)
	w(st._rdev)
	w(st._pad0)
	w(st._size)
	w4(st._blksz)
	w4(st._pad1)
	w(st._blocks)
	w(st._atime[0])
	w(st._atime[1])
	w(st._mtime[0])
	w(st._mtime[1])
	w(st._ctime[0])
	w(st._ctime[1])
	return ret
}

// struct utsname: six fixed 65-byte fields
type Utsname_t struct {
	Sysname  string
	Nodename string
	Release  string
	Version  string
	Machine  string
	Domain   string
}

func Mkutsname() Utsname_t {
	return Utsname_t{
		Sysname:  "BTD-OS",
		Nodename: "btd",
		Release:  "5.0",
		Version:  "5.13",
		Machine:  "riscv64",
		Domain:   "BiteTheDisk",
	}
}

func (u Utsname_t) Bytes() []uint8 {
	ret := make([]uint8, 6*65)
	fields := []string{u.Sysname, u.Nodename, u.Release, u.Version, u.Machine, u.Domain}
	for i, f := range fields {
		copy(ret[i*65:(i+1)*65-1], f)
	}
	return ret
}
