package vm

import (
	"github.com/soxsx/oskernel2023-bitethedisk/defs"
	"github.com/soxsx/oskernel2023-bitethedisk/mem"
	"github.com/soxsx/oskernel2023-bitethedisk/util"
)

// kernel access to user memory goes through the user page table: resolve
// the page, faulting it in if the area allows, then use the kernel's
// identical mapping of the frame. k2u faults write-style so COW pages are
// broken before the kernel scribbles on a shared frame.
func (as *Vm_t) Userdmap8_inner(va uintptr, k2u bool) ([]uint8, defs.Err_t) {
	as.Lockassert_pmap()

	pte := as.pt.Lookup(va)
	needfault := true
	if pte != nil {
		if k2u {
			if !pte.Cow() && *pte&PTE_W != 0 {
				needfault = false
			}
		} else {
			needfault = false
		}
	}
	if needfault {
		cause := uintptr(defs.EXC_LPGFAULT)
		if k2u {
			cause = defs.EXC_SPGFAULT
		}
		if err := as.pgfault_inner(va, cause); err != 0 {
			return nil, -defs.EFAULT
		}
		pte = as.pt.Lookup(va)
		if pte == nil {
			panic("fault resolved but no pte")
		}
	}
	return mem.Dmap8(pte.Pa() + Pa_t(va&uintptr(mem.PGOFFSET))), 0
}

// copies src to the user virtual address uva
func (as *Vm_t) K2user(src []uint8, uva uintptr) defs.Err_t {
	as.Lock_pmap()
	ret := as.K2user_inner(src, uva)
	as.Unlock_pmap()
	return ret
}

func (as *Vm_t) K2user_inner(src []uint8, uva uintptr) defs.Err_t {
	as.Lockassert_pmap()
	cnt := 0
	l := len(src)
	for cnt != l {
		dst, err := as.Userdmap8_inner(uva+uintptr(cnt), true)
		if err != 0 {
			return err
		}
		ub := copy(dst, src)
		src = src[ub:]
		cnt += ub
	}
	return 0
}

// copies len(dst) bytes from userspace address uva to dst
func (as *Vm_t) User2k(dst []uint8, uva uintptr) defs.Err_t {
	as.Lock_pmap()
	ret := as.User2k_inner(dst, uva)
	as.Unlock_pmap()
	return ret
}

func (as *Vm_t) User2k_inner(dst []uint8, uva uintptr) defs.Err_t {
	as.Lockassert_pmap()
	cnt := 0
	for len(dst) != 0 {
		src, err := as.Userdmap8_inner(uva+uintptr(cnt), false)
		if err != 0 {
			return err
		}
		did := copy(dst, src)
		dst = dst[did:]
		cnt += did
	}
	return 0
}

func (as *Vm_t) Userreadn(va uintptr, n int) (int, defs.Err_t) {
	if n > 8 {
		panic("large n")
	}
	var buf [8]uint8
	if err := as.User2k(buf[:n], va); err != 0 {
		return 0, err
	}
	return util.Readn(buf[:], n, 0), 0
}

func (as *Vm_t) Userwriten(va uintptr, n, val int) defs.Err_t {
	if n > 8 {
		panic("large n")
	}
	var buf [8]uint8
	util.Writen(buf[:], n, 0, val)
	return as.K2user(buf[:n], va)
}

// the NUL-terminated string at uva, at most lenmax bytes
func (as *Vm_t) Userstr(uva uintptr, lenmax int) ([]uint8, defs.Err_t) {
	if lenmax < 0 {
		return nil, 0
	}
	as.Lock_pmap()
	defer as.Unlock_pmap()
	i := 0
	var s []uint8
	for {
		str, err := as.Userdmap8_inner(uva+uintptr(i), false)
		if err != 0 {
			return nil, err
		}
		for j, c := range str {
			if c == 0 {
				s = append(s, str[:j]...)
				if len(s) >= lenmax {
					return nil, -defs.ENAMETOOLONG
				}
				return s, 0
			}
		}
		s = append(s, str...)
		i += len(str)
		if len(s) >= lenmax {
			return nil, -defs.ENAMETOOLONG
		}
	}
}

// a user buffer for fdops reads/writes that straddle pages
type Userbuf_t struct {
	userva uintptr
	len    int
	off    int
	as     *Vm_t
}

func (ub *Userbuf_t) ub_init(as *Vm_t, uva uintptr, len int) {
	ub.userva = uva
	ub.len = len
	ub.off = 0
	ub.as = as
}

func (as *Vm_t) Mkuserbuf(userva uintptr, len int) *Userbuf_t {
	ret := &Userbuf_t{}
	ret.ub_init(as, userva, len)
	return ret
}

func (ub *Userbuf_t) Remain() int {
	return ub.len - ub.off
}

func (ub *Userbuf_t) Totalsz() int {
	return ub.len
}

func (ub *Userbuf_t) Uioread(dst []uint8) (int, defs.Err_t) {
	ub.as.Lock_pmap()
	a, b := ub._tx(dst, false)
	ub.as.Unlock_pmap()
	return a, b
}

func (ub *Userbuf_t) Uiowrite(src []uint8) (int, defs.Err_t) {
	ub.as.Lock_pmap()
	a, b := ub._tx(src, true)
	ub.as.Unlock_pmap()
	return a, b
}

// copies the min of either the provided buffer or ub.len. returns number of
// bytes copied and error.
func (ub *Userbuf_t) _tx(buf []uint8, write bool) (int, defs.Err_t) {
	ret := 0
	for len(buf) != 0 && ub.off != ub.len {
		va := ub.userva + uintptr(ub.off)
		ubuf, err := ub.as.Userdmap8_inner(va, write)
		if err != 0 {
			return ret, err
		}
		end := ub.off + len(ubuf)
		if end > ub.len {
			left := ub.len - ub.off
			ubuf = ubuf[:left]
		}
		var c int
		if write {
			c = copy(ubuf, buf)
		} else {
			c = copy(buf, ubuf)
		}
		buf = buf[c:]
		ub.off += c
		ret += c
	}
	return ret, 0
}
