// Package fd holds file-descriptor table entries and the table itself. the
// table is a first-class object so clone can share or deep-copy it per the
// CLONE_FILES flag.
package fd

import (
	"fmt"
	"sync"

	"github.com/soxsx/oskernel2023-bitethedisk/defs"
	"github.com/soxsx/oskernel2023-bitethedisk/fdops"
)

const (
	FD_READ    = 0x1
	FD_WRITE   = 0x2
	FD_CLOEXEC = 0x4
)

type Fd_t struct {
	// fops is an interface implemented via a "pointer receiver", thus fops
	// is a reference, not a value
	Fops  fdops.Fdops_i
	Perms int
}

func Copyfd(fd *Fd_t) (*Fd_t, defs.Err_t) {
	nfd := &Fd_t{}
	*nfd = *fd
	err := nfd.Fops.Reopen()
	if err != 0 {
		return nil, err
	}
	return nfd, 0
}

func Close_panic(f *Fd_t) {
	if f.Fops.Close() != 0 {
		panic("must succeed")
	}
}

type Fdtable_t struct {
	sync.Mutex
	fds []*Fd_t
	// where to start scanning for free fds
	fdstart int
	nfds    int
	nofile  uint
}

func Mkfdtable(nofile uint) *Fdtable_t {
	return &Fdtable_t{fds: make([]*Fd_t, 8), fdstart: 0, nofile: nofile}
}

// an fd table invariant: every slot in use has Fops set. the caller cannot
// set a slot without the table lock or it races a cloning task.
func (ft *Fdtable_t) Insert(f *Fd_t, perms int) (int, bool) {
	ft.Lock()
	a, b := ft.insert_inner(f, perms)
	ft.Unlock()
	return a, b
}

func (ft *Fdtable_t) insert_inner(f *Fd_t, perms int) (int, bool) {
	if uint(ft.nfds) >= ft.nofile {
		return -1, false
	}
	newfd := ft.fdstart
	found := false
	for newfd < len(ft.fds) {
		if ft.fds[newfd] == nil {
			ft.fdstart = newfd + 1
			found = true
			break
		}
		newfd++
	}
	if !found {
		// double the table
		ol := len(ft.fds)
		nl := 2 * ol
		if ft.nofile != defs.RLIM_INFINITY && nl > int(ft.nofile) {
			nl = int(ft.nofile)
			if nl < ol {
				panic("how")
			}
		}
		nfdt := make([]*Fd_t, nl, nl)
		copy(nfdt, ft.fds)
		ft.fds = nfdt
	}
	f.Perms = perms
	if ft.fds[newfd] != nil {
		panic(fmt.Sprintf("new fd exists %d", newfd))
	}
	if f.Fops == nil {
		panic("no fops")
	}
	ft.fds[newfd] = f
	ft.nfds++
	return newfd, true
}

// pair insert for pipe(2); undone atomically on failure
func (ft *Fdtable_t) Insert2(f1 *Fd_t, perms1 int, f2 *Fd_t, perms2 int) (int, int, bool) {
	ft.Lock()
	defer ft.Unlock()
	fd1, ok1 := ft.insert_inner(f1, perms1)
	if !ok1 {
		return 0, 0, false
	}
	fd2, ok2 := ft.insert_inner(f2, perms2)
	if !ok2 {
		ft.del_inner(fd1)
		return 0, 0, false
	}
	return fd1, fd2, true
}

// place f at exactly fdn (dup3); whatever was there is returned for the
// caller to close
func (ft *Fdtable_t) Insert_at(f *Fd_t, fdn, perms int) (*Fd_t, bool) {
	ft.Lock()
	defer ft.Unlock()
	if fdn < 0 || (ft.nofile != defs.RLIM_INFINITY && uint(fdn) >= ft.nofile) {
		return nil, false
	}
	for fdn >= len(ft.fds) {
		nfdt := make([]*Fd_t, 2*len(ft.fds))
		copy(nfdt, ft.fds)
		ft.fds = nfdt
	}
	old := ft.fds[fdn]
	f.Perms = perms
	ft.fds[fdn] = f
	if old == nil {
		ft.nfds++
	}
	return old, true
}

func (ft *Fdtable_t) Get(fdn int) (*Fd_t, bool) {
	ft.Lock()
	ret, ok := ft.get_inner(fdn)
	ft.Unlock()
	return ret, ok
}

func (ft *Fdtable_t) get_inner(fdn int) (*Fd_t, bool) {
	if fdn < 0 || fdn >= len(ft.fds) {
		return nil, false
	}
	ret := ft.fds[fdn]
	return ret, ret != nil
}

func (ft *Fdtable_t) Del(fdn int) (*Fd_t, bool) {
	ft.Lock()
	a, b := ft.del_inner(fdn)
	ft.Unlock()
	return a, b
}

func (ft *Fdtable_t) del_inner(fdn int) (*Fd_t, bool) {
	if fdn < 0 || fdn >= len(ft.fds) {
		return nil, false
	}
	ret := ft.fds[fdn]
	ft.fds[fdn] = nil
	ok := ret != nil
	if ok {
		ft.nfds--
		if ft.nfds < 0 {
			panic("neg nfds")
		}
		if fdn < ft.fdstart {
			ft.fdstart = fdn
		}
	}
	return ret, ok
}

// dup into the lowest free slot
func (ft *Fdtable_t) Dup(ofdn int) (int, defs.Err_t) {
	ft.Lock()
	defer ft.Unlock()
	ofd, ok := ft.get_inner(ofdn)
	if !ok {
		return 0, -defs.EBADF
	}
	cpy, err := Copyfd(ofd)
	if err != 0 {
		return 0, err
	}
	cpy.Perms &^= FD_CLOEXEC
	nfd, ok := ft.insert_inner(cpy, cpy.Perms)
	if !ok {
		Close_panic(cpy)
		return 0, -defs.EMFILE
	}
	return nfd, 0
}

// a full copy for clone without CLONE_FILES
func (ft *Fdtable_t) Copy() (*Fdtable_t, defs.Err_t) {
	ft.Lock()
	defer ft.Unlock()
	nt := Mkfdtable(ft.nofile)
	nt.fds = make([]*Fd_t, len(ft.fds))
	nt.fdstart = ft.fdstart
	for i := range ft.fds {
		if ft.fds[i] == nil {
			continue
		}
		nfd, err := Copyfd(ft.fds[i])
		// copying an fd may fail if another task closes it from
		// under us
		if err == 0 {
			nt.fds[i] = nfd
			nt.nfds++
		}
	}
	return nt, 0
}

// close everything marked close-on-exec
func (ft *Fdtable_t) Cloexec() {
	ft.Lock()
	var doom []*Fd_t
	for i := range ft.fds {
		if ft.fds[i] != nil && ft.fds[i].Perms&FD_CLOEXEC != 0 {
			doom = append(doom, ft.fds[i])
			ft.del_inner(i)
		}
	}
	ft.Unlock()
	for _, f := range doom {
		Close_panic(f)
	}
}

// close all fds on process exit
func (ft *Fdtable_t) Closeall() {
	ft.Lock()
	var doom []*Fd_t
	for i := range ft.fds {
		if ft.fds[i] != nil {
			doom = append(doom, ft.fds[i])
			ft.del_inner(i)
		}
	}
	ft.Unlock()
	for _, f := range doom {
		Close_panic(f)
	}
}

func (ft *Fdtable_t) Count() int {
	ft.Lock()
	ret := ft.nfds
	ft.Unlock()
	return ret
}

func (ft *Fdtable_t) Nofile() uint {
	ft.Lock()
	ret := ft.nofile
	ft.Unlock()
	return ret
}

func (ft *Fdtable_t) Setnofile(n uint) {
	ft.Lock()
	ft.nofile = n
	ft.Unlock()
}
