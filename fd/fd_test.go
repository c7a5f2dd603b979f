package fd

import "testing"

import "github.com/soxsx/oskernel2023-bitethedisk/defs"
import "github.com/soxsx/oskernel2023-bitethedisk/fdops"
import "github.com/soxsx/oskernel2023-bitethedisk/stat"

type fakeops_t struct {
	closes  int
	reopens int
}

func (f *fakeops_t) Read(dst fdops.Userio_i) (int, defs.Err_t)  { return 0, 0 }
func (f *fakeops_t) Write(src fdops.Userio_i) (int, defs.Err_t) { return 0, 0 }
func (f *fakeops_t) Pread(dst []uint8, off int) (int, defs.Err_t) {
	return 0, 0
}
func (f *fakeops_t) Lseek(off, whence int) (int, defs.Err_t)   { return 0, 0 }
func (f *fakeops_t) Fstat(st *stat.Stat_t) defs.Err_t          { return 0 }
func (f *fakeops_t) Getdents(dst fdops.Userio_i) (int, defs.Err_t) {
	return 0, -defs.ENOTDIR
}
func (f *fakeops_t) Reopen() defs.Err_t { f.reopens++; return 0 }
func (f *fakeops_t) Close() defs.Err_t  { f.closes++; return 0 }

func TestInsertLowest(t *testing.T) {
	ft := Mkfdtable(16)
	ops := &fakeops_t{}
	for i := 0; i < 3; i++ {
		n, ok := ft.Insert(&Fd_t{Fops: ops}, FD_READ)
		if !ok || n != i {
			t.Fatalf("fd %v got %v", i, n)
		}
	}
	ft.Del(1)
	if n, ok := ft.Insert(&Fd_t{Fops: ops}, FD_READ); !ok || n != 1 {
		t.Fatalf("freed slot not reused: %v", n)
	}
}

func TestLimit(t *testing.T) {
	ft := Mkfdtable(2)
	ops := &fakeops_t{}
	ft.Insert(&Fd_t{Fops: ops}, 0)
	ft.Insert(&Fd_t{Fops: ops}, 0)
	if _, ok := ft.Insert(&Fd_t{Fops: ops}, 0); ok {
		t.Fatalf("insert past nofile")
	}
}

func TestDupSharesFile(t *testing.T) {
	ft := Mkfdtable(16)
	ops := &fakeops_t{}
	ft.Insert(&Fd_t{Fops: ops}, FD_READ|FD_CLOEXEC)
	n, err := ft.Dup(0)
	if err != 0 {
		t.Fatalf("dup err %v", err)
	}
	if ops.reopens != 1 {
		t.Fatalf("dup must reopen: %v", ops.reopens)
	}
	nfd, _ := ft.Get(n)
	if nfd.Perms&FD_CLOEXEC != 0 {
		t.Fatalf("dup copied cloexec")
	}
}

func TestCopyIsDeep(t *testing.T) {
	ft := Mkfdtable(16)
	ops := &fakeops_t{}
	ft.Insert(&Fd_t{Fops: ops}, FD_READ)
	nt, err := ft.Copy()
	if err != 0 {
		t.Fatalf("copy err")
	}
	nt.Del(0)
	if _, ok := ft.Get(0); !ok {
		t.Fatalf("del in copy hit original")
	}
	if ops.reopens != 1 {
		t.Fatalf("copy must reopen each fd")
	}
}

func TestCloexec(t *testing.T) {
	ft := Mkfdtable(16)
	keep := &fakeops_t{}
	doom := &fakeops_t{}
	ft.Insert(&Fd_t{Fops: keep}, FD_READ)
	ft.Insert(&Fd_t{Fops: doom}, FD_READ|FD_CLOEXEC)
	ft.Cloexec()
	if _, ok := ft.Get(0); !ok {
		t.Fatalf("kept fd closed")
	}
	if _, ok := ft.Get(1); ok {
		t.Fatalf("cloexec fd survived")
	}
	if doom.closes != 1 || keep.closes != 0 {
		t.Fatalf("closes %v %v", doom.closes, keep.closes)
	}
}

func TestInsertAt(t *testing.T) {
	ft := Mkfdtable(16)
	ops := &fakeops_t{}
	old := &fakeops_t{}
	ft.Insert(&Fd_t{Fops: old}, FD_READ)
	prev, ok := ft.Insert_at(&Fd_t{Fops: ops}, 0, FD_WRITE)
	if !ok || prev == nil || prev.Fops != fdops.Fdops_i(old) {
		t.Fatalf("replace at 0")
	}
	// far slot grows the table
	if _, ok := ft.Insert_at(&Fd_t{Fops: ops}, 9, FD_READ); !ok {
		t.Fatalf("grow")
	}
	if ft.Count() != 2 {
		t.Fatalf("count %v", ft.Count())
	}
}
