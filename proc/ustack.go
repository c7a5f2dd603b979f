package proc

import (
	"github.com/soxsx/oskernel2023-bitethedisk/defs"
	"github.com/soxsx/oskernel2023-bitethedisk/mem"
	"github.com/soxsx/oskernel2023-bitethedisk/util"
	"github.com/soxsx/oskernel2023-bitethedisk/vm"
)

// auxiliary vector keys
const (
	AT_NULL   = 0
	AT_PHDR   = 3
	AT_PHENT  = 4
	AT_PHNUM  = 5
	AT_PAGESZ = 6
	AT_BASE   = 7
	AT_FLAGS  = 8
	AT_ENTRY  = 9
	AT_UID    = 11
	AT_EUID   = 12
	AT_GID    = 13
	AT_EGID   = 14
	AT_CLKTCK = 17
	AT_RANDOM = 25
	AT_SECURE = 23
)

// build the initial user stack: strings for envp then argv, 16 bytes of
// not-very-random bytes for AT_RANDOM, the auxv, the envp and argv pointer
// arrays, and argc at the final sp. sp leaves 16-byte aligned.
func (t *Task_t) init_ustack(usersp uintptr, argv, envp []string, img *vm.Elfimg_t) (uintptr, defs.Err_t) {
	as := t.Vm()
	sp := usersp

	pushbytes := func(b []uint8) (uintptr, defs.Err_t) {
		sp -= uintptr(len(b))
		if err := as.K2user(b, sp); err != 0 {
			return 0, err
		}
		return sp, 0
	}
	pushstr := func(s string) (uintptr, defs.Err_t) {
		b := make([]uint8, len(s)+1)
		copy(b, s)
		return pushbytes(b)
	}

	envptrs := make([]uintptr, len(envp))
	for i := len(envp) - 1; i >= 0; i-- {
		p, err := pushstr(envp[i])
		if err != 0 {
			return 0, err
		}
		envptrs[i] = p
	}
	argptrs := make([]uintptr, len(argv))
	for i := len(argv) - 1; i >= 0; i-- {
		p, err := pushstr(argv[i])
		if err != 0 {
			return 0, err
		}
		argptrs[i] = p
	}

	// AT_RANDOM wants 16 bytes; they are derived from the pid and the stack address
	rnd := make([]uint8, 16)
	util.Writen(rnd, 8, 0, t.Pid*0x9e3779b9)
	util.Writen(rnd, 8, 8, int(usersp))
	randva, err := pushbytes(rnd)
	if err != 0 {
		return 0, err
	}

	auxv := [][2]uintptr{
		{AT_PHDR, img.Phbase},
		{AT_PHENT, 56},
		{AT_PHNUM, uintptr(img.Phnum)},
		{AT_PAGESZ, uintptr(mem.PGSIZE)},
		{AT_BASE, 0},
		{AT_FLAGS, 0},
		{AT_ENTRY, img.Entry},
		{AT_UID, 0},
		{AT_EUID, 0},
		{AT_GID, 0},
		{AT_EGID, 0},
		{AT_SECURE, 0},
		{AT_CLKTCK, 100},
		{AT_RANDOM, randva},
		{AT_NULL, 0},
	}

	// words below here: argc, argv[], 0, envp[], 0, auxv pairs
	nwords := 1 + len(argv) + 1 + len(envp) + 1 + 2*len(auxv)
	sp &^= 15
	if nwords%2 != 0 {
		sp -= 8
	}

	wbuf := make([]uint8, nwords*8)
	off := 0
	put := func(v uintptr) {
		util.Writen(wbuf, 8, off, int(v))
		off += 8
	}
	put(uintptr(len(argv)))
	for _, p := range argptrs {
		put(p)
	}
	put(0)
	for _, p := range envptrs {
		put(p)
	}
	put(0)
	for _, kv := range auxv {
		put(kv[0])
		put(kv[1])
	}
	sp -= uintptr(nwords * 8)
	if err := as.K2user(wbuf, sp); err != 0 {
		return 0, err
	}
	if sp%16 != 0 {
		panic("unaligned user sp")
	}
	return sp, 0
}
