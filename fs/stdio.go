package fs

import (
	"github.com/soxsx/oskernel2023-bitethedisk/defs"
	"github.com/soxsx/oskernel2023-bitethedisk/fdops"
	"github.com/soxsx/oskernel2023-bitethedisk/proc"
	"github.com/soxsx/oskernel2023-bitethedisk/sbi"
	"github.com/soxsx/oskernel2023-bitethedisk/stat"
)

// the SBI console as an open file; fds 0-2 of initproc.
type Console_t struct {
}

func Mkconsole() *Console_t {
	return &Console_t{}
}

func (c *Console_t) Read(dst fdops.Userio_i) (int, defs.Err_t) {
	// poll the SBI console, yielding the hart between polls
	var b [1]uint8
	for {
		ch := sbi.Console_getchar()
		if ch >= 0 {
			b[0] = uint8(ch)
			break
		}
		t := proc.Current()
		if t != nil && t.Haspending() {
			return 0, -defs.EINTR
		}
		proc.Suspend_current()
	}
	// carriage return reads as newline so shells behave
	if b[0] == '\r' {
		b[0] = '\n'
	}
	return dst.Uiowrite(b[:])
}

func (c *Console_t) Write(src fdops.Userio_i) (int, defs.Err_t) {
	buf := make([]uint8, 128)
	did := 0
	for src.Remain() > 0 {
		n, err := src.Uioread(buf)
		if err != 0 {
			return did, err
		}
		if n == 0 {
			break
		}
		for _, ch := range buf[:n] {
			sbi.Console_putchar(ch)
		}
		did += n
	}
	return did, 0
}

func (c *Console_t) Pread(dst []uint8, off int) (int, defs.Err_t) {
	return 0, -defs.ESPIPE
}

func (c *Console_t) Lseek(off, whence int) (int, defs.Err_t) {
	return 0, -defs.ESPIPE
}

func (c *Console_t) Fstat(st *stat.Stat_t) defs.Err_t {
	st.Wmode(stat.S_IFCHR | 0620)
	st.Wrdev(5<<8 | 1)
	return 0
}

func (c *Console_t) Getdents(dst fdops.Userio_i) (int, defs.Err_t) {
	return 0, -defs.ENOTDIR
}

func (c *Console_t) Reopen() defs.Err_t {
	return 0
}

func (c *Console_t) Close() defs.Err_t {
	return 0
}
