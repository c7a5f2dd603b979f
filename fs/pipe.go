package fs

import (
	"sync"

	"github.com/soxsx/oskernel2023-bitethedisk/circbuf"
	"github.com/soxsx/oskernel2023-bitethedisk/defs"
	"github.com/soxsx/oskernel2023-bitethedisk/fdops"
	"github.com/soxsx/oskernel2023-bitethedisk/limits"
	"github.com/soxsx/oskernel2023-bitethedisk/proc"
	"github.com/soxsx/oskernel2023-bitethedisk/sig"
	"github.com/soxsx/oskernel2023-bitethedisk/stat"
)

const pipesz = 4096

// the shared half of a pipe. readers and writers block by suspending; the
// peer's progress or disappearance makes them runnable again.
type pipe_t struct {
	sync.Mutex
	cbuf     circbuf.Circbuf_t
	readers  int
	writers  int
}

func (p *pipe_t) closed() bool {
	return p.readers == 0 && p.writers == 0
}

type Pipefops_t struct {
	pipe    *pipe_t
	writer  bool
	nonblok bool
}

// returns (read end, write end)
func Mkpipe(nonblock bool) (*Pipefops_t, *Pipefops_t, defs.Err_t) {
	if !limits.Syslimit.Pipes.Take() {
		return nil, nil, -defs.ENFILE
	}
	p := &pipe_t{readers: 1, writers: 1}
	p.cbuf.Cb_init(pipesz)
	rf := &Pipefops_t{pipe: p, writer: false, nonblok: nonblock}
	wf := &Pipefops_t{pipe: p, writer: true, nonblok: nonblock}
	return rf, wf, 0
}

func (pf *Pipefops_t) Read(dst fdops.Userio_i) (int, defs.Err_t) {
	if pf.writer {
		return 0, -defs.EBADF
	}
	p := pf.pipe
	buf := make([]uint8, dst.Remain())
	for {
		p.Lock()
		n := p.cbuf.Read(buf)
		nw := p.writers
		p.Unlock()
		if n > 0 {
			return dst.Uiowrite(buf[:n])
		}
		if nw == 0 {
			// EOF
			return 0, 0
		}
		if pf.nonblok {
			return 0, -defs.EAGAIN
		}
		t := proc.Current()
		if t != nil && t.Haspending() {
			return 0, -defs.EINTR
		}
		proc.Suspend_current()
	}
}

func (pf *Pipefops_t) Write(src fdops.Userio_i) (int, defs.Err_t) {
	if !pf.writer {
		return 0, -defs.EBADF
	}
	p := pf.pipe
	buf := make([]uint8, src.Remain())
	n, err := src.Uioread(buf)
	if err != 0 {
		return 0, err
	}
	buf = buf[:n]
	did := 0
	for len(buf) > 0 {
		p.Lock()
		if p.readers == 0 {
			p.Unlock()
			if t := proc.Current(); t != nil {
				t.Sig_add(sig.SIGPIPE)
			}
			return did, -defs.EPIPE
		}
		c := p.cbuf.Write(buf)
		p.Unlock()
		did += c
		buf = buf[c:]
		if len(buf) == 0 {
			break
		}
		if pf.nonblok {
			if did == 0 {
				return 0, -defs.EAGAIN
			}
			break
		}
		t := proc.Current()
		if t != nil && t.Haspending() {
			if did == 0 {
				return 0, -defs.EINTR
			}
			break
		}
		proc.Suspend_current()
	}
	return did, 0
}

func (pf *Pipefops_t) Pread(dst []uint8, off int) (int, defs.Err_t) {
	return 0, -defs.ESPIPE
}

func (pf *Pipefops_t) Lseek(off, whence int) (int, defs.Err_t) {
	return 0, -defs.ESPIPE
}

func (pf *Pipefops_t) Fstat(st *stat.Stat_t) defs.Err_t {
	st.Wmode(stat.S_IFIFO | 0600)
	return 0
}

func (pf *Pipefops_t) Getdents(dst fdops.Userio_i) (int, defs.Err_t) {
	return 0, -defs.ENOTDIR
}

func (pf *Pipefops_t) Reopen() defs.Err_t {
	p := pf.pipe
	p.Lock()
	if pf.writer {
		p.writers++
	} else {
		p.readers++
	}
	p.Unlock()
	return 0
}

func (pf *Pipefops_t) Close() defs.Err_t {
	p := pf.pipe
	p.Lock()
	if pf.writer {
		p.writers--
	} else {
		p.readers--
	}
	dead := p.closed()
	p.Unlock()
	if dead {
		limits.Syslimit.Pipes.Give()
	}
	return 0
}
