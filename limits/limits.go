package limits

import "sync/atomic"
import "unsafe"

type Sysatomic_t int64

// system-wide ceilings, fixed at boot
type Syslimit_t struct {
	// total tasks (processes + threads)
	Systasks int
	// total futex wait queues
	Futexes int
	// total pipes
	Pipes Sysatomic_t
	// map areas per address space
	Novma uint
}

var Syslimit *Syslimit_t = MkSysLimit()

func MkSysLimit() *Syslimit_t {
	return &Syslimit_t{
		Systasks: 1 << 10,
		Futexes:  1024,
		Pipes:    1e4,
		Novma:    1 << 8,
	}
}

func (s *Sysatomic_t) _aptr() *int64 {
	return (*int64)(unsafe.Pointer(s))
}

func (s *Sysatomic_t) Given(_n uint) {
	n := int64(_n)
	atomic.AddInt64(s._aptr(), n)
}

func (s *Sysatomic_t) Taken(_n uint) bool {
	n := int64(_n)
	g := atomic.AddInt64(s._aptr(), -n)
	if g >= 0 {
		return true
	}
	atomic.AddInt64(s._aptr(), n)
	return false
}

// returns false if the limit has been reached.
func (s *Sysatomic_t) Take() bool {
	return s.Taken(1)
}

func (s *Sysatomic_t) Give() {
	s.Given(1)
}

// per-process limits, adjusted by prlimit64
type Rlimit_t struct {
	Cur uint
	Max uint
}

type Ulimit_t struct {
	Stack  Rlimit_t
	Nofile Rlimit_t
	Noproc Rlimit_t
}

func Mkulimit(stacksz int) Ulimit_t {
	return Ulimit_t{
		Stack:  Rlimit_t{Cur: uint(stacksz), Max: uint(stacksz)},
		Nofile: Rlimit_t{Cur: 1024, Max: 1024},
		Noproc: Rlimit_t{Cur: 1 << 10, Max: 1 << 10},
	}
}
