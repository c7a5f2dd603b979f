// Package timer wraps the time CSR and the SBI timer compare. each hart arms
// the compare once at boot; after that it is rearmed only from trap_return;
// see the trap package for the discipline.
package timer

import (
	"github.com/soxsx/oskernel2023-bitethedisk/mem"
	"github.com/soxsx/oskernel2023-bitethedisk/riscv"
	"github.com/soxsx/oskernel2023-bitethedisk/sbi"
)

// scheduling quantum
const TICKS_PER_SEC = 100

const NSEC_PER_SEC = 1_000_000_000
const USEC_PER_SEC = 1_000_000

func Get_ticks() int {
	return int(riscv.R_time())
}

func Get_time_ns() int {
	t := Get_ticks()
	sec := t / mem.TIMEBASE_FREQ
	frac := t % mem.TIMEBASE_FREQ
	return sec*NSEC_PER_SEC + frac*(NSEC_PER_SEC/mem.TIMEBASE_FREQ)
}

func Get_time_us() int {
	return Get_time_ns() / 1000
}

// arm the next quantum expiry
func Set_next_trigger() {
	sbi.Set_timer(uintptr(Get_ticks() + mem.TIMEBASE_FREQ/TICKS_PER_SEC))
}

// timeval/timespec wire formats
type Timeval_t struct {
	Sec  int64
	Usec int64
}

type Timespec_t struct {
	Sec  int64
	Nsec int64
}

func Mktimeval(us int) Timeval_t {
	return Timeval_t{Sec: int64(us / USEC_PER_SEC), Usec: int64(us % USEC_PER_SEC)}
}

func Mktimespec(ns int) Timespec_t {
	return Timespec_t{Sec: int64(ns / NSEC_PER_SEC), Nsec: int64(ns % NSEC_PER_SEC)}
}

func (tv Timeval_t) Us() int {
	return int(tv.Sec)*USEC_PER_SEC + int(tv.Usec)
}

func (ts Timespec_t) Ns() int {
	return int(ts.Sec)*NSEC_PER_SEC + int(ts.Nsec)
}
