// Package accnt tracks per-task user/supervisor time. stamps are taken at
// every mode transition in the trap path; times(2) and wait4 rusage read
// the sums.
package accnt

import "sync"
import "sync/atomic"

import "github.com/soxsx/oskernel2023-bitethedisk/util"

type Accnt_t struct {
	// nanoseconds
	Userns int64
	Sysns  int64
	// for getting consistent snapshot of both times; not always needed
	sync.Mutex
}

func (a *Accnt_t) Utadd(delta int) {
	atomic.AddInt64(&a.Userns, int64(delta))
}

func (a *Accnt_t) Systadd(delta int) {
	atomic.AddInt64(&a.Sysns, int64(delta))
}

func (a *Accnt_t) Add(n *Accnt_t) {
	a.Lock()
	a.Userns += atomic.LoadInt64(&n.Userns)
	a.Sysns += atomic.LoadInt64(&n.Sysns)
	a.Unlock()
}

func (a *Accnt_t) Fetch() []uint8 {
	a.Lock()
	ru := a.To_rusage()
	a.Unlock()
	return ru
}

// two timevals: user then system
func (a *Accnt_t) To_rusage() []uint8 {
	words := 4
	ret := make([]uint8, words*8)
	totv := func(nano int64) (int, int) {
		secs := int(nano / 1e9)
		usecs := int((nano % 1e9) / 1000)
		return secs, usecs
	}
	off := 0
	s, us := totv(a.Userns)
	util.Writen(ret, 8, off, s)
	off += 8
	util.Writen(ret, 8, off, us)
	off += 8
	s, us = totv(a.Sysns)
	util.Writen(ret, 8, off, s)
	off += 8
	util.Writen(ret, 8, off, us)
	return ret
}

// struct tms for times(2): utime, stime, then child totals, in clock ticks
// (we report nanoseconds scaled to 100Hz ticks).
func Totms(mine, childs *Accnt_t) []uint8 {
	ret := make([]uint8, 4*8)
	tick := func(ns int64) int {
		return int(ns / (1e9 / 100))
	}
	util.Writen(ret, 8, 0, tick(atomic.LoadInt64(&mine.Userns)))
	util.Writen(ret, 8, 8, tick(atomic.LoadInt64(&mine.Sysns)))
	util.Writen(ret, 8, 16, tick(atomic.LoadInt64(&childs.Userns)))
	util.Writen(ret, 8, 24, tick(atomic.LoadInt64(&childs.Sysns)))
	return ret
}
