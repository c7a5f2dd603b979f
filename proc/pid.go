package proc

import (
	"sync/atomic"

	"github.com/soxsx/oskernel2023-bitethedisk/hashtable"
	"github.com/soxsx/oskernel2023-bitethedisk/limits"
)

// pids are drawn from a monotonic pool and never reused, so a tid names its
// trap-context slot for the life of the system. initproc gets pid 1.
var _atomicpid int32

// total live tasks (processes and threads)
var ntasks int64

func pid_new() (int, bool) {
	if atomic.AddInt64(&ntasks, 1) > int64(limits.Syslimit.Systasks) {
		atomic.AddInt64(&ntasks, -1)
		return 0, false
	}
	return int(atomic.AddInt32(&_atomicpid, 1)), true
}

func pid_del() {
	if atomic.AddInt64(&ntasks, -1) < 0 {
		panic("oh shite")
	}
}

type ptable_t struct {
	ht *hashtable.Hashtable_t
}

func (pt *ptable_t) Get(pid int) (*Task_t, bool) {
	ret, ok := pt.ht.Get(int32(pid))
	if ok {
		return ret.(*Task_t), true
	}
	return nil, false
}

func (pt *ptable_t) Set(pid int, t *Task_t) {
	pt.ht.Set(int32(pid), t)
}

func (pt *ptable_t) Del(pid int) {
	pt.ht.Del(int32(pid))
}

// Iter may execute concurrently with other lookups, inserts, and deletes
func (pt *ptable_t) Iter(f func(int, *Task_t) bool) {
	pt.ht.Iter(func(key, value interface{}) bool {
		return f(int(key.(int32)), value.(*Task_t))
	})
}

var Ptable = ptable_t{
	ht: hashtable.MkHash(limits.Syslimit.Systasks),
}

func Task_check(pid int) (*Task_t, bool) {
	return Ptable.Get(pid)
}

func Task_del(pid int) {
	Ptable.Del(pid)
}
