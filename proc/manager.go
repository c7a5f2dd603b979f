package proc

import (
	"container/heap"
	"sync"

	"github.com/soxsx/oskernel2023-bitethedisk/defs"
)

// a sleeping task and its absolute wake-up time in ns
type hangtask_t struct {
	wakens int
	task   *Task_t
}

type hangheap_t []hangtask_t

func (h hangheap_t) Len() int            { return len(h) }
func (h hangheap_t) Less(i, j int) bool  { return h[i].wakens < h[j].wakens }
func (h hangheap_t) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *hangheap_t) Push(x interface{}) { *h = append(*h, x.(hangtask_t)) }
func (h *hangheap_t) Pop() interface{} {
	old := *h
	n := len(old)
	ret := old[n-1]
	*h = old[:n-1]
	return ret
}

// the global task manager: ready FIFO, blocked set, hanging min-heap, and
// the cancellation monitor for exited threads. one mutex covers all four;
// every hart's scheduler loop contends here.
type Taskmgr_t struct {
	sync.Mutex
	ready     []*Task_t
	blocked   []*Task_t
	hanging   hangheap_t
	cancelled []*Task_t
}

var Tm = &Taskmgr_t{}

func (tm *Taskmgr_t) Add(t *Task_t) {
	t.Lock()
	t.status = TREADY
	t.Unlock()
	tm.Lock()
	tm.ready = append(tm.ready, t)
	tm.Unlock()
}

func (tm *Taskmgr_t) fetch() *Task_t {
	tm.Lock()
	defer tm.Unlock()
	if len(tm.ready) == 0 {
		return nil
	}
	ret := tm.ready[0]
	tm.ready = tm.ready[1:]
	return ret
}

func (tm *Taskmgr_t) hang(t *Task_t, wakens int) {
	tm.Lock()
	heap.Push(&tm.hanging, hangtask_t{wakens: wakens, task: t})
	tm.Unlock()
}

func (tm *Taskmgr_t) block(t *Task_t) {
	tm.Lock()
	tm.blocked = append(tm.blocked, t)
	tm.Unlock()
}

// the earliest sleeper whose wake-up time has passed
func (tm *Taskmgr_t) check_hanging(nowns int) *Task_t {
	tm.Lock()
	defer tm.Unlock()
	if len(tm.hanging) == 0 || tm.hanging[0].wakens > nowns {
		return nil
	}
	ht := heap.Pop(&tm.hanging).(hangtask_t)
	return ht.task
}

// a blocked task with a deliverable signal, if any
func (tm *Taskmgr_t) check_signalled() *Task_t {
	tm.Lock()
	defer tm.Unlock()
	for _, t := range tm.blocked {
		t.Lock()
		intr := !t.pending.Empty() && t.pending&^t.sigmask != 0
		t.Unlock()
		if intr {
			return t
		}
	}
	return nil
}

// move a blocked task to ready with the given release status. three cases:
// fully parked (in the blocked list): move it to ready here. mid-park
// (status already TBLOCKED, list entry not filed yet): flip the status and
// let the parking hart route it to ready. still running (about to block):
// leave a wake pending so Block_current returns without switching.
func (tm *Taskmgr_t) Unblock(t *Task_t, res defs.Err_t) {
	tm.Lock()
	found := false
	for i, b := range tm.blocked {
		if b == t {
			tm.blocked = append(tm.blocked[:i], tm.blocked[i+1:]...)
			found = true
			break
		}
	}
	tm.Unlock()
	t.Lock()
	t.blockres = res
	if t.status == TRUNNING {
		t.wakepend = true
	} else {
		t.status = TREADY
	}
	t.Unlock()
	if found {
		tm.Lock()
		tm.ready = append(tm.ready, t)
		tm.Unlock()
	}
}

// remove a sleeper early (signal delivery during nanosleep)
func (tm *Taskmgr_t) Unhang(t *Task_t, res defs.Err_t) bool {
	tm.Lock()
	found := false
	for i := range tm.hanging {
		if tm.hanging[i].task == t {
			heap.Remove(&tm.hanging, i)
			found = true
			break
		}
	}
	tm.Unlock()
	if !found {
		return false
	}
	t.Lock()
	t.blockres = res
	t.status = TREADY
	t.Unlock()
	tm.Lock()
	tm.ready = append(tm.ready, t)
	tm.Unlock()
	return true
}

// a hanging task with a deliverable signal (interrupted nanosleep); the
// task is moved straight to ready with -EINTR.
func (tm *Taskmgr_t) check_hanging_signalled() *Task_t {
	tm.Lock()
	var found *Task_t
	for i := range tm.hanging {
		t := tm.hanging[i].task
		t.Lock()
		intr := !t.pending.Empty() && t.pending&^t.sigmask != 0
		t.Unlock()
		if intr {
			heap.Remove(&tm.hanging, i)
			found = t
			break
		}
	}
	tm.Unlock()
	if found == nil {
		return nil
	}
	found.Lock()
	found.blockres = -defs.EINTR
	found.status = TREADY
	found.Unlock()
	tm.Lock()
	tm.ready = append(tm.ready, found)
	tm.Unlock()
	return found
}

// defer resource teardown of an exited thread to another scheduler pass; a
// thread cannot free the kernel stack it is executing on.
func (tm *Taskmgr_t) cancel(t *Task_t) {
	tm.Lock()
	tm.cancelled = append(tm.cancelled, t)
	tm.Unlock()
}

// first step of every scheduler pass: tear down threads that exited since
// the last one. skips any task still mid-switch on its own stack.
func (tm *Taskmgr_t) reap_cancelled() {
	tm.Lock()
	var doom []*Task_t
	var keep []*Task_t
	for _, t := range tm.cancelled {
		t.Lock()
		off := !t.oncpu
		t.Unlock()
		if off {
			doom = append(doom, t)
		} else {
			keep = append(keep, t)
		}
	}
	tm.cancelled = keep
	tm.Unlock()
	for _, t := range doom {
		reclaim_thread(t)
	}
}
