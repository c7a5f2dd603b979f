package proc

import (
	"sync"

	"github.com/soxsx/oskernel2023-bitethedisk/defs"
	"github.com/soxsx/oskernel2023-bitethedisk/limits"
	"github.com/soxsx/oskernel2023-bitethedisk/mem"
	"github.com/soxsx/oskernel2023-bitethedisk/util"
)

// futexes are keyed by the physical address of the word so threads of one
// process and (eventually) shared mappings agree on the queue.
type fwaiter_t struct {
	task *Task_t
	// absolute ns; 0 means no deadline
	deadlinens int
}

type futexq_t struct {
	chain []fwaiter_t
}

var futexl sync.Mutex
var allfutex = make(map[mem.Pa_t]*futexq_t)

// canonical queue key for a user word
func futexkey(t *Task_t, uaddr uintptr) (mem.Pa_t, defs.Err_t) {
	as := t.Vm()
	as.Lock_pmap()
	defer as.Unlock_pmap()
	// fault the page in if it is lazy
	if _, err := as.Userdmap8_inner(uaddr, false); err != 0 {
		return 0, -defs.EFAULT
	}
	pa, ok := as.Translate_pa(uaddr)
	if !ok {
		return 0, -defs.EFAULT
	}
	return pa &^ 3, 0
}

// the current 32-bit value of the futex word
func futexload(pa mem.Pa_t) int {
	return util.Readn(mem.Dmap8(pa), 4, 0)
}

// FUTEX_WAIT: atomically check *uaddr == val and sleep, optionally with an
// absolute deadline. the caller blocks via the scheduler; the return is the
// release status.
func Futex_wait(t *Task_t, uaddr uintptr, val int, deadlinens int) defs.Err_t {
	pa, err := futexkey(t, uaddr)
	if err != 0 {
		return err
	}
	futexl.Lock()
	if futexload(pa) != int(int32(val)) {
		futexl.Unlock()
		return -defs.EAGAIN
	}
	fq, ok := allfutex[pa]
	if !ok {
		if len(allfutex) >= limits.Syslimit.Futexes {
			futexl.Unlock()
			return -defs.ENOMEM
		}
		fq = &futexq_t{}
		allfutex[pa] = fq
	}
	fq.chain = append(fq.chain, fwaiter_t{task: t, deadlinens: deadlinens})
	futexl.Unlock()

	res := Block_current()
	if res != 0 {
		// timed out or signalled; drop our queue entry if the waker
		// has not already
		futexl.Lock()
		futex_unlink(pa, t)
		futexl.Unlock()
	}
	return res
}

// must hold futexl
func futex_unlink(pa mem.Pa_t, t *Task_t) {
	fq, ok := allfutex[pa]
	if !ok {
		return
	}
	for i := range fq.chain {
		if fq.chain[i].task == t {
			fq.chain = append(fq.chain[:i], fq.chain[i+1:]...)
			break
		}
	}
	if len(fq.chain) == 0 {
		delete(allfutex, pa)
	}
}

// FUTEX_WAKE: release up to n waiters; returns how many.
func Futex_wake(t *Task_t, uaddr uintptr, n int) (int, defs.Err_t) {
	pa, err := futexkey(t, uaddr)
	if err != 0 {
		return 0, err
	}
	futexl.Lock()
	fq, ok := allfutex[pa]
	var woke []*Task_t
	if ok {
		for n > 0 && len(fq.chain) > 0 {
			woke = append(woke, fq.chain[0].task)
			fq.chain = fq.chain[1:]
			n--
		}
		if len(fq.chain) == 0 {
			delete(allfutex, pa)
		}
	}
	futexl.Unlock()
	for _, w := range woke {
		Tm.Unblock(w, 0)
	}
	return len(woke), 0
}

// FUTEX_CMP_REQUEUE: wake nwake, move up to nreq of the rest to uaddr2.
func Futex_requeue(t *Task_t, uaddr uintptr, val, nwake int, uaddr2 uintptr,
	nreq int, cmp bool) (int, defs.Err_t) {
	pa, err := futexkey(t, uaddr)
	if err != 0 {
		return 0, err
	}
	pa2, err := futexkey(t, uaddr2)
	if err != 0 {
		return 0, err
	}
	futexl.Lock()
	if cmp && futexload(pa) != int(int32(val)) {
		futexl.Unlock()
		return 0, -defs.EAGAIN
	}
	fq, ok := allfutex[pa]
	var woke []*Task_t
	moved := 0
	if ok {
		for nwake > 0 && len(fq.chain) > 0 {
			woke = append(woke, fq.chain[0].task)
			fq.chain = fq.chain[1:]
			nwake--
		}
		if len(fq.chain) > 0 && nreq > 0 {
			fq2, ok2 := allfutex[pa2]
			if !ok2 {
				fq2 = &futexq_t{}
				allfutex[pa2] = fq2
			}
			for moved < nreq && len(fq.chain) > 0 {
				fq2.chain = append(fq2.chain, fq.chain[0])
				fq.chain = fq.chain[1:]
				moved++
			}
		}
		if len(fq.chain) == 0 {
			delete(allfutex, pa)
		}
	}
	futexl.Unlock()
	for _, w := range woke {
		Tm.Unblock(w, 0)
	}
	return len(woke) + moved, 0
}

// scheduler-pass sweep: the first waiter anywhere whose deadline expired.
// the entry is unlinked here; the caller unblocks the task with -ETIMEDOUT.
func futex_sweep(nowns int) *Task_t {
	futexl.Lock()
	defer futexl.Unlock()
	for pa, fq := range allfutex {
		for i := range fq.chain {
			w := fq.chain[i]
			if w.deadlinens != 0 && nowns >= w.deadlinens {
				fq.chain = append(fq.chain[:i], fq.chain[i+1:]...)
				if len(fq.chain) == 0 {
					delete(allfutex, pa)
				}
				return w.task
			}
		}
	}
	return nil
}
