package proc

import (
	"github.com/soxsx/oskernel2023-bitethedisk/defs"
	"github.com/soxsx/oskernel2023-bitethedisk/riscv"
	"github.com/soxsx/oskernel2023-bitethedisk/timer"
)

const MAXHARTS = 8

// per-hart scheduling state: the running task and the idle loop's own
// register context.
type Processor_t struct {
	current *Task_t
	idlecx  Taskctx_t
}

var processors [MAXHARTS]Processor_t

func Cur() *Processor_t {
	return &processors[riscv.Hartid()]
}

// the task running on this hart, or nil from the idle loop
func Current() *Task_t {
	return Cur().current
}

func Currentpid() int {
	t := Current()
	if t == nil {
		return -1
	}
	return t.Pid
}

// the per-hart scheduler loop. never returns. priority: reclaim exited
// threads, wake expired sleepers, surface signalled/expired blockers, then
// the ready FIFO; idle harts wait for an interrupt.
func Run_tasks() {
	p := Cur()
	for {
		Tm.reap_cancelled()
		now := timer.Get_time_ns()
		if t := Tm.check_hanging(now); t != nil {
			p.run(t)
			continue
		}
		if t := Tm.check_hanging_signalled(); t != nil {
			// back on ready; the signal fires at its next trap return
			continue
		}
		if t := Tm.check_signalled(); t != nil {
			Tm.Unblock(t, -defs.EINTR)
			continue
		}
		if t := futex_sweep(now); t != nil {
			Tm.Unblock(t, -defs.ETIMEDOUT)
			continue
		}
		if t := Tm.fetch(); t != nil {
			p.run(t)
			continue
		}
		riscv.Wfi()
	}
}

// install the task and switch to it. control returns here when the task
// parks itself; the task is then routed to the queue its status names.
func (p *Processor_t) run(t *Task_t) {
	t.Lock()
	if t.status == TZOMBIE {
		// doomed while queued; drop it
		t.Unlock()
		return
	}
	t.status = TRUNNING
	t.oncpu = true
	t.Unlock()
	p.current = t

	cswitch(&p.idlecx, &t.tcx)

	p.current = nil
	t.Lock()
	t.oncpu = false
	st := t.status
	wakens := t.wakens
	t.Unlock()
	switch st {
	case TREADY:
		Tm.Lock()
		Tm.ready = append(Tm.ready, t)
		Tm.Unlock()
	case TBLOCKED:
		Tm.block(t)
	case THANGING:
		Tm.hang(t, wakens)
	case TZOMBIE:
		// processes wait for their parent; threads for the monitor
	default:
		panic("weird park status")
	}
}

// give up the hart and go back on the ready queue
func Suspend_current() {
	t := Current()
	if t == nil {
		panic("suspend from idle")
	}
	t.Lock()
	t.status = TREADY
	t.Unlock()
	sched_to_idle(t)
}

// park the caller as blocked; returns the release status the waker set
// (0, -EINTR, or -ETIMEDOUT). a wake that raced the park wins and the
// caller never switches away.
func Block_current() defs.Err_t {
	t := Current()
	t.Lock()
	if t.wakepend {
		t.wakepend = false
		ret := t.blockres
		t.Unlock()
		return ret
	}
	t.status = TBLOCKED
	t.blockres = 0
	t.Unlock()
	sched_to_idle(t)
	t.Lock()
	ret := t.blockres
	t.Unlock()
	return ret
}

// park the caller until the absolute time wakens (ns)
func Hang_current(wakens int) defs.Err_t {
	t := Current()
	t.Lock()
	t.status = THANGING
	t.wakens = wakens
	t.blockres = 0
	t.Unlock()
	sched_to_idle(t)
	t.Lock()
	ret := t.blockres
	t.Unlock()
	return ret
}

func sched_to_idle(t *Task_t) {
	cswitch(&t.tcx, &Cur().idlecx)
}
