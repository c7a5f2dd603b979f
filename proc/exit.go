package proc

import (
	"github.com/soxsx/oskernel2023-bitethedisk/defs"
	"github.com/soxsx/oskernel2023-bitethedisk/sig"
	"github.com/soxsx/oskernel2023-bitethedisk/vm"
)

// initproc adopts orphans; installed by the kernel once pid 1 exists.
var Initproc *Task_t

// terminate the calling task and schedule away. never returns. threads are
// handed to the cancellation monitor; process leaders become zombies and
// wait for their parent.
func Exit_current(code int, group bool) {
	t := Current()
	if t == nil {
		panic("exit from idle")
	}
	if t == Initproc {
		panic("killed init")
	}

	if group || t.Isleader() {
		t.Doomall()
	}

	// CHILD_CLEARTID: zero the word and wake one futex waiter
	t.Lock()
	ctid := t.clearctid
	t.clearctid = 0
	t.Unlock()
	if ctid != 0 {
		t.Vm().Userwriten(ctid, 4, 0)
		Futex_wake(t, ctid, 1)
	}

	if t.Isleader() {
		// the thread group dies with the leader; threads still running
		// are doomed above and reap themselves on their next trap.
		t.Fds().Closeall()

		// orphans go to initproc
		t.Lock()
		kids := t.children
		t.children = nil
		t.Unlock()
		adopter := Initproc
		for _, c := range kids {
			c.Lock()
			c.parent = adopter
			c.Unlock()
		}
		if adopter != nil && len(kids) > 0 {
			adopter.Lock()
			adopter.children = append(adopter.children, kids...)
			adopter.Unlock()
		}
	}

	t.Lock()
	t.exitcode = code
	t.status = TZOMBIE
	parent := t.parent
	isthread := !t.Isleader()
	t.Unlock()

	if isthread {
		// unlink from the parent's children and defer teardown
		if parent != nil {
			parent.Lock()
			for i, c := range parent.children {
				if c == t {
					parent.children = append(parent.children[:i],
						parent.children[i+1:]...)
					break
				}
			}
			parent.Unlock()
		}
		Tm.cancel(t)
	} else if parent != nil {
		exitsig := t.exitsig
		if exitsig == 0 {
			exitsig = sig.SIGCHLD
		}
		parent.Sig_add(exitsig)
	}

	sched_to_idle(t)
	panic("zombie scheduled")
}

// terminate with a fatal signal's disposition (SIGSEGV, SIGILL, ...)
func Exit_signalled(signo int) {
	t := Current()
	t.Lock()
	t.termsig = signo
	t.Unlock()
	Exit_current(defs.Mkexitsig(signo), true)
}

// deferred teardown of an exited thread, run from another hart's (or this
// hart's next) scheduler pass: kernel stack, trap-context slot, identity.
func reclaim_thread(t *Task_t) {
	as := t.Vm()
	as.Lock_pmap()
	as.Unmap_trapctx(t.Pid)
	as.Unlock_pmap()
	vm.Kstack_unmap(t.Pid)
	Task_del(t.Pid)
	pid_del()
}

// wait status encoding
func mkstatus(t *Task_t) int {
	t.Lock()
	defer t.Unlock()
	if t.termsig != 0 {
		return defs.Mkexitsig(t.termsig)
	}
	return defs.Mkexitcode(t.exitcode)
}

// wait4: reap a zombie child matching pid (-1 for any). blocks unless
// WNOHANG, in which case 0 is returned when no child is ready. a reaped
// task must be fully off-cpu so its kernel stack can go.
func Wait4(t *Task_t, pid int, statusva uintptr, options int, rusageva uintptr) (int, defs.Err_t) {
	for {
		t.Lock()
		nmatch := 0
		var zomb *Task_t
		for _, c := range t.children {
			if pid != defs.WAIT_ANY && c.Pid != pid {
				continue
			}
			if !c.Isleader() {
				// threads are not wait()ed for
				continue
			}
			nmatch++
			c.Lock()
			if c.status == TZOMBIE && !c.oncpu {
				zomb = c
			}
			c.Unlock()
			if zomb != nil {
				break
			}
		}
		if zomb != nil {
			for i, c := range t.children {
				if c == zomb {
					t.children = append(t.children[:i], t.children[i+1:]...)
					break
				}
			}
		}
		t.Unlock()

		if zomb != nil {
			st := mkstatus(zomb)
			if statusva != 0 {
				if err := t.Vm().Userwriten(statusva, 4, st); err != 0 {
					return 0, err
				}
			}
			if rusageva != 0 {
				ru := zomb.Atime.Fetch()
				if err := t.Vm().K2user(ru, rusageva); err != 0 {
					return 0, err
				}
			}
			t.Catime.Add(&zomb.Atime)
			t.Catime.Add(&zomb.Catime)
			reap_process(zomb)
			return zomb.Pid, 0
		}
		if nmatch == 0 {
			return 0, -defs.ECHILD
		}
		if options&defs.WNOHANG != 0 {
			return 0, 0
		}
		// a pending unmasked signal interrupts the wait
		t.Lock()
		intr := t.pending&^t.sigmask != 0
		t.Unlock()
		if intr {
			return 0, -defs.EINTR
		}
		Suspend_current()
	}
}

// release everything a zombie process still owns
func reap_process(t *Task_t) {
	as := t.Vm()
	as.Lock_pmap()
	as.Unmap_trapctx(t.Pid)
	as.Unlock_pmap()
	as.Uvmfree()
	vm.Kstack_unmap(t.Pid)
	Task_del(t.Pid)
	pid_del()
}

// post a signal to the task named by pid; wakes it if blocked or sleeping.
func Kill(pid, signo int) defs.Err_t {
	t, ok := Task_check(pid)
	if !ok {
		return -defs.ESRCH
	}
	if signo == 0 {
		return 0
	}
	if signo < 1 || signo > sig.MAXSIG {
		return -defs.EINVAL
	}
	t.Sig_add(signo)
	// a blocked or sleeping task with a now-deliverable signal is made
	// runnable on the next scheduler pass; nothing more to do here.
	return 0
}

// post to every task in a thread group
func Killtg(tgid, signo int) defs.Err_t {
	found := false
	Ptable.Iter(func(pid int, t *Task_t) bool {
		if t.Tgid == tgid {
			found = true
			if signo != 0 {
				t.Sig_add(signo)
			}
		}
		return true
	})
	if !found {
		return -defs.ESRCH
	}
	return 0
}
