package proc

import "testing"

import "github.com/soxsx/oskernel2023-bitethedisk/defs"
import "github.com/soxsx/oskernel2023-bitethedisk/sig"

func mktask(pid int) *Task_t {
	return &Task_t{Pid: pid, Tgid: pid, status: TREADY}
}

func drain(tm *Taskmgr_t) {
	tm.Lock()
	tm.ready = nil
	tm.blocked = nil
	tm.hanging = nil
	tm.cancelled = nil
	tm.Unlock()
}

func TestReadyFifo(t *testing.T) {
	tm := &Taskmgr_t{}
	a, b, c := mktask(1), mktask(2), mktask(3)
	tm.Add(a)
	tm.Add(b)
	tm.Add(c)
	for i, want := range []*Task_t{a, b, c} {
		got := tm.fetch()
		if got != want {
			t.Fatalf("fetch %v: got pid %v", i, got.Pid)
		}
	}
	if tm.fetch() != nil {
		t.Fatalf("fetch from empty")
	}
}

func TestHangingOrder(t *testing.T) {
	tm := &Taskmgr_t{}
	late, early := mktask(1), mktask(2)
	tm.hang(late, 3000)
	tm.hang(early, 1000)

	if got := tm.check_hanging(500); got != nil {
		t.Fatalf("woke before deadline")
	}
	if got := tm.check_hanging(1500); got != early {
		t.Fatalf("wrong sleeper woke")
	}
	if got := tm.check_hanging(1500); got != nil {
		t.Fatalf("late sleeper woke early")
	}
	if got := tm.check_hanging(3000); got != late {
		t.Fatalf("late sleeper missing")
	}
}

func TestUnblockRoutesByStatus(t *testing.T) {
	tm := &Taskmgr_t{}
	a := mktask(1)
	a.status = TBLOCKED
	tm.block(a)
	tm.Unblock(a, -defs.EINTR)
	if a.status != TREADY || a.blockres != -defs.EINTR {
		t.Fatalf("unblock state: %v %v", a.status, a.blockres)
	}
	if got := tm.fetch(); got != a {
		t.Fatalf("unblocked task not ready")
	}

	// waker beats the parking task: status flips before the idle loop
	// files it, so the idle loop must route it to ready itself
	b := mktask(2)
	b.status = TBLOCKED
	tm.Unblock(b, 0)
	if b.status != TREADY {
		t.Fatalf("early unblock ignored")
	}
	if got := tm.fetch(); got != nil {
		t.Fatalf("early unblock must not enqueue twice")
	}
}

func TestSignalledBlockerSurfaces(t *testing.T) {
	tm := &Taskmgr_t{}
	a := mktask(1)
	a.status = TBLOCKED
	tm.block(a)
	if got := tm.check_signalled(); got != nil {
		t.Fatalf("no signal pending yet")
	}
	a.Sig_add(sig.SIGINT)
	if got := tm.check_signalled(); got != a {
		t.Fatalf("signalled blocker not found")
	}
	// masked signals do not surface the task
	b := mktask(2)
	b.status = TBLOCKED
	b.sigmask.Add(sig.SIGINT)
	b.Sig_add(sig.SIGINT)
	drain(tm)
	tm.block(b)
	if got := tm.check_signalled(); got != nil {
		t.Fatalf("masked signal surfaced the task")
	}
}

func TestHangingSignalled(t *testing.T) {
	tm := &Taskmgr_t{}
	a := mktask(1)
	a.status = THANGING
	tm.hang(a, 1<<60)
	a.Sig_add(sig.SIGINT)
	got := tm.check_hanging_signalled()
	if got != a {
		t.Fatalf("sleeper with signal not surfaced")
	}
	if a.status != TREADY || a.blockres != -defs.EINTR {
		t.Fatalf("sleeper state: %v %v", a.status, a.blockres)
	}
	if tm.fetch() != a {
		t.Fatalf("sleeper not requeued")
	}
	if tm.check_hanging(1<<62) != nil {
		t.Fatalf("sleeper left in heap")
	}
}

func TestCancelledWaitsForOffcpu(t *testing.T) {
	tm := &Taskmgr_t{}
	a := mktask(1)
	a.status = TZOMBIE
	a.oncpu = true
	tm.cancel(a)
	// cannot reclaim a thread still running on its stack
	tm.Lock()
	n := len(tm.cancelled)
	tm.Unlock()
	if n != 1 {
		t.Fatalf("lost cancelled thread")
	}
	// the sweep must keep it while oncpu
	tm.reap_cancelled()
	tm.Lock()
	keep := tm.cancelled
	tm.Unlock()
	if len(keep) != 1 || keep[0] != a {
		t.Fatalf("reclaimed an on-cpu thread")
	}
}
