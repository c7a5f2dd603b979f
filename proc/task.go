package proc

import (
	"sync"
	"unsafe"

	"github.com/soxsx/oskernel2023-bitethedisk/accnt"
	"github.com/soxsx/oskernel2023-bitethedisk/defs"
	"github.com/soxsx/oskernel2023-bitethedisk/fd"
	"github.com/soxsx/oskernel2023-bitethedisk/limits"
	"github.com/soxsx/oskernel2023-bitethedisk/mem"
	"github.com/soxsx/oskernel2023-bitethedisk/sig"
	"github.com/soxsx/oskernel2023-bitethedisk/ustr"
	"github.com/soxsx/oskernel2023-bitethedisk/vm"
)

type status_t int

const (
	TREADY status_t = iota
	TRUNNING
	TBLOCKED
	THANGING
	TZOMBIE
)

// callee-saved register context for cswitch
type Taskctx_t struct {
	ra uintptr
	sp uintptr
	s  [12]uintptr
}

// a fresh context that enters the task through task_entry, which falls into
// trap_return on the task's own kernel stack.
func (tc *Taskctx_t) init_first(kstacktop uintptr) {
	tc.ra = task_entry_pc()
	tc.sp = kstacktop
}

// ITIMER_REAL state, nanoseconds; nextns == 0 means disarmed
type itimer_t struct {
	nextns     int
	intervalns int
}

// the task control block: a process leader or one of its threads. the
// shared half (address space, fd table, signal actions, cwd, rlimits) sits
// behind resl and is shared or copied per clone flags; the inner half is
// guarded by the embedded mutex.
type Task_t struct {
	Pid  int
	Tgid int

	// shared resources
	resl       sync.RWMutex
	vmas       *vm.Vm_t
	fds        *fd.Fdtable_t
	sigacts    *sig.Sigacts_t
	cwd        ustr.Ustr
	ulim       limits.Ulimit_t
	robustlist uintptr

	// rusage: my time, and reaped children's time
	Atime  accnt.Accnt_t
	Catime accnt.Accnt_t

	// inner half
	sync.Mutex
	status    status_t
	oncpu     bool
	doomed    bool
	exitcode  int
	exitsig   int
	tcx       Taskctx_t
	p_trapcx  mem.Pa_t
	pending   sig.Sigset_t
	sigmask   sig.Sigset_t
	clearctid uintptr
	parent    *Task_t
	children  []*Task_t
	itimer    itimer_t
	// why a blocked task was released: 0, -EINTR, or -ETIMEDOUT
	blockres defs.Err_t
	// a wake arrived while the task was still running toward its park
	wakepend bool
	// absolute wake-up time for a task parking as THANGING
	wakens int
	// terminated-by-signal number for wait status encoding
	termsig int
	// ns stamps of the last user/supervisor entry
	lastumode int
	lastsmode int
}

// true iff this task is a process leader
func (t *Task_t) Isleader() bool {
	return t.Pid == t.Tgid
}

func (t *Task_t) Doomed() bool {
	t.Lock()
	ret := t.doomed
	t.Unlock()
	return ret
}

// the trap-context page, as the trampoline sees it
func (t *Task_t) Trapctx() *[defs.TFSIZE]uintptr {
	return (*[defs.TFSIZE]uintptr)(unsafe.Pointer(mem.Dmap(t.p_trapcx)))
}

func (t *Task_t) Vm() *vm.Vm_t {
	t.resl.RLock()
	ret := t.vmas
	t.resl.RUnlock()
	return ret
}

func (t *Task_t) Fds() *fd.Fdtable_t {
	t.resl.RLock()
	ret := t.fds
	t.resl.RUnlock()
	return ret
}

func (t *Task_t) Sigacts() *sig.Sigacts_t {
	t.resl.RLock()
	ret := t.sigacts
	t.resl.RUnlock()
	return ret
}

func (t *Task_t) Cwd() ustr.Ustr {
	t.resl.RLock()
	ret := t.cwd.Copy()
	t.resl.RUnlock()
	return ret
}

func (t *Task_t) Chdir(p ustr.Ustr) {
	t.resl.Lock()
	t.cwd = p
	t.resl.Unlock()
}

func (t *Task_t) Ulim() limits.Ulimit_t {
	t.resl.RLock()
	ret := t.ulim
	t.resl.RUnlock()
	return ret
}

func (t *Task_t) Setrlimit(res int, cur, max uint) {
	t.resl.Lock()
	switch res {
	case defs.RLIMIT_STACK:
		t.ulim.Stack = limits.Rlimit_t{Cur: cur, Max: max}
	case defs.RLIMIT_NOFILE:
		t.ulim.Nofile = limits.Rlimit_t{Cur: cur, Max: max}
	case defs.RLIMIT_NPROC:
		t.ulim.Noproc = limits.Rlimit_t{Cur: cur, Max: max}
	}
	t.resl.Unlock()
}

func (t *Task_t) Robustlist() uintptr {
	t.resl.RLock()
	ret := t.robustlist
	t.resl.RUnlock()
	return ret
}

func (t *Task_t) Setrobustlist(head uintptr) {
	t.resl.Lock()
	t.robustlist = head
	t.resl.Unlock()
}

func (t *Task_t) Exitcode() int {
	t.Lock()
	ret := t.exitcode
	t.Unlock()
	return ret
}

func (t *Task_t) Ppid() int {
	t.Lock()
	defer t.Unlock()
	if t.parent == nil {
		return 0
	}
	return t.parent.Pid
}

func (t *Task_t) Sigmask() sig.Sigset_t {
	t.Lock()
	ret := t.sigmask
	t.Unlock()
	return ret
}

func (t *Task_t) Setsigmask(m sig.Sigset_t) {
	t.Lock()
	t.sigmask = m
	t.Unlock()
}

func (t *Task_t) Setcleartid(ctid uintptr) {
	t.Lock()
	t.clearctid = ctid
	t.Unlock()
}

// a pending signal the task's mask lets through
func (t *Task_t) Haspending() bool {
	t.Lock()
	ret := t.pending&^t.sigmask != 0
	t.Unlock()
	return ret
}

// post sig to this task
func (t *Task_t) Sig_add(signo int) {
	t.Lock()
	t.pending.Add(signo)
	t.Unlock()
}

// arm or disarm ITIMER_REAL; returns the previous (value, interval) ns.
func (t *Task_t) Setitimer(valuens, intervalns, nowns int) (int, int) {
	t.Lock()
	defer t.Unlock()
	oldv := 0
	if t.itimer.nextns != 0 {
		oldv = t.itimer.nextns - nowns
		if oldv < 0 {
			oldv = 0
		}
	}
	oldi := t.itimer.intervalns
	if valuens == 0 {
		t.itimer.nextns = 0
		t.itimer.intervalns = 0
	} else {
		t.itimer.nextns = nowns + valuens
		t.itimer.intervalns = intervalns
	}
	return oldv, oldi
}

// fire SIGALRM if the interval timer expired; called on every trap.
func (t *Task_t) Check_itimer(nowns int) {
	t.Lock()
	if t.itimer.nextns != 0 && nowns >= t.itimer.nextns {
		t.pending.Add(sig.SIGALRM)
		if t.itimer.intervalns != 0 {
			t.itimer.nextns = nowns + t.itimer.intervalns
		} else {
			t.itimer.nextns = 0
		}
	}
	t.Unlock()
}

// mode-transition accounting; called from the trap path.
func (t *Task_t) Enter_smode(nowns int) {
	t.Lock()
	if t.lastumode != 0 {
		t.Atime.Utadd(nowns - t.lastumode)
	}
	t.lastsmode = nowns
	t.Unlock()
}

func (t *Task_t) Enter_umode(nowns int) {
	t.Lock()
	if t.lastsmode != 0 {
		t.Atime.Systadd(nowns - t.lastsmode)
	}
	t.lastumode = nowns
	t.Unlock()
}

// registered by the trap package during boot
var Usertrap_pc uintptr
var Firsttrapret func()

//go:nosplit
func task_entry_go() {
	if Firsttrapret == nil {
		panic("trap return not installed")
	}
	Firsttrapret()
}

// reset the trap context so the next trap_return enters user mode at entry
// with the given stack.
func (t *Task_t) init_trapctx(entry, usersp uintptr) {
	tf := t.Trapctx()
	for i := range tf {
		tf[i] = 0
	}
	tf[defs.TF_SEPC] = entry
	tf[defs.TF_SP] = usersp
	tf[defs.TF_SSTATUS] = defs.SSTATUS_SPIE | defs.SSTATUS_SUM
	tf[defs.TF_KSATP] = vm.Kvm_satp()
	_, kstacktop := mem.Kstack_range(t.Pid)
	tf[defs.TF_KSP] = kstacktop
	tf[defs.TF_HANDLER] = Usertrap_pc
}

// build the first user task from a loaded image. the caller provides the
// initial fd table (stdio) and enqueues the returned task.
func Spawn_from_elf(img vm.Elfimg_t, argv, envp []string, fds *fd.Fdtable_t) (*Task_t, defs.Err_t) {
	vmas, usersp, err := vm.From_elf(img.Segs)
	if err != 0 {
		return nil, err
	}
	pid, ok := pid_new()
	if !ok {
		return nil, -defs.EAGAIN
	}
	if err := vm.Kstack_map(pid); err != 0 {
		return nil, err
	}
	vmas.Lock_pmap()
	p_tc, err := vmas.Map_trapctx(pid)
	vmas.Unlock_pmap()
	if err != 0 {
		return nil, err
	}
	t := &Task_t{
		Pid:      pid,
		Tgid:     pid,
		vmas:     vmas,
		fds:      fds,
		sigacts:  sig.Mksigacts(),
		cwd:      ustr.Root(),
		ulim:     limits.Mkulimit(mem.USER_STACK_SIZE),
		status:   TREADY,
		p_trapcx: p_tc,
	}
	t.tcx.init_first(kstacktop(pid))
	sp, serr := t.init_ustack(usersp, argv, envp, &img)
	if serr != 0 {
		return nil, serr
	}
	t.init_trapctx(img.Entry, sp)
	Ptable.Set(pid, t)
	return t, 0
}

func kstacktop(pid int) uintptr {
	_, top := mem.Kstack_range(pid)
	return top
}

// the union of fork and thread creation. resource sharing is decided flag
// by flag; the child's trap context is the parent's with a0 = 0.
func (p *Task_t) Clone(flags int, stack, ptid, tls, ctid uintptr) (*Task_t, defs.Err_t) {
	pid, ok := pid_new()
	if !ok {
		return nil, -defs.EAGAIN
	}

	var cvm *vm.Vm_t
	if flags&defs.CLONE_VM != 0 {
		cvm = p.Vm()
	} else {
		pvm := p.Vm()
		pvm.Lock_pmap()
		child, doflush, err := pvm.From_cow()
		pvm.Unlock_pmap()
		if err != 0 {
			pid_del()
			return nil, err
		}
		if doflush {
			vm.Tlbflush()
		}
		cvm = child
	}

	var cfds *fd.Fdtable_t
	if flags&defs.CLONE_FILES != 0 {
		cfds = p.Fds()
	} else {
		nf, err := p.Fds().Copy()
		if err != 0 {
			pid_del()
			return nil, err
		}
		cfds = nf
	}

	var csig *sig.Sigacts_t
	if flags&defs.CLONE_SIGHAND != 0 {
		csig = p.Sigacts()
	} else {
		csig = p.Sigacts().Copy()
	}

	tgid := pid
	if flags&defs.CLONE_THREAD != 0 {
		tgid = p.Tgid
	}

	if err := vm.Kstack_map(pid); err != 0 {
		pid_del()
		return nil, err
	}
	cvm.Lock_pmap()
	p_tc, err := cvm.Map_trapctx(pid)
	cvm.Unlock_pmap()
	if err != 0 {
		pid_del()
		return nil, err
	}

	t := &Task_t{
		Pid:      pid,
		Tgid:     tgid,
		vmas:     cvm,
		fds:      cfds,
		sigacts:  csig,
		cwd:      p.Cwd(),
		ulim:     p.Ulim(),
		status:   TREADY,
		p_trapcx: p_tc,
		exitsig:  flags & 0xff,
	}
	t.tcx.init_first(kstacktop(pid))

	// child trap context: snapshot of the parent's with the fork return
	// value and its own kernel stack
	ptf := p.Trapctx()
	ctf := t.Trapctx()
	*ctf = *ptf
	ctf[defs.TF_A0] = 0
	ctf[defs.TF_KSP] = kstacktop(pid)
	if stack != 0 {
		ctf[defs.TF_SP] = stack
	}
	if flags&defs.CLONE_SETTLS != 0 {
		ctf[defs.TF_TP] = tls
	}

	if flags&defs.CLONE_PARENT_SETTID != 0 && ptid != 0 {
		p.Vm().Userwriten(ptid, 4, pid)
	}
	if flags&defs.CLONE_CHILD_SETTID != 0 && ctid != 0 {
		cvm.Userwriten(ctid, 4, pid)
	}
	if flags&defs.CLONE_CHILD_CLEARTID != 0 {
		t.clearctid = ctid
	}

	p.Lock()
	t.parent = p
	p.children = append(p.children, t)
	p.Unlock()

	// the pending set starts empty; the mask is inherited
	t.sigmask = p.Sigmask()

	Ptable.Set(pid, t)
	return t, 0
}

// replace the address space with a fresh image. pid, cwd, and non-cloexec
// fds survive; caught signal handlers and the pending set do not.
func (t *Task_t) Exec(img vm.Elfimg_t, argv, envp []string) defs.Err_t {
	vmas, usersp, err := vm.From_elf(img.Segs)
	if err != 0 {
		return err
	}
	vmas.Lock_pmap()
	p_tc, err := vmas.Map_trapctx(t.Pid)
	vmas.Unlock_pmap()
	if err != 0 {
		return err
	}

	t.resl.Lock()
	oldvm := t.vmas
	t.vmas = vmas
	t.resl.Unlock()

	t.Lock()
	t.p_trapcx = p_tc
	t.pending = 0
	t.Unlock()

	sp, serr := t.init_ustack(usersp, argv, envp, &img)
	if serr != 0 {
		return serr
	}
	t.init_trapctx(img.Entry, sp)

	t.Sigacts().Reset_for_exec()
	t.Fds().Cloexec()

	// the old space goes away wholesale; its trap-context slot first.
	oldvm.Lock_pmap()
	oldvm.Unmap_trapctx(t.Pid)
	oldvm.Unlock_pmap()
	oldvm.Uvmfree()
	vm.Tlbflush()
	return 0
}

// mark the whole thread group doomed; each thread dies at its next trap.
func (t *Task_t) Doomall() {
	t.Lock()
	t.doomed = true
	kids := append([]*Task_t{}, t.children...)
	t.Unlock()
	for _, c := range kids {
		if c.Tgid == t.Tgid && !c.Isleader() {
			c.Lock()
			c.doomed = true
			c.pending.Add(sig.SIGKILL)
			c.Unlock()
		}
	}
}
