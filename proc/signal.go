package proc

import (
	"github.com/soxsx/oskernel2023-bitethedisk/defs"
	"github.com/soxsx/oskernel2023-bitethedisk/mem"
	"github.com/soxsx/oskernel2023-bitethedisk/sig"
	"github.com/soxsx/oskernel2023-bitethedisk/util"
)

// signal frame pushed on the user stack: the full trap context followed by
// the interrupted sigmask, padded to 16 bytes.
const sigframe_words = defs.TFSIZE + 1
const sigframe_sz = uintptr((sigframe_words*8 + 15) &^ 15)

// deliver one pending, unmasked signal before returning to user mode.
// returns (fatal, signo) when the default action terminates the task; the
// trap path then runs the exit instead of sret.
func Sig_deliver(t *Task_t) (bool, int) {
	t.Lock()
	signo := t.pending.First(t.sigmask)
	if signo == 0 {
		t.Unlock()
		return false, 0
	}
	t.pending.Del(signo)
	oldmask := t.sigmask
	t.Unlock()

	act := t.Sigacts().Get(signo)
	if !sig.Catchable(signo) || act.Handler == sig.SIG_DFL {
		if sig.Def_terminates(signo) {
			return true, signo
		}
		return false, 0
	}
	if act.Handler == sig.SIG_IGN {
		return false, 0
	}

	// user handler: snapshot the trap context into a frame on the user
	// stack, then rewrite the context to enter the handler. sigreturn
	// through the signal trampoline undoes this.
	tf := t.Trapctx()
	frame := make([]uint8, sigframe_sz)
	for i := 0; i < defs.TFSIZE; i++ {
		util.Writen(frame, 8, i*8, int(tf[i]))
	}
	util.Writen(frame, 8, defs.TFSIZE*8, int(oldmask))

	sp := (tf[defs.TF_SP] - sigframe_sz) &^ 15
	if err := t.Vm().K2user(frame, sp); err != 0 {
		// unwritable stack: the default action for the signal we
		// failed to deliver
		return true, signo
	}

	tf[defs.TF_SEPC] = act.Handler
	tf[defs.TF_SP] = sp
	tf[defs.TF_A0] = uintptr(signo)
	tf[defs.TF_RA] = mem.SIGNAL_TRAMPOLINE

	t.Lock()
	t.sigmask = oldmask | act.Mask | sig.Mksigset(signo)
	t.Unlock()
	return false, 0
}

// undo Sig_deliver: restore the saved trap context and mask. the syscall
// return value is the restored a0, so the interrupted syscall's result (or
// the restart of user code) is untouched.
func Sigreturn(t *Task_t) uintptr {
	tf := t.Trapctx()
	sp := tf[defs.TF_SP]
	frame := make([]uint8, sigframe_sz)
	if err := t.Vm().User2k(frame, sp); err != 0 {
		Exit_signalled(sig.SIGSEGV)
	}
	for i := 0; i < defs.TFSIZE; i++ {
		tf[i] = uintptr(util.Readn(frame, 8, i*8))
	}
	t.Lock()
	t.sigmask = sig.Sigset_t(util.Readn(frame, 8, defs.TFSIZE*8))
	t.Unlock()
	return tf[defs.TF_A0]
}
