// Package trap owns the S-mode entry and exit paths: the trampoline
// save/restore, cause dispatch, and the timer rearm discipline.
package trap

import (
	"fmt"

	"github.com/soxsx/oskernel2023-bitethedisk/defs"
	"github.com/soxsx/oskernel2023-bitethedisk/mem"
	"github.com/soxsx/oskernel2023-bitethedisk/proc"
	"github.com/soxsx/oskernel2023-bitethedisk/riscv"
	"github.com/soxsx/oskernel2023-bitethedisk/sig"
	"github.com/soxsx/oskernel2023-bitethedisk/timer"
)

// syscall dispatch, installed by the kernel package
var Syshook func(t *proc.Task_t, tf *[defs.TFSIZE]uintptr, sysno int) int

// whether each hart's last user trap was the supervisor timer. the compare
// is rearmed only in trap_return and only when this is set: rearming before
// the scheduler runs can leave the timer permanently pending and the first
// user instruction after sret re-trapping forever.
var lasttimer [proc.MAXHARTS]bool

// physical page holding the trampoline text; mapped at mem.TRAMPOLINE in
// every address space.
func Trampoline_pa() mem.Pa_t {
	return mem.Pa_t(uservec_pc()) & mem.PGMASK
}

// per-hart trap CSR setup
func Init_hart() {
	riscv.W_stvec(kernelvec_pc())
	riscv.W_sie(riscv.R_sie() | riscv.SIE_STIE)
}

// wire the task package's entry hooks; once, on the boot hart.
func Init() {
	if uservec_pc()&mem.PGMASK64 != userret_pc()&mem.PGMASK64 {
		panic("trampoline straddles a page")
	}
	proc.Usertrap_pc = usertrap_pc()
	proc.Firsttrapret = Trap_return
}

// a trap taken in S-mode is a kernel bug
func kerneltrap() {
	panic(fmt.Sprintf("hart %v pid %v: kernel trap cause %#x stval %#x sepc %#x",
		riscv.Hartid(), proc.Currentpid(), riscv.R_scause(), riscv.R_stval(),
		riscv.R_sepc()))
}

// all user traps land here from the trampoline, on the task's kernel
// stack, with the kernel page table installed.
func usertrap() {
	riscv.W_stvec(kernelvec_pc())
	t := proc.Current()
	if t == nil {
		panic("user trap with no task")
	}
	now := timer.Get_time_ns()
	t.Enter_smode(now)

	cause := riscv.R_scause()
	stval := riscv.R_stval()
	isintr := cause>>63 != 0
	code := cause &^ (1 << 63)
	tf := t.Trapctx()

	if isintr {
		switch code {
		case defs.INTR_STIMER:
			lasttimer[riscv.Hartid()] = true
			proc.Suspend_current()
		case defs.INTR_SEXTERNAL, defs.INTR_SSOFT:
			// device and IPI interrupts carry no work yet
		default:
			trap_panic(t, cause, stval)
		}
	} else {
		switch code {
		case defs.EXC_ECALL_U:
			tf[defs.TF_SEPC] += 4
			sysno := int(tf[defs.TF_A7])
			ret := Syshook(t, tf, sysno)
			// exec swaps in a fresh trap context; refetch before
			// storing the result
			tf = t.Trapctx()
			if sysno != defs.SYS_RT_SIGRETURN {
				tf[defs.TF_A0] = uintptr(ret)
			}
		case defs.EXC_IPGFAULT, defs.EXC_LPGFAULT, defs.EXC_SPGFAULT,
			defs.EXC_LACCESS, defs.EXC_SACCESS, defs.EXC_IACCESS:
			if stval >= mem.TRAP_CONTEXT {
				t.Sig_add(sig.SIGSEGV)
			} else if err := t.Vm().Pgfault(stval, code); err != 0 {
				fmt.Printf("[hart %v] fault pid %v va %#x sepc %#x\n",
					riscv.Hartid(), t.Pid, stval, tf[defs.TF_SEPC])
				t.Sig_add(sig.SIGSEGV)
			}
		case defs.EXC_ILLINST:
			t.Sig_add(sig.SIGILL)
		case defs.EXC_BREAK:
			tf[defs.TF_SEPC] += 4
			t.Sig_add(sig.SIGTRAP)
		default:
			trap_panic(t, cause, stval)
		}
	}

	t.Check_itimer(timer.Get_time_ns())
	Trap_return()
}

func trap_panic(t *proc.Task_t, cause, stval uintptr) {
	panic(fmt.Sprintf("hart %v pid %v: unhandled trap cause %#x stval %#x sepc %#x",
		riscv.Hartid(), t.Pid, cause, stval, riscv.R_sepc()))
}

// return to user mode through the trampoline. delivers signals first; the
// timer compare is rearmed here, and only if this hart's last trap was the
// timer.
func Trap_return() {
	t := proc.Current()
	if t == nil {
		panic("trap return with no task")
	}
	if fatal, signo := proc.Sig_deliver(t); fatal {
		proc.Exit_signalled(signo)
	}
	if t.Doomed() && !t.Isleader() {
		proc.Exit_current(0, false)
	}

	hart := riscv.Hartid()
	if lasttimer[hart] {
		lasttimer[hart] = false
		timer.Set_next_trigger()
	}

	tf := t.Trapctx()
	tf[defs.TF_HARTID] = hart
	tf[defs.TF_KSATP] = riscv.R_satp()

	t.Enter_umode(timer.Get_time_ns())

	tfva := mem.Trapctx_va(t.Pid)
	usatp := t.Vm().Satp()
	// the trampoline aliases live at TRAMPOLINE plus the symbols' page
	// offsets
	riscv.W_stvec(mem.TRAMPOLINE + (uservec_pc() &^ mem.PGMASK64))
	riscv.W_sscratch(tfva)
	retva := mem.TRAMPOLINE + (userret_pc() &^ mem.PGMASK64)
	jmpuserret(retva, tfva, usatp)
	panic("returned from user")
}
