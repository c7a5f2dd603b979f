package proc

import "testing"

import "github.com/soxsx/oskernel2023-bitethedisk/sig"

func TestItimer(t *testing.T) {
	tk := mktask(1)
	now := 1_000_000
	ov, oi := tk.Setitimer(5000, 2000, now)
	if ov != 0 || oi != 0 {
		t.Fatalf("fresh timer had state %v %v", ov, oi)
	}
	tk.Check_itimer(now + 4000)
	if tk.Haspending() {
		t.Fatalf("fired early")
	}
	tk.Check_itimer(now + 5000)
	if !tk.Haspending() {
		t.Fatalf("did not fire")
	}
	tk.Lock()
	if !tk.pending.Has(sig.SIGALRM) {
		t.Fatalf("wrong signal")
	}
	tk.pending.Del(sig.SIGALRM)
	tk.Unlock()
	// periodic timer rearms
	tk.Check_itimer(now + 7001)
	if !tk.Haspending() {
		t.Fatalf("interval did not rearm")
	}

	// disarm reports time left
	tk2 := mktask(2)
	tk2.Setitimer(10_000, 0, now)
	ov, oi = tk2.Setitimer(0, 0, now+4000)
	if ov != 6000 || oi != 0 {
		t.Fatalf("remaining %v interval %v", ov, oi)
	}
	tk2.Check_itimer(now + 1<<40)
	if tk2.Haspending() {
		t.Fatalf("disarmed timer fired")
	}
}

func TestModeAccounting(t *testing.T) {
	tk := mktask(1)
	tk.Enter_umode(1000)
	tk.Enter_smode(1500)
	tk.Enter_umode(1600)
	tk.Enter_smode(2600)
	if got := tk.Atime.Userns; got != 500+1000 {
		t.Fatalf("user ns %v", got)
	}
	tk.Enter_umode(2700)
	if got := tk.Atime.Sysns; got != 100+100 {
		t.Fatalf("sys ns %v", got)
	}
}

func TestStatusEncoding(t *testing.T) {
	tk := mktask(9)
	tk.exitcode = 7
	if st := mkstatus(tk); st != 7<<8 {
		t.Fatalf("exit status %#x", st)
	}
	tk.termsig = sig.SIGSEGV
	if st := mkstatus(tk); st != sig.SIGSEGV {
		t.Fatalf("signal status %#x", st)
	}
}
