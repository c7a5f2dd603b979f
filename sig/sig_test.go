package sig

import "testing"

func TestSigset(t *testing.T) {
	var s Sigset_t
	if !s.Empty() {
		t.Fatalf("empty")
	}
	s.Add(SIGINT)
	s.Add(SIGCHLD)
	if !s.Has(SIGINT) || !s.Has(SIGCHLD) || s.Has(SIGKILL) {
		t.Fatalf("membership")
	}
	s.Del(SIGINT)
	if s.Has(SIGINT) {
		t.Fatalf("del")
	}
	// bit placement is 1-indexed
	if Mksigset(1) != 1 {
		t.Fatalf("sig 1 bit %#x", Mksigset(1))
	}
}

func TestFirst(t *testing.T) {
	var s Sigset_t
	s.Add(SIGTERM)
	s.Add(SIGINT)
	if got := s.First(0); got != SIGINT {
		t.Fatalf("first %v", got)
	}
	var mask Sigset_t
	mask.Add(SIGINT)
	if got := s.First(mask); got != SIGTERM {
		t.Fatalf("masked first %v", got)
	}
	mask.Add(SIGTERM)
	if got := s.First(mask); got != 0 {
		t.Fatalf("all masked %v", got)
	}
}

func TestSigacts(t *testing.T) {
	sa := Mksigacts()
	sa.Set(SIGUSR1, Sigaction_t{Handler: 0x1000})
	sa.Set(SIGUSR2, Sigaction_t{Handler: SIG_IGN})

	cp := sa.Copy()
	cp.Set(SIGUSR1, Sigaction_t{Handler: 0x2000})
	if sa.Get(SIGUSR1).Handler != 0x1000 {
		t.Fatalf("copy aliases parent")
	}

	sa.Reset_for_exec()
	if sa.Get(SIGUSR1).Handler != SIG_DFL {
		t.Fatalf("caught handler survived exec")
	}
	if sa.Get(SIGUSR2).Handler != SIG_IGN {
		t.Fatalf("ignored disposition must survive exec")
	}
}
