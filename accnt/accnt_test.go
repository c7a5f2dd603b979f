package accnt

import "testing"

import "github.com/soxsx/oskernel2023-bitethedisk/util"

func TestRusage(t *testing.T) {
	var a Accnt_t
	a.Utadd(2_500_000_000)
	a.Systadd(1_000_500_000)
	ru := a.Fetch()
	if len(ru) != 32 {
		t.Fatalf("len %v", len(ru))
	}
	if util.Readn(ru, 8, 0) != 2 || util.Readn(ru, 8, 8) != 500_000 {
		t.Fatalf("user timeval")
	}
	if util.Readn(ru, 8, 16) != 1 || util.Readn(ru, 8, 24) != 500 {
		t.Fatalf("sys timeval")
	}
}

func TestTotms(t *testing.T) {
	var mine, childs Accnt_t
	mine.Utadd(1_000_000_000)
	childs.Systadd(3_000_000_000)
	tms := Totms(&mine, &childs)
	if util.Readn(tms, 8, 0) != 100 {
		t.Fatalf("utime ticks")
	}
	if util.Readn(tms, 8, 8) != 0 {
		t.Fatalf("stime ticks")
	}
	if util.Readn(tms, 8, 24) != 300 {
		t.Fatalf("child stime ticks")
	}
}

func TestAdd(t *testing.T) {
	var a, b Accnt_t
	a.Utadd(5)
	b.Utadd(7)
	b.Systadd(2)
	a.Add(&b)
	if a.Userns != 12 || a.Sysns != 2 {
		t.Fatalf("%v %v", a.Userns, a.Sysns)
	}
}
