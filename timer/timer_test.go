package timer

import "testing"

func TestConversions(t *testing.T) {
	tv := Mktimeval(2_500_000)
	if tv.Sec != 2 || tv.Usec != 500_000 {
		t.Fatalf("%+v", tv)
	}
	if tv.Us() != 2_500_000 {
		t.Fatalf("roundtrip %v", tv.Us())
	}
	ts := Mktimespec(1_000_000_001)
	if ts.Sec != 1 || ts.Nsec != 1 {
		t.Fatalf("%+v", ts)
	}
	if ts.Ns() != 1_000_000_001 {
		t.Fatalf("roundtrip %v", ts.Ns())
	}
}
