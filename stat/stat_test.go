package stat

import "testing"

import "github.com/soxsx/oskernel2023-bitethedisk/util"

func TestStatBytes(t *testing.T) {
	var st Stat_t
	st.Wdev(3)
	st.Wino(42)
	st.Wmode(S_IFREG | 0644)
	st.Wnlink(1)
	st.Wsize(12345)
	st.Wblksz(512)
	b := st.Bytes()
	if len(b) != 128 {
		t.Fatalf("len %v", len(b))
	}
	if util.Readn(b, 8, 0) != 3 {
		t.Fatalf("dev")
	}
	if util.Readn(b, 8, 8) != 42 {
		t.Fatalf("ino")
	}
	if util.Readn(b, 4, 16) != S_IFREG|0644 {
		t.Fatalf("mode")
	}
	// size sits after mode/nlink/uid/gid/rdev/pad
	if util.Readn(b, 8, 48) != 12345 {
		t.Fatalf("size %v", util.Readn(b, 8, 48))
	}
}

func TestUtsname(t *testing.T) {
	b := Mkutsname().Bytes()
	if len(b) != 6*65 {
		t.Fatalf("len %v", len(b))
	}
	if string(b[:6]) != "BTD-OS" {
		t.Fatalf("sysname %q", b[:8])
	}
	if b[64] != 0 {
		t.Fatalf("missing nul")
	}
	if string(b[4*65:4*65+7]) != "riscv64" {
		t.Fatalf("machine")
	}
}
