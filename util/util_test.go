package util

import "testing"

func TestRound(t *testing.T) {
	if Roundup(1, 4096) != 4096 || Roundup(4096, 4096) != 4096 {
		t.Fatalf("roundup")
	}
	if Rounddown(4097, 4096) != 4096 || Rounddown(4095, 4096) != 0 {
		t.Fatalf("rounddown")
	}
}

func TestReadWriten(t *testing.T) {
	b := make([]uint8, 16)
	Writen(b, 8, 0, -1)
	if Readn(b, 8, 0) != -1 {
		t.Fatalf("8 byte roundtrip")
	}
	Writen(b, 4, 8, 0x11223344)
	if Readn(b, 4, 8) != 0x11223344 {
		t.Fatalf("4 byte roundtrip")
	}
	Writen(b, 2, 12, 0xbeef)
	if Readn(b, 2, 12) != 0xbeef {
		t.Fatalf("2 byte roundtrip")
	}
	Writen(b, 1, 14, 0x7f)
	if Readn(b, 1, 14) != 0x7f {
		t.Fatalf("1 byte roundtrip")
	}
}
