package circbuf

import "testing"

func TestWrap(t *testing.T) {
	var cb Circbuf_t
	cb.Cb_init(8)
	if !cb.Empty() || cb.Full() {
		t.Fatalf("fresh state")
	}
	n := cb.Write([]uint8("abcdefgh"))
	if n != 8 || !cb.Full() {
		t.Fatalf("fill: %v", n)
	}
	if n = cb.Write([]uint8("x")); n != 0 {
		t.Fatalf("wrote to full buf")
	}
	dst := make([]uint8, 5)
	if n = cb.Read(dst); n != 5 || string(dst) != "abcde" {
		t.Fatalf("read %v %q", n, dst)
	}
	// wrap around
	if n = cb.Write([]uint8("12345")); n != 5 {
		t.Fatalf("wrap write %v", n)
	}
	dst = make([]uint8, 8)
	if n = cb.Read(dst); n != 8 || string(dst) != "fgh12345" {
		t.Fatalf("wrap read %v %q", n, dst[:n])
	}
	if !cb.Empty() {
		t.Fatalf("should drain")
	}
}

func TestPartial(t *testing.T) {
	var cb Circbuf_t
	cb.Cb_init(4)
	if n := cb.Write([]uint8("abcdef")); n != 4 {
		t.Fatalf("overfill consumed %v", n)
	}
	if c, ok := cb.Peek(); !ok || c != 'a' {
		t.Fatalf("peek %v %v", c, ok)
	}
	if cb.Used() != 4 || cb.Left() != 0 {
		t.Fatalf("accounting")
	}
}
