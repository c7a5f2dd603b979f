package ustr

import "testing"

func TestFromBytes(t *testing.T) {
	b := []uint8{'/', 'b', 'i', 'n', 0, 'x', 'x'}
	if got := FromBytes(b); got.String() != "/bin" {
		t.Fatalf("%q", got)
	}
	if got := FromBytes([]uint8("nonul")); got.String() != "nonul" {
		t.Fatalf("%q", got)
	}
}

func TestJoin(t *testing.T) {
	d := Ustr("/home")
	p := Join(d, Ustr("user"))
	if p.String() != "/home/user" {
		t.Fatalf("%q", p)
	}
	// the join must not alias its inputs
	p[1] = 'X'
	if d.String() != "/home" {
		t.Fatalf("join aliased dir: %q", d)
	}
}

func TestPredicates(t *testing.T) {
	if !Root().IsAbsolute() || Ustr("x/y").IsAbsolute() {
		t.Fatalf("absolute")
	}
	if !Ustr("/busybox0").HasPrefix(Ustr("/busybox")) {
		t.Fatalf("prefix")
	}
	if Ustr("/bus").HasPrefix(Ustr("/busybox")) {
		t.Fatalf("short prefix")
	}
	if !Ustr("abc").Eq(Ustr("abc")) || Ustr("abc").Eq(Ustr("abd")) {
		t.Fatalf("eq")
	}
	if !Ustr("").Empty() || Ustr("/").Empty() {
		t.Fatalf("empty")
	}
}
