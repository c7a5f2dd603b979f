package bpath

import "testing"

import "github.com/soxsx/oskernel2023-bitethedisk/ustr"

func TestCanonicalize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"/", "/"},
		{"//", "/"},
		{"/..", "/"},
		{"/../..", "/"},
		{"/a/b/c", "/a/b/c"},
		{"/a//b///c/", "/a/b/c"},
		{"/a/./b/.", "/a/b"},
		{"/a/b/..", "/a"},
		{"/a/b/../../c", "/c"},
		{"/a/b/c/../d", "/a/b/d"},
		{"a/../b", "b"},
		{"../a", "../a"},
		{"../../a/..", "../.."},
		{".", "."},
		{"", "."},
	}
	for _, c := range cases {
		got := Canonicalize(ustr.Ustr(c.in))
		if got.String() != c.want {
			t.Fatalf("%q: got %q want %q", c.in, got, c.want)
		}
	}
}
