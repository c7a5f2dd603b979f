package fs

import "testing"

import "github.com/soxsx/oskernel2023-bitethedisk/defs"
import "github.com/soxsx/oskernel2023-bitethedisk/util"
import "github.com/soxsx/oskernel2023-bitethedisk/ustr"

func TestAbspath(t *testing.T) {
	cases := []struct {
		cwd, p, want string
	}{
		{"/", "busybox0", "/busybox0"},
		{"/", "/etc/passwd", "/etc/passwd"},
		{"/home", "../etc", "/etc"},
		{"/home", "./x/./y", "/home/x/y"},
		{"/a/b", "c/../d", "/a/b/d"},
		{"/", "a//b///c", "/a/b/c"},
	}
	for _, c := range cases {
		got := Abspath(ustr.Ustr(c.cwd), ustr.Ustr(c.p))
		if got.String() != c.want {
			t.Fatalf("cwd %q p %q: got %q want %q", c.cwd, c.p, got, c.want)
		}
	}
}

// a kernel-side sink implementing fdops.Userio_i
type kbuf_t struct {
	buf []uint8
	off int
}

func (kb *kbuf_t) Uioread(dst []uint8) (int, defs.Err_t) {
	c := copy(dst, kb.buf[kb.off:])
	kb.off += c
	return c, 0
}

func (kb *kbuf_t) Uiowrite(src []uint8) (int, defs.Err_t) {
	c := copy(kb.buf[kb.off:], src)
	kb.off += c
	return c, 0
}

func (kb *kbuf_t) Remain() int  { return len(kb.buf) - kb.off }
func (kb *kbuf_t) Totalsz() int { return len(kb.buf) }

func TestDirentCopy(t *testing.T) {
	ents := []Dirent_t{
		{Name: ustr.Ustr("."), Inum: 1, Isdir: true},
		{Name: ustr.Ustr("busybox0"), Inum: 7, Isdir: false},
	}
	kb := &kbuf_t{buf: make([]uint8, 256)}
	wrote, newoff, err := dirent_copy(ents, kb, 0)
	if err != 0 {
		t.Fatalf("err %v", err)
	}
	if newoff != 2 {
		t.Fatalf("off %v", newoff)
	}
	// first record: ino 1, type DIR, name "."
	if util.Readn(kb.buf, 8, 0) != 1 {
		t.Fatalf("ino")
	}
	rl := util.Readn(kb.buf, 2, 16)
	if rl%8 != 0 {
		t.Fatalf("reclen %v unaligned", rl)
	}
	if kb.buf[18] != DT_DIR {
		t.Fatalf("type %v", kb.buf[18])
	}
	if kb.buf[19] != '.' || kb.buf[20] != 0 {
		t.Fatalf("name bytes")
	}
	second := rl
	if kb.buf[second+18] != DT_REG {
		t.Fatalf("second type")
	}
	if string(kb.buf[second+19:second+27]) != "busybox0" {
		t.Fatalf("second name")
	}
	if wrote != rl+util.Readn(kb.buf, 2, second+16) {
		t.Fatalf("wrote %v", wrote)
	}

	// a tiny buffer takes no partial records and resumes at the index
	small := &kbuf_t{buf: make([]uint8, 8)}
	w2, off2, err := dirent_copy(ents, small, 0)
	if err != 0 || w2 != 0 || off2 != 0 {
		t.Fatalf("partial record written: %v %v", w2, off2)
	}
	// resume from the second entry
	kb2 := &kbuf_t{buf: make([]uint8, 256)}
	_, off3, _ := dirent_copy(ents, kb2, 1)
	if off3 != 2 {
		t.Fatalf("resume off %v", off3)
	}
	if util.Readn(kb2.buf, 8, 0) != 7 {
		t.Fatalf("resume ino")
	}
}
