package fs

import "testing"

import "github.com/soxsx/oskernel2023-bitethedisk/util"
import "github.com/soxsx/oskernel2023-bitethedisk/vm"

// a minimal ELF64 with two PT_LOAD segments
func mkelf() []uint8 {
	img := make([]uint8, 4096)
	copy(img, []uint8{0x7f, 'E', 'L', 'F', 2, 1, 1, 0})
	util.Writen(img, 8, 24, 0x10078)  // e_entry
	util.Writen(img, 8, 32, 64)       // e_phoff
	util.Writen(img, 2, 54, 56)       // e_phentsize
	util.Writen(img, 2, 56, 2)        // e_phnum

	ph := func(idx, ptype, flags, off, vaddr, filesz, memsz int) {
		base := 64 + idx*56
		util.Writen(img, 4, base+0, ptype)
		util.Writen(img, 4, base+4, flags)
		util.Writen(img, 8, base+8, off)
		util.Writen(img, 8, base+16, vaddr)
		util.Writen(img, 8, base+32, filesz)
		util.Writen(img, 8, base+40, memsz)
	}
	// text: covers the headers, r-x
	ph(0, 1, 5, 0, 0x10000, 0x200, 0x200)
	// data+bss: rw-, memsz > filesz
	ph(1, 1, 6, 0x200, 0x11000, 0x100, 0x1000)
	return img
}

func TestLoadElfBytes(t *testing.T) {
	img, err := LoadElfBytes(mkelf())
	if err != 0 {
		t.Fatalf("parse err %v", err)
	}
	if img.Entry != 0x10078 {
		t.Fatalf("entry %#x", img.Entry)
	}
	if len(img.Segs) != 2 {
		t.Fatalf("%v segs", len(img.Segs))
	}
	if img.Phnum != 2 {
		t.Fatalf("phnum %v", img.Phnum)
	}
	// AT_PHDR: phoff 64 inside segment 0 at 0x10000
	if img.Phbase != 0x10040 {
		t.Fatalf("phbase %#x", img.Phbase)
	}
	s0 := img.Segs[0]
	if s0.Va != 0x10000 || s0.Filesz != 0x200 || s0.Perms != vm.PTE_R|vm.PTE_X {
		t.Fatalf("seg0 %+v", s0)
	}
	s1 := img.Segs[1]
	if s1.Memsz != 0x1000 || s1.Perms != vm.PTE_R|vm.PTE_W {
		t.Fatalf("seg1 %+v", s1)
	}
}

func TestLoadElfRejects(t *testing.T) {
	if _, err := LoadElfBytes([]uint8("not an elf, definitely")); err == 0 {
		t.Fatalf("accepted garbage")
	}
	bad := mkelf()
	bad[4] = 1 // 32-bit class
	if _, err := LoadElfBytes(bad); err == 0 {
		t.Fatalf("accepted elf32")
	}
	bad = mkelf()
	// memsz smaller than filesz
	util.Writen(bad, 8, 64+40, 1)
	if _, err := LoadElfBytes(bad); err == 0 {
		t.Fatalf("accepted memsz < filesz")
	}
}

func TestBytesfile(t *testing.T) {
	bf := &Bytesfile_t{Data: []uint8("hello world")}
	dst := make([]uint8, 5)
	n, _ := bf.Mmapread(6, dst)
	if n != 5 || string(dst) != "world" {
		t.Fatalf("%v %q", n, dst)
	}
	if n, _ := bf.Mmapread(100, dst); n != 0 {
		t.Fatalf("read past end: %v", n)
	}
}
