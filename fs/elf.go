package fs

import (
	"github.com/soxsx/oskernel2023-bitethedisk/defs"
	"github.com/soxsx/oskernel2023-bitethedisk/util"
	"github.com/soxsx/oskernel2023-bitethedisk/vm"
)

// elf64 constants
const (
	pt_load = 1
	pf_x    = 1
	pf_w    = 2
	pf_r    = 4

	ehdr_entry = 24
	ehdr_phoff = 32
	ehdr_phentsize = 54
	ehdr_phnum = 56

	phdr_sz     = 56
	phdr_type   = 0
	phdr_flags  = 4
	phdr_offset = 8
	phdr_vaddr  = 16
	phdr_filesz = 32
	phdr_memsz  = 40
)

// a byte-slice file, for the embedded busybox image
type Bytesfile_t struct {
	Data []uint8
}

func (bf *Bytesfile_t) Mmapread(off int, dst []uint8) (int, defs.Err_t) {
	if off < 0 || off >= len(bf.Data) {
		return 0, 0
	}
	return copy(dst, bf.Data[off:]), 0
}

func (bf *Bytesfile_t) pread(dst []uint8, off int) (int, defs.Err_t) {
	n, _ := bf.Mmapread(off, dst)
	return n, 0
}

type elfsrc_i interface {
	pread(dst []uint8, off int) (int, defs.Err_t)
}

type filesrc_t struct {
	f *File_t
}

func (fsr filesrc_t) pread(dst []uint8, off int) (int, defs.Err_t) {
	return fsr.f.Pread(dst, off)
}

// parse the loadable segments of an ELF64 image. the returned segments
// pull their bytes from src on demand, so large programs fault in lazily.
func load_elf(src elfsrc_i, fops vm.Mmapfile_i) (vm.Elfimg_t, defs.Err_t) {
	var img vm.Elfimg_t
	hdr := make([]uint8, 64)
	if n, err := src.pread(hdr, 0); err != 0 || n != 64 {
		return img, -defs.ENOEXEC
	}
	if hdr[0] != 0x7f || hdr[1] != 'E' || hdr[2] != 'L' || hdr[3] != 'F' {
		return img, -defs.ENOEXEC
	}
	// 64-bit little-endian only
	if hdr[4] != 2 || hdr[5] != 1 {
		return img, -defs.ENOEXEC
	}
	img.Entry = uintptr(util.Readn(hdr, 8, ehdr_entry))
	phoff := util.Readn(hdr, 8, ehdr_phoff)
	phentsize := util.Readn(hdr, 2, ehdr_phentsize)
	phnum := util.Readn(hdr, 2, ehdr_phnum)
	if phentsize != phdr_sz || phnum == 0 || phnum > 64 {
		return img, -defs.ENOEXEC
	}
	img.Phnum = phnum

	ph := make([]uint8, phdr_sz)
	for i := 0; i < phnum; i++ {
		off := phoff + i*phdr_sz
		if n, err := src.pread(ph, off); err != 0 || n != phdr_sz {
			return img, -defs.ENOEXEC
		}
		if util.Readn(ph, 4, phdr_type) != pt_load {
			continue
		}
		flags := util.Readn(ph, 4, phdr_flags)
		seg := vm.Elfseg_t{
			Va:      uintptr(util.Readn(ph, 8, phdr_vaddr)),
			Memsz:   util.Readn(ph, 8, phdr_memsz),
			Fileoff: util.Readn(ph, 8, phdr_offset),
			Filesz:  util.Readn(ph, 8, phdr_filesz),
			Fops:    fops,
		}
		if flags&pf_r != 0 {
			seg.Perms |= vm.PTE_R
		}
		if flags&pf_w != 0 {
			seg.Perms |= vm.PTE_W
		}
		if flags&pf_x != 0 {
			seg.Perms |= vm.PTE_X
		}
		if seg.Memsz < seg.Filesz {
			return img, -defs.ENOEXEC
		}
		// the vaddr holding the program headers, for AT_PHDR
		if phoff >= seg.Fileoff && phoff < seg.Fileoff+seg.Filesz {
			img.Phbase = seg.Va + uintptr(phoff-seg.Fileoff)
		}
		img.Segs = append(img.Segs, seg)
	}
	if len(img.Segs) == 0 {
		return img, -defs.ENOEXEC
	}
	return img, 0
}

// parse an on-disk executable
func LoadElf(f *File_t) (vm.Elfimg_t, defs.Err_t) {
	return load_elf(filesrc_t{f: f}, f)
}

// parse an in-memory image (the embedded busybox)
func LoadElfBytes(b []uint8) (vm.Elfimg_t, defs.Err_t) {
	bf := &Bytesfile_t{Data: b}
	return load_elf(bf, bf)
}
