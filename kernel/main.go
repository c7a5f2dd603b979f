package main

import "fmt"
import "sync/atomic"

import "github.com/soxsx/oskernel2023-bitethedisk/defs"
import "github.com/soxsx/oskernel2023-bitethedisk/fd"
import "github.com/soxsx/oskernel2023-bitethedisk/fs"
import "github.com/soxsx/oskernel2023-bitethedisk/mem"
import "github.com/soxsx/oskernel2023-bitethedisk/proc"
import "github.com/soxsx/oskernel2023-bitethedisk/riscv"
import "github.com/soxsx/oskernel2023-bitethedisk/sbi"
import "github.com/soxsx/oskernel2023-bitethedisk/timer"
import "github.com/soxsx/oskernel2023-bitethedisk/trap"
import "github.com/soxsx/oskernel2023-bitethedisk/ustr"
import "github.com/soxsx/oskernel2023-bitethedisk/vm"
import "github.com/soxsx/oskernel2023-bitethedisk/virtio"

// boot stacks, one per hart; the entry stub carves them up before Go code
// runs.
const bootstacksz = 1 << 16

var bootstacks [proc.MAXHARTS * bootstacksz]uint8

// the busybox image linked into the kernel by the image build. it is both
// written out to /busybox0 at boot and kept for the exec fast path.
var busybox_elf []uint8

// raised by hart 0 once the world exists; secondaries spin on it.
var booted int32


// every hart enters here from the boot stub with its id in tp.
func Kmain() {
	if atomic.LoadInt32(&booted) != 0 {
		hart_init()
		fmt.Printf("hart %v online\n", riscv.Hartid())
		proc.Run_tasks()
	}

	fmt.Printf("boot hart: %v\n", riscv.Hartid())

	ekernel := vm.Pgroundup(end_pc())
	mem.Phys_init(mem.Pa_t(ekernel), mem.MEMORY_END)

	vm.Set_trampolines(trap.Trampoline_pa(), mk_sigtramp())
	vm.Kvm_init(etext_pc(), ekernel)
	vm.Kvm_activate()

	trap.Init()
	trap.Syshook = syscall
	hart_init()

	disk := virtio.Mkdisk(mem.VIRTIO0)
	if err := fs.MountRoot(disk); err != 0 {
		panic("cannot mount root volume")
	}
	preload_busybox()
	add_initproc()

	atomic.StoreInt32(&booted, 1)
	wake_other_harts()

	proc.Run_tasks()
}

// per-hart bring-up: kernel satp, trap csrs, timer interrupt enable, and
// the one initial compare before the first user task. sstatus.SIE stays
// clear: the kernel is never preempted, and sret raises interrupts for
// user mode from SPIE.
func hart_init() {
	vm.Kvm_activate()
	trap.Init_hart()
	timer.Set_next_trigger()
}

func wake_other_harts() {
	me := int(riscv.Hartid())
	for i := 1; i < mem.NCPU; i++ {
		target := (me + i) % mem.NCPU
		if err := sbi.Hart_start(uintptr(target), entry_pc(), 0); err != 0 {
			fmt.Printf("hart %v failed to start: %v\n", target, err)
		}
	}
}

// the sigreturn stub: li a7, SYS_rt_sigreturn; ecall. built into a fresh
// frame so only these eight bytes are user-visible.
func mk_sigtramp() mem.Pa_t {
	p, ok := mem.Physmem.Refpg_new()
	if !ok {
		panic("oom in boot")
	}
	pg := mem.Dmap(p)
	stub := []uint8{
		0x93, 0x08, 0xb0, 0x08, // li a7, 139
		0x73, 0x00, 0x00, 0x00, // ecall
	}
	copy(pg[:], stub)
	riscv.Fence_i()
	return p
}

// write the embedded busybox into the volume so userspace can exec it by
// path; initproc itself is spawned from the embedded bytes.
func preload_busybox() {
	if len(busybox_elf) == 0 {
		panic("no embedded busybox payload")
	}
	root := ustr.Root()
	ino, err := fs.Open(root, ustr.Ustr("/busybox0"), defs.O_CREAT|defs.O_RDWR, 0755)
	if err != 0 {
		panic("cannot create /busybox0")
	}
	off := 0
	for off < len(busybox_elf) {
		n, werr := ino.Write(off, busybox_elf[off:])
		if werr != 0 || n == 0 {
			panic("short busybox write")
		}
		off += n
	}
}

func add_initproc() {
	img, err := fs.LoadElfBytes(busybox_elf)
	if err != 0 {
		panic("bad embedded busybox")
	}

	cons := fs.Mkconsole()
	fds := fd.Mkfdtable(1024)
	for i := 0; i < 3; i++ {
		perms := fd.FD_READ
		if i > 0 {
			perms = fd.FD_WRITE
		}
		if n, ok := fds.Insert(&fd.Fd_t{Fops: cons}, perms); !ok || n != i {
			panic("stdio setup")
		}
	}

	t, serr := proc.Spawn_from_elf(img, []string{"/busybox0", "sh"},
		[]string{"PATH=/", "TERM=vt100"}, fds)
	if serr != 0 {
		panic("cannot spawn initproc")
	}
	proc.Initproc = t
	proc.Tm.Add(t)
	fmt.Printf("initproc pid %v\n", t.Pid)
}

func main() {
	// the boot stub enters Kmain directly; main keeps the linker happy
	Kmain()
}
