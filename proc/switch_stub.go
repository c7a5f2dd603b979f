//go:build !riscv64

package proc

func task_entry()            { panic("riscv64 only") }
func task_entry_pc() uintptr { return 0 }
func cswitch(old, new *Taskctx_t) {
	panic("riscv64 only")
}
