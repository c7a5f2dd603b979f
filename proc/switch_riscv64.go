package proc

// see switch_riscv64.s

func task_entry()
func task_entry_pc() uintptr
func cswitch(old, new *Taskctx_t)
