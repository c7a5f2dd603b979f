//go:build !riscv64

package riscv

// host-build stubs so the portable packages (and their tests) compile off
// target. nothing here may run outside riscv64.

func R_sstatus() uintptr  { return 0 }
func W_sstatus(v uintptr) { panic("riscv64 only") }
func R_scause() uintptr   { panic("riscv64 only") }
func R_stval() uintptr    { panic("riscv64 only") }
func R_sepc() uintptr     { panic("riscv64 only") }
func W_sepc(v uintptr)    { panic("riscv64 only") }
func W_stvec(v uintptr)   { panic("riscv64 only") }
func R_satp() uintptr     { panic("riscv64 only") }
func W_satp(v uintptr)    { panic("riscv64 only") }
func W_sscratch(v uintptr) { panic("riscv64 only") }
func R_sie() uintptr      { panic("riscv64 only") }
func W_sie(v uintptr)     { panic("riscv64 only") }
func R_time() uintptr     { return 0 }
func Intr_on()            { panic("riscv64 only") }
func Intr_off()           { panic("riscv64 only") }
func Sfence_vma()         {}
func Fence_i()            {}
func Wfi()                { panic("riscv64 only") }
func Hartid() uintptr     { return 0 }
