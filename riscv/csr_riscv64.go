package riscv

// see csr_riscv64.s

func R_sstatus() uintptr
func W_sstatus(v uintptr)
func R_scause() uintptr
func R_stval() uintptr
func R_sepc() uintptr
func W_sepc(v uintptr)
func W_stvec(v uintptr)
func R_satp() uintptr
func W_satp(v uintptr)
func W_sscratch(v uintptr)
func R_sie() uintptr
func W_sie(v uintptr)
func R_time() uintptr

// set/clear SIE in sstatus
func Intr_on()
func Intr_off()

// flush the whole TLB for the current hart
func Sfence_vma()

// i-cache sync after writing instructions (trampoline copy)
func Fence_i()

func Wfi()

// hart id, stashed in tp by the boot stub
func Hartid() uintptr
