package sbi

// sbicall is the raw ecall into machine mode; see sbi_riscv64.s.
func sbicall(eid, fid, a0, a1, a2 uintptr) (uintptr, uintptr)
