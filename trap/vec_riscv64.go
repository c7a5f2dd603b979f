package trap

// see trampoline_riscv64.s and kernelvec_riscv64.s

func uservec()
func userret()
func kernelvec()
func usertrap_asm()
func uservec_pc() uintptr
func userret_pc() uintptr
func kernelvec_pc() uintptr
func usertrap_pc() uintptr
func jmpuserret(va, tfva, satp uintptr)
