package main

// see boot_riscv64.s

func _entry()
func entry_pc() uintptr
func etext_pc() uintptr
func end_pc() uintptr
