//go:build !riscv64

package main

func _entry()           { panic("riscv64 only") }
func entry_pc() uintptr { return 0 }
func etext_pc() uintptr { return 0 }
func end_pc() uintptr   { return 0 }
