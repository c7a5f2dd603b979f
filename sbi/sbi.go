// Package sbi wraps the supervisor binary interface calls the kernel relies
// on: early console, timer compare, hart lifecycle, and reset.
package sbi

const (
	// legacy extensions
	_EXT_SET_TIMER       = 0x0
	_EXT_CONSOLE_PUTCHAR = 0x1
	_EXT_CONSOLE_GETCHAR = 0x2

	// v0.2 extensions
	_EXT_TIME = 0x54494D45
	_EXT_IPI  = 0x735049
	_EXT_HSM  = 0x48534D
	_EXT_SRST = 0x53525354

	_HSM_HART_START = 0

	_SRST_RESET          = 0
	_RESET_TYPE_SHUTDOWN = 0
)

func Console_putchar(c byte) {
	sbicall(_EXT_CONSOLE_PUTCHAR, 0, uintptr(c), 0, 0)
}

// returns -1 if no byte is pending
func Console_getchar() int {
	err, _ := sbicall(_EXT_CONSOLE_GETCHAR, 0, 0, 0, 0)
	return int(err)
}

// arm the supervisor timer compare at absolute mtime ticks
func Set_timer(stime uintptr) {
	sbicall(_EXT_TIME, 0, stime, 0, 0)
}

// start a stopped hart at entry with opaque in a1
func Hart_start(hartid, entry, opaque uintptr) int {
	err, _ := sbicall(_EXT_HSM, _HSM_HART_START, hartid, entry, opaque)
	return int(err)
}

func Send_ipi(hartmask uintptr) {
	sbicall(_EXT_IPI, 0, hartmask, 0, 0)
}

func Shutdown() {
	sbicall(_EXT_SRST, _SRST_RESET, _RESET_TYPE_SHUTDOWN, 0, 0)
	for {
	}
}
