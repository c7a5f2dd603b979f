//go:build !fu740

package mem

// qemu virt machine
const (
	KERNBASE   Pa_t = 0x8020_0000
	MEMORY_END Pa_t = 0x8800_0000

	// mtime ticks per second
	TIMEBASE_FREQ int = 10_000_000

	NCPU int = 2

	VIRTIO0 uintptr = 0x1000_1000
)
