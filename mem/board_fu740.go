//go:build fu740

package mem

// sifive u740
const (
	KERNBASE   Pa_t = 0x8020_0000
	MEMORY_END Pa_t = 0x9000_0000

	TIMEBASE_FREQ int = 1_000_000

	// hart 0 is the S7 monitor core and does not run the kernel
	NCPU int = 4

	VIRTIO0 uintptr = 0x0
)
