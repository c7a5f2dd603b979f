package defs

type Fdopt_t uint

// system call numbers, linux riscv64 table
const (
	SYS_GETCWD          = 17
	SYS_DUP             = 23
	SYS_DUP3            = 24
	SYS_FCNTL           = 25
	SYS_IOCTL           = 29
	SYS_MKDIRAT         = 34
	SYS_UNLINKAT        = 35
	SYS_LINKAT          = 37
	SYS_UMOUNT2         = 39
	SYS_MOUNT           = 40
	SYS_FACCESSAT       = 48
	SYS_CHDIR           = 49
	SYS_OPENAT          = 56
	SYS_CLOSE           = 57
	SYS_PIPE2           = 59
	SYS_GETDENTS64      = 61
	SYS_LSEEK           = 62
	SYS_READ            = 63
	SYS_WRITE           = 64
	SYS_READV           = 65
	SYS_WRITEV          = 66
	SYS_PREAD64         = 67
	SYS_SENDFILE        = 71
	SYS_PPOLL           = 73
	SYS_NEWFSTATAT      = 79
	SYS_FSTAT           = 80
	SYS_FSYNC           = 82
	SYS_UTIMENSAT       = 88
	SYS_EXIT            = 93
	SYS_EXIT_GROUP      = 94
	SYS_SET_TID_ADDRESS = 96
	SYS_SET_ROBUST_LIST = 99
	SYS_GET_ROBUST_LIST = 100
	SYS_NANOSLEEP       = 101
	SYS_SETITIMER       = 103
	SYS_CLOCK_GETTIME   = 113
	SYS_SCHED_YIELD     = 124
	SYS_KILL            = 129
	SYS_TKILL           = 130
	SYS_TGKILL          = 131
	SYS_RT_SIGACTION    = 134
	SYS_RT_SIGPROCMASK  = 135
	SYS_RT_SIGRETURN    = 139
	SYS_TIMES           = 153
	SYS_SETPGID         = 154
	SYS_GETPGID         = 155
	SYS_UNAME           = 160
	SYS_GETRUSAGE       = 165
	SYS_GETTIMEOFDAY    = 169
	SYS_GETPID          = 172
	SYS_GETPPID         = 173
	SYS_GETUID          = 174
	SYS_GETEUID         = 175
	SYS_GETGID          = 176
	SYS_GETEGID         = 177
	SYS_GETTID          = 178
	SYS_BRK             = 214
	SYS_MUNMAP          = 215
	SYS_CLONE           = 220
	SYS_EXECVE          = 221
	SYS_MMAP            = 222
	SYS_MPROTECT        = 226
	SYS_WAIT4           = 260
	SYS_PRLIMIT64       = 261
	SYS_FUTEX           = 98

	MAXSYSCALL = 280
)

// open flags
const (
	O_RDONLY    Fdopt_t = 0
	O_WRONLY    Fdopt_t = 0x1
	O_RDWR      Fdopt_t = 0x2
	O_CREAT     Fdopt_t = 0x40
	O_EXCL      Fdopt_t = 0x80
	O_TRUNC     Fdopt_t = 0x200
	O_APPEND    Fdopt_t = 0x400
	O_NONBLOCK  Fdopt_t = 0x800
	O_DIRECTORY Fdopt_t = 0x10000
	O_CLOEXEC   Fdopt_t = 0x80000

	AT_FDCWD = -100

	SEEK_SET = 0
	SEEK_CUR = 1
	SEEK_END = 2
)

// clone flags; the low byte is the exit signal
const (
	CLONE_VM             = 0x00000100
	CLONE_FS             = 0x00000200
	CLONE_FILES          = 0x00000400
	CLONE_SIGHAND        = 0x00000800
	CLONE_PARENT         = 0x00008000
	CLONE_THREAD         = 0x00010000
	CLONE_SETTLS         = 0x00080000
	CLONE_PARENT_SETTID  = 0x00100000
	CLONE_CHILD_CLEARTID = 0x00200000
	CLONE_DETACHED       = 0x00400000
	CLONE_CHILD_SETTID   = 0x01000000
)

// mmap
const (
	PROT_NONE  = 0x0
	PROT_READ  = 0x1
	PROT_WRITE = 0x2
	PROT_EXEC  = 0x4

	MAP_SHARED    = 0x01
	MAP_PRIVATE   = 0x02
	MAP_FIXED     = 0x10
	MAP_ANONYMOUS = 0x20
	MAP_FAILED    = -1
)

// futex ops; the PRIVATE bit is ignored since we have no shared futexes
// across address spaces other than by physical key.
const (
	FUTEX_WAIT         = 0
	FUTEX_WAKE         = 1
	FUTEX_REQUEUE      = 3
	FUTEX_CMP_REQUEUE  = 4
	FUTEX_PRIVATE_FLAG = 128
	FUTEX_CLOCK_REALTIME = 256
	FUTEX_CMD_MASK     = ^(FUTEX_PRIVATE_FLAG | FUTEX_CLOCK_REALTIME)
)

const (
	WNOHANG = 1
)

// rlimit resources
const (
	RLIMIT_CPU    = 0
	RLIMIT_FSIZE  = 1
	RLIMIT_DATA   = 2
	RLIMIT_STACK  = 3
	RLIMIT_CORE   = 4
	RLIMIT_NPROC  = 6
	RLIMIT_NOFILE = 7

	RLIM_INFINITY = ^uint(0)
)
