// Package ustr holds kernel path strings as raw bytes. user paths arrive
// NUL-terminated from user memory and stay bytes end to end; they become
// Go strings only for log output.
package ustr

type Ustr []uint8

// the root directory, a fresh copy each time since paths mutate in place
func Root() Ustr {
	return Ustr{'/'}
}

// the bytes up to (not including) the first NUL
func FromBytes(buf []uint8) Ustr {
	for i, b := range buf {
		if b == 0 {
			return Ustr(buf[:i])
		}
	}
	return Ustr(buf)
}

func (us Ustr) Empty() bool {
	return len(us) == 0
}

func (us Ustr) IsAbsolute() bool {
	return len(us) > 0 && us[0] == '/'
}

func (us Ustr) Eq(o Ustr) bool {
	if len(us) != len(o) {
		return false
	}
	for i := range us {
		if us[i] != o[i] {
			return false
		}
	}
	return true
}

func (us Ustr) HasPrefix(p Ustr) bool {
	return len(us) >= len(p) && us[:len(p)].Eq(p)
}

func (us Ustr) Copy() Ustr {
	ret := make(Ustr, len(us))
	copy(ret, us)
	return ret
}

// dir + "/" + name in one fresh buffer; neither input is aliased
func Join(dir, name Ustr) Ustr {
	ret := make(Ustr, 0, len(dir)+1+len(name))
	ret = append(ret, dir...)
	ret = append(ret, '/')
	return append(ret, name...)
}

func (us Ustr) String() string {
	return string(us)
}
