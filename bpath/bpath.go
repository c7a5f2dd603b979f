// Package bpath cleans the paths handed to the fat32 layer: repeated
// separators collapse, "." components drop, and ".." components unwind.
package bpath

import "github.com/soxsx/oskernel2023-bitethedisk/ustr"

func isdot(c []uint8) bool {
	return len(c) == 1 && c[0] == '.'
}

func isdotdot(c []uint8) bool {
	return len(c) == 2 && c[0] == '.' && c[1] == '.'
}

// canonical form of path, built component by component into a fresh
// buffer. ".." never escapes the root; in a relative path it survives
// only while there is nothing left to unwind.
func Canonicalize(path ustr.Ustr) ustr.Ustr {
	abs := path.IsAbsolute()
	var keep [][]uint8

	i := 0
	for i < len(path) {
		for i < len(path) && path[i] == '/' {
			i++
		}
		j := i
		for j < len(path) && path[j] != '/' {
			j++
		}
		if j == i {
			break
		}
		c := path[i:j]
		i = j
		switch {
		case isdot(c):
		case isdotdot(c):
			if n := len(keep); n > 0 && !isdotdot(keep[n-1]) {
				keep = keep[:n-1]
			} else if !abs {
				keep = append(keep, c)
			}
		default:
			keep = append(keep, c)
		}
	}

	out := make(ustr.Ustr, 0, len(path))
	if abs {
		out = append(out, '/')
	}
	for n, c := range keep {
		if n > 0 {
			out = append(out, '/')
		}
		out = append(out, c...)
	}
	if len(out) == 0 {
		out = append(out, '.')
	}
	return out
}
