// Package circbuf is the byte ring behind pipes.
package circbuf

type Circbuf_t struct {
	buf  []uint8
	head int
	tail int
}

func (cb *Circbuf_t) Cb_init(sz int) {
	if sz == 0 {
		panic("no")
	}
	cb.buf = make([]uint8, sz)
	cb.head, cb.tail = 0, 0
}

func (cb *Circbuf_t) Full() bool {
	return cb.head-cb.tail == len(cb.buf)
}

func (cb *Circbuf_t) Empty() bool {
	return cb.head == cb.tail
}

func (cb *Circbuf_t) Used() int {
	return cb.head - cb.tail
}

func (cb *Circbuf_t) Left() int {
	return len(cb.buf) - cb.Used()
}

// copy in as much of src as fits; returns bytes consumed
func (cb *Circbuf_t) Write(src []uint8) int {
	ret := 0
	for len(src) > 0 && !cb.Full() {
		hi := cb.head % len(cb.buf)
		end := len(cb.buf)
		if cb.tail%len(cb.buf) > hi {
			end = cb.tail % len(cb.buf)
		}
		c := copy(cb.buf[hi:end], src)
		if c == 0 {
			break
		}
		src = src[c:]
		cb.head += c
		ret += c
	}
	return ret
}

// copy out up to len(dst) bytes; returns bytes produced
func (cb *Circbuf_t) Read(dst []uint8) int {
	ret := 0
	for len(dst) > 0 && !cb.Empty() {
		ti := cb.tail % len(cb.buf)
		end := len(cb.buf)
		if cb.head%len(cb.buf) > ti {
			end = cb.head % len(cb.buf)
		}
		c := copy(dst, cb.buf[ti:end])
		if c == 0 {
			break
		}
		dst = dst[c:]
		cb.tail += c
		ret += c
	}
	return ret
}

// peek a single byte without consuming it
func (cb *Circbuf_t) Peek() (uint8, bool) {
	if cb.Empty() {
		return 0, false
	}
	return cb.buf[cb.tail%len(cb.buf)], true
}
