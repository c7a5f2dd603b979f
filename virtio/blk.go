// Package virtio drives the legacy virtio-mmio block device on the qemu
// virt machine. completion is polled; the request, descriptor rings, and
// data buffers all live in physically contiguous frames so the device sees
// them without an IOMMU.
package virtio

import (
	"sync"
	"unsafe"

	"github.com/soxsx/oskernel2023-bitethedisk/mem"
)

// virtio-mmio registers, legacy layout
const (
	mmio_magic          = 0x000
	mmio_version        = 0x004
	mmio_device_id      = 0x008
	mmio_device_features = 0x010
	mmio_driver_features = 0x020
	mmio_guest_page_size = 0x028
	mmio_queue_sel      = 0x030
	mmio_queue_num_max  = 0x034
	mmio_queue_num      = 0x038
	mmio_queue_pfn      = 0x040
	mmio_queue_notify   = 0x050
	mmio_interrupt_status = 0x060
	mmio_interrupt_ack  = 0x064
	mmio_status         = 0x070
)

const (
	status_ack        = 1
	status_driver     = 2
	status_driver_ok  = 4
	status_features_ok = 8
)

const (
	desc_f_next  = 1
	desc_f_write = 2
)

const (
	blk_t_in  = 0
	blk_t_out = 1
)

const qsize = 8

type desc_t struct {
	addr  uint64
	len   uint32
	flags uint16
	next  uint16
}

type avail_t struct {
	flags uint16
	idx   uint16
	ring  [qsize]uint16
}

type usedelem_t struct {
	id  uint32
	len uint32
}

type used_t struct {
	flags uint16
	idx   uint16
	ring  [qsize]usedelem_t
}

// one outstanding request: header, data, status, in three descriptors
type blkreq_t struct {
	rtype    uint32
	reserved uint32
	sector   uint64
}

type Disk_t struct {
	sync.Mutex
	base  uintptr
	desc  *[qsize]desc_t
	avail *avail_t
	used  *used_t
	// request header and status byte, DMA-visible
	req      *blkreq_t
	p_req    mem.Pa_t
	stat     *uint8
	p_stat   mem.Pa_t
	// one-sector bounce buffer
	p_buf    mem.Pa_t
	usedseen uint16
}

func (d *Disk_t) reg(off uintptr) *uint32 {
	return (*uint32)(unsafe.Pointer(d.base + off))
}

// bring up the device and build its single queue in contiguous frames.
func Mkdisk(base uintptr) *Disk_t {
	d := &Disk_t{base: base}
	if *d.reg(mmio_magic) != 0x74726976 || *d.reg(mmio_device_id) != 2 {
		panic("no virtio-blk here")
	}

	*d.reg(mmio_status) = 0
	*d.reg(mmio_status) = status_ack | status_driver
	// no features negotiated: no segmented requests, no flush
	*d.reg(mmio_driver_features) = 0
	*d.reg(mmio_status) |= status_features_ok
	*d.reg(mmio_guest_page_size) = uint32(mem.PGSIZE)

	// the legacy layout wants descriptors, avail, and used on one
	// physically contiguous run starting page-aligned
	p_q, ok := mem.Physmem.Refpg_new_contig(2)
	if !ok {
		panic("oom in boot")
	}
	mem.Pg_zero(p_q)
	mem.Pg_zero(p_q + mem.Pa_t(mem.PGSIZE))
	qbase := unsafe.Pointer(mem.Dmap(p_q))
	d.desc = (*[qsize]desc_t)(qbase)
	d.avail = (*avail_t)(unsafe.Pointer(uintptr(qbase) + unsafe.Sizeof([qsize]desc_t{})))
	d.used = (*used_t)(unsafe.Pointer(uintptr(qbase) + uintptr(mem.PGSIZE)))

	*d.reg(mmio_queue_sel) = 0
	if *d.reg(mmio_queue_num_max) < qsize {
		panic("queue too small")
	}
	*d.reg(mmio_queue_num) = qsize
	*d.reg(mmio_queue_pfn) = uint32(p_q >> mem.PGSHIFT)

	// header/status/bounce DMA page
	p_hdr, ok := mem.Physmem.Refpg_new_contig(1)
	if !ok {
		panic("oom in boot")
	}
	mem.Pg_zero(p_hdr)
	d.p_req = p_hdr
	d.req = (*blkreq_t)(unsafe.Pointer(mem.Dmap(p_hdr)))
	d.p_stat = p_hdr + 16
	d.stat = &mem.Dmap(p_hdr)[16]
	d.p_buf = p_hdr + 512
	*d.reg(mmio_status) |= status_driver_ok
	return d
}

// submit one 512-byte transfer and spin for completion
func (d *Disk_t) rw(blockno int, buf *[512]uint8, write bool) {
	d.Lock()
	defer d.Unlock()

	if write {
		d.req.rtype = blk_t_out
		copy(mem.Dmap(d.p_buf &^ mem.PGOFFSET)[512:1024], buf[:])
	} else {
		d.req.rtype = blk_t_in
	}
	d.req.sector = uint64(blockno)

	dataflags := uint16(desc_f_next)
	if !write {
		dataflags |= desc_f_write
	}
	d.desc[0] = desc_t{addr: uint64(d.p_req), len: 16, flags: desc_f_next, next: 1}
	d.desc[1] = desc_t{addr: uint64(d.p_buf), len: 512, flags: dataflags, next: 2}
	d.desc[2] = desc_t{addr: uint64(d.p_stat), len: 1, flags: desc_f_write}

	*d.stat = 0xff
	d.avail.ring[d.avail.idx%qsize] = 0
	d.avail.idx++
	*d.reg(mmio_queue_notify) = 0

	for d.used.idx == d.usedseen {
	}
	d.usedseen = d.used.idx
	*d.reg(mmio_interrupt_ack) = *d.reg(mmio_interrupt_status) & 3

	if *d.stat != 0 {
		panic("virtio-blk io error")
	}
	if !write {
		copy(buf[:], mem.Dmap(d.p_buf&^mem.PGOFFSET)[512:1024])
	}
}

func (d *Disk_t) Read_block(blockno int, dst *[512]uint8) {
	d.rw(blockno, dst, false)
}

func (d *Disk_t) Write_block(blockno int, src *[512]uint8) {
	d.rw(blockno, src, true)
}
