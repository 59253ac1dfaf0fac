// Package pairgen allocates huge-page-backed memory and generates
// address pairs that differ in exactly one physical address bit, the
// raw material the voter package turns into hash-bit support sets.
package pairgen

import (
	"errors"
	"fmt"
	"math/bits"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/llcslice/reverse/pagemap"
)

// Huge page sizes the two probing regimes use: a single 2MiB page is
// enough to test every bit below the page boundary directly (virtual
// offsets inside one huge page are physically contiguous), while bits
// at or above the page boundary need several pages and a reverse
// physical-address map to find a pair that differs in just one bit.
const (
	HugePage2M = 2 * 1024 * 1024
	HugePage1G = 1 * 1024 * 1024 * 1024
)

// AddrPair is two addresses differing in exactly physical bit Bit.
type AddrPair struct {
	Bit         int
	Addr1, Addr2 uintptr
}

// ErrInsufficientHugePages indicates no two currently-mapped huge pages
// have physical page numbers differing in exactly the requested bit.
// The caller should skip that bit rather than abort the whole run.
var ErrInsufficientHugePages = errors.New("pairgen: no pair of huge pages differs only in the requested bit")

// Region is a block of one or more huge pages mmap'd together, plus
// (for multi-page regions) the reverse physical-page-number index
// built from translating each page once.
type Region struct {
	mem        []byte
	pageSize   uintptr
	pageShift  uint
	ppnToIndex map[uint64]int
}

// mapHugePages allocates nbPages contiguous huge pages of pageSize
// bytes each, backed by MAP_HUGETLB, and touches every byte so the
// kernel actually commits them (mirrors the reference implementation's
// post-mmap fill loop, which also serves as a correctness check: a
// short huge-page pool fails the mmap outright rather than silently
// falling back to 4KiB pages).
func mapHugePages(nbPages int, pageSize uintptr) ([]byte, error) {
	size := int(pageSize) * nbPages

	mem, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS|unix.MAP_POPULATE|unix.MAP_HUGETLB)
	if err != nil {
		return nil, fmt.Errorf("pairgen: mmap %d huge pages of %d bytes: %w", nbPages, pageSize, err)
	}

	for i := range mem {
		mem[i] = 12
	}

	return mem, nil
}

// NewLowBitRegion maps a single huge page for testing every address
// bit strictly below the page's own size bit.
func NewLowBitRegion(pageSize uintptr) (*Region, error) {
	mem, err := mapHugePages(1, pageSize)
	if err != nil {
		return nil, err
	}

	return &Region{mem: mem, pageSize: pageSize, pageShift: uint(bits.TrailingZeros64(uint64(pageSize)))}, nil
}

// NewHighBitRegion maps nbPages huge pages and indexes each by its
// physical page number, resolved once via tr, so HighBitPair can look
// up a same-bit-flip pair by map lookup instead of the reference
// implementation's linear rescan per candidate bit.
func NewHighBitRegion(nbPages int, pageSize uintptr, tr *pagemap.Translator) (*Region, error) {
	mem, err := mapHugePages(nbPages, pageSize)
	if err != nil {
		return nil, err
	}

	r := &Region{
		mem:        mem,
		pageSize:   pageSize,
		pageShift:  uint(bits.TrailingZeros64(uint64(pageSize))),
		ppnToIndex: make(map[uint64]int, nbPages),
	}

	base := r.BaseAddr()

	for i := 0; i < nbPages; i++ {
		phys, err := tr.Translate(base + uintptr(i)*pageSize)
		if err != nil {
			continue
		}

		r.ppnToIndex[uint64(phys)>>r.pageShift] = i
	}

	return r, nil
}

// Close unmaps the region's huge pages.
func (r *Region) Close() error {
	return unix.Munmap(r.mem)
}

// BaseAddr is the virtual address of the region's first byte.
func (r *Region) BaseAddr() uintptr {
	return uintptr(unsafe.Pointer(&r.mem[0]))
}

// LowBitPair returns the sample-th pair of addresses inside the region
// that differ only in address bit, valid only when bit is below the
// region's own page-size bit.
func (r *Region) LowBitPair(bit, sample int) AddrPair {
	offset1 := uintptr(sample) << 6
	offset2 := offset1 ^ (uintptr(1) << uint(bit))

	base := r.BaseAddr()

	return AddrPair{Bit: bit, Addr1: base + offset1, Addr2: base + offset2}
}

// HighBitPair finds two mapped pages whose physical page numbers
// differ in exactly (bit - pageShift) and returns the sample-th
// cache-line pair within them.
func (r *Region) HighBitPair(bit, sample int) (AddrPair, error) {
	bitInPage := uint(bit) - r.pageShift

	for ppn1, idx1 := range r.ppnToIndex {
		ppn2 := ppn1 ^ (1 << bitInPage)

		idx2, ok := r.ppnToIndex[ppn2]
		if !ok {
			continue
		}

		base := r.BaseAddr()
		off1 := uintptr(idx1)*r.pageSize + uintptr(sample)<<6
		off2 := uintptr(idx2)*r.pageSize + uintptr(sample)<<6

		return AddrPair{Bit: bit, Addr1: base + off1, Addr2: base + off2}, nil
	}

	return AddrPair{}, ErrInsufficientHugePages
}
