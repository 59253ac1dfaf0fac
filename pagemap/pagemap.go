// Package pagemap translates process virtual addresses to physical
// addresses via /proc/self/pagemap, caching the last translated
// virtual page so repeated pokes of the same page skip the file read.
package pagemap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

const (
	pageShift = 12
	pageSize  = 1 << pageShift
	pageMask  = pageSize - 1
	entrySize = 8 // bytes per /proc/self/pagemap entry

	presentBit = 63
	swappedBit = 62
	pfnBits    = 55
)

// ErrPageNotPresent indicates the pagemap entry's present bit (63) is
// unset: the virtual page has no physical backing, typically because
// it has never been touched.
var ErrPageNotPresent = errors.New("pagemap: page not present")

// ErrPageSwapped indicates the pagemap entry's swapped bit (62) is set.
var ErrPageSwapped = errors.New("pagemap: page swapped out")

// Translator holds the open /proc/self/pagemap handle and the
// single-entry virtual-page cache that lets repeated translations of
// the same page (the common case when clflush-poking one address
// thousands of times) skip re-reading the file.
type Translator struct {
	f *os.File

	haveLast     bool
	lastVirtPage uint64
	lastPhysPage uint64
}

// Open opens /proc/self/pagemap for the calling process.
func Open() (*Translator, error) {
	f, err := os.Open("/proc/self/pagemap")
	if err != nil {
		return nil, fmt.Errorf("pagemap: %w", err)
	}

	return &Translator{f: f}, nil
}

// Close releases the underlying pagemap file descriptor.
func (t *Translator) Close() error {
	return t.f.Close()
}

// Translate returns the physical address backing virt, the page's
// physical page number shifted left by 12 and or'd with the
// in-page offset of virt.
func (t *Translator) Translate(virt uintptr) (uintptr, error) {
	virtPage := uint64(virt) >> pageShift

	if t.haveLast && virtPage == t.lastVirtPage {
		return uintptr(t.lastPhysPage<<pageShift) | (virt & pageMask), nil
	}

	entry, err := t.readEntry(virtPage)
	if err != nil {
		return 0, err
	}

	if entry&(1<<presentBit) == 0 {
		return 0, ErrPageNotPresent
	}

	if entry&(1<<swappedBit) != 0 {
		return 0, ErrPageSwapped
	}

	pfn := entry & ((1 << pfnBits) - 1)

	t.haveLast = true
	t.lastVirtPage = virtPage
	t.lastPhysPage = pfn

	return uintptr(pfn<<pageShift) | (virt & pageMask), nil
}

func (t *Translator) readEntry(virtPage uint64) (uint64, error) {
	var buf [entrySize]byte

	off := int64(virtPage) * entrySize

	n, err := t.f.ReadAt(buf[:], off)
	if err != nil || n != entrySize {
		return 0, fmt.Errorf("pagemap: reading entry at offset %d: %w", off, err)
	}

	return binary.LittleEndian.Uint64(buf[:]), nil
}
