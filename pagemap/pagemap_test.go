package pagemap_test

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/llcslice/reverse/pagemap"
)

func TestTranslateOwnStack(t *testing.T) {
	t.Parallel()

	tr, err := pagemap.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer tr.Close()

	var x int
	addr := uintptr(unsafe.Pointer(&x))

	phys, err := tr.Translate(addr)
	if err != nil {
		if errors.Is(err, pagemap.ErrPageNotPresent) {
			t.Skip("stack page not yet faulted in, nothing to translate")
		}

		t.Fatalf("Translate: %v", err)
	}

	if phys == 0 {
		t.Errorf("Translate(%#x) = 0, want nonzero physical address", addr)
	}
}

func TestTranslateCachesSamePage(t *testing.T) {
	t.Parallel()

	tr, err := pagemap.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer tr.Close()

	var buf [8]byte
	addr := uintptr(unsafe.Pointer(&buf[0]))

	first, err := tr.Translate(addr)
	if err != nil {
		t.Skipf("Translate: %v", err)
	}

	second, err := tr.Translate(addr + 1)
	if err != nil {
		t.Fatalf("Translate (cached): %v", err)
	}

	if first+1 != second {
		t.Errorf("cached translation mismatch: first=%#x second=%#x", first, second)
	}
}
