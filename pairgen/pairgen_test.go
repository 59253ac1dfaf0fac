package pairgen_test

import (
	"os"
	"testing"

	"github.com/llcslice/reverse/pagemap"
	"github.com/llcslice/reverse/pairgen"
)

func TestLowBitPairDiffersInExactlyOneBit(t *testing.T) {
	if os.Getuid() != 0 {
		t.Skipf("Skipping test since we are not root")
	}

	t.Parallel()

	r, err := pairgen.NewLowBitRegion(pairgen.HugePage2M)
	if err != nil {
		t.Skipf("NewLowBitRegion: %v", err)
	}
	defer r.Close()

	pair := r.LowBitPair(10, 3)

	if pair.Addr1^pair.Addr2 != 1<<10 {
		t.Errorf("addresses differ by %#x, want bit 10 only", pair.Addr1^pair.Addr2)
	}
}

func TestHighBitPairOrInsufficientPages(t *testing.T) {
	if os.Getuid() != 0 {
		t.Skipf("Skipping test since we are not root")
	}

	t.Parallel()

	free, err := pairgen.FreeHugePages()
	if err != nil {
		t.Skipf("FreeHugePages: %v", err)
	}

	if free < 2 {
		t.Skip("not enough free huge pages for this test")
	}

	tr, err := pagemap.Open()
	if err != nil {
		t.Fatalf("pagemap.Open: %v", err)
	}
	defer tr.Close()

	r, err := pairgen.NewHighBitRegion(free, pairgen.HugePage2M, tr)
	if err != nil {
		t.Skipf("NewHighBitRegion: %v", err)
	}
	defer r.Close()

	_, err = r.HighBitPair(21, 0)
	if err != nil && err != pairgen.ErrInsufficientHugePages {
		t.Fatalf("HighBitPair: %v", err)
	}
}

func TestFreeHugePagesNonNegative(t *testing.T) {
	t.Parallel()

	n, err := pairgen.FreeHugePages()
	if err != nil {
		t.Skipf("FreeHugePages: %v", err)
	}

	if n < 0 {
		t.Errorf("FreeHugePages() = %d, want >= 0", n)
	}
}
