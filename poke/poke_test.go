package poke_test

import (
	"testing"
	"unsafe"

	"github.com/llcslice/reverse/poke"
)

func TestPokeResolvesPhysicalAddress(t *testing.T) {
	t.Parallel()

	p, err := poke.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	var buf [64]byte
	addr := uintptr(unsafe.Pointer(&buf[0]))

	phys, err := p.Poke(addr)
	if err != nil {
		t.Skipf("Poke: %v", err)
	}

	if phys == 0 {
		t.Errorf("Poke(%#x) = 0, want nonzero", addr)
	}
}
