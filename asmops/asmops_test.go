package asmops_test

import (
	"testing"
	"unsafe"

	"github.com/llcslice/reverse/asmops"
)

func TestCPUIDVendorString(t *testing.T) {
	t.Parallel()

	_, ebx, ecx, edx := asmops.CPUID(0, 0)

	s := make([]byte, 0, 12)
	for _, x := range []uint32{ebx, edx, ecx} {
		s = append(s, byte(x), byte(x>>8), byte(x>>16), byte(x>>24))
	}

	vendor := string(s)
	if vendor != "GenuineIntel" && vendor != "AuthenticAMD" {
		t.Fatalf("unrecognized CPU vendor string: %q", vendor)
	}
}

func TestRDTSCMonotonic(t *testing.T) {
	t.Parallel()

	a := asmops.RDTSCBegin()
	b := asmops.RDTSCEnd()

	if b < a {
		t.Fatalf("RDTSCEnd() = %d went backwards from RDTSCBegin() = %d", b, a)
	}
}

func TestCLFlushAndMaccessDoNotPanic(t *testing.T) {
	t.Parallel()

	var buf [64]byte

	// Use a real, live address: the local array. This merely exercises
	// that the instructions execute; it does not assert timing.
	addr := uintptr(unsafe.Pointer(&buf[0]))

	asmops.CLFlush(addr)
	asmops.Maccess(addr)
	asmops.Mfence()
}
