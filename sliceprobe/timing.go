package sliceprobe

import "github.com/llcslice/reverse/asmops"

// flushHit times one clflush of addr: fenced read of the TSC, the
// flush itself, then the delta against another fenced TSC read. The
// two maccess calls afterward re-fault the line in so the following
// iteration starts from the same warmed state the reference
// implementation relies on.
func flushHit(addr uintptr) int {
	start := asmops.RDTSCFenced()
	asmops.CLFlush(addr)
	delta := asmops.RDTSCFenced() - start

	asmops.Maccess(addr)
	asmops.Maccess(addr)

	return int(delta)
}

// leafBThreadsAndAPIC reads CPUID leaf 0xB sub-leaf 1 (core level) for
// the current logical processor's thread count and x2APIC id.
func leafBThreadsAndAPIC() (threads int, apicID int) {
	_, ebx, _, edx := asmops.CPUID(0xB, 1)

	return int(ebx), int(edx)
}
