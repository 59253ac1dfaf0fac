// Package asmops wraps the handful of x86 instructions this tool cannot
// express in portable Go: CPUID, CLFLUSH, RDTSC/RDTSCP and MFENCE. Each
// wrapper is a leaf function implemented in asmops_amd64.s; nothing here
// tries to emulate what the instructions do.
package asmops

// CPUID executes the CPUID instruction with the given leaf (EAX) and
// sub-leaf (ECX) and returns the four result registers.
//
//go:noescape
func CPUID(leaf, subleaf uint32) (eax, ebx, ecx, edx uint32)

// CLFlush evicts the cache line containing addr from every level of the
// cache hierarchy. It does not fence around the flush; callers that need
// ordering guarantees must call Mfence themselves.
//
//go:noescape
func CLFlush(addr uintptr)

// Maccess performs a single 8-byte load from addr and discards the result.
// It exists purely to re-fetch a line that was just flushed.
//
//go:noescape
func Maccess(addr uintptr)

// Mfence executes a serializing memory fence.
//
//go:noescape
func Mfence()

// RDTSCFenced reads the timestamp counter with an MFENCE before and after,
// matching the plain (non-serializing) rdtsc() helper from the reference
// implementation: good enough to bound a single clflush, not precise enough
// for back-to-back instruction timing.
//
//go:noescape
func RDTSCFenced() uint64

// RDTSCBegin reads the timestamp counter using the CPUID+RDTSCP
// serialization sequence recommended for starting a timed region.
//
//go:noescape
func RDTSCBegin() uint64

// RDTSCEnd reads the timestamp counter using the RDTSCP+CPUID serialization
// sequence recommended for ending a timed region.
//
//go:noescape
func RDTSCEnd() uint64
