// Package diag disassembles raw machine code this process itself
// is about to execute, such as the compiled asmops leaf functions, into
// a one-line diagnostic. The scan and reverse commands do not call it;
// their --verbose output does not include this banner.
package diag

import (
	"fmt"
	"unsafe"

	"golang.org/x/arch/x86/x86asm"
)

// DecodeSelf decodes up to 16 bytes starting at fn (typically the
// address of a compiled leaf function such as asmops.CLFlush) and
// renders it in GNU syntax, the same decode-and-print idiom the
// teacher's Inst/Asm pair uses against a KVM guest's RIP, repointed at
// this process's own code.
func DecodeSelf(fn uintptr) (string, error) {
	code := unsafe.Slice((*byte)(unsafe.Pointer(fn)), 16) //nolint:gosec // reading our own .text

	inst, err := x86asm.Decode(code, 64)
	if err != nil {
		return "", fmt.Errorf("diag: decoding instruction at %#x: %w", fn, err)
	}

	return x86asm.GNUSyntax(inst, uint64(fn), nil), nil
}

// Banner formats a one-line "decoded $addr: $asm" diagnostic.
func Banner(fn uintptr) string {
	asm, err := DecodeSelf(fn)
	if err != nil {
		return fmt.Sprintf("decoded %#x: <%v>", fn, err)
	}

	return fmt.Sprintf("decoded %#x: %s", fn, asm)
}
