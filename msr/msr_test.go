package msr_test

import (
	"errors"
	"os"
	"testing"

	"github.com/llcslice/reverse/msr"
)

func TestReadMissingCPUDeviceFile(t *testing.T) {
	t.Parallel()

	g := msr.New()

	// CPU 99999 does not exist on any test machine, real or CI, so
	// /dev/cpu/99999/msr is absent and open fails with ENOENT. Only ENXIO
	// maps to ErrNoSuchCPU; every other open error is ErrMSRAccessDenied.
	if _, err := g.Read(99999, 0x10); !errors.Is(err, msr.ErrMSRAccessDenied) {
		t.Fatalf("Read(99999, ...) err = %v, want ErrMSRAccessDenied", err)
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	if os.Getuid() != 0 {
		t.Skipf("Skipping test since we are not root")
	}

	t.Parallel()

	g := msr.New()

	// IA32_PERFEVTSEL0 is safe to write a benign disabled-counter value
	// to and immediately read back.
	const reg = 0x186

	if err := g.Write(0, reg, 0); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := g.Read(0, reg)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if got != 0 {
		t.Errorf("Read after Write(0) = 0x%x, want 0", got)
	}
}

func TestGatewayCachesFileDescriptor(t *testing.T) {
	if os.Getuid() != 0 {
		t.Skipf("Skipping test since we are not root")
	}

	t.Parallel()

	g := msr.New()

	if _, err := g.Read(0, 0x186); err != nil {
		t.Fatalf("first Read: %v", err)
	}

	if _, err := g.Read(0, 0x186); err != nil {
		t.Fatalf("second Read (cached fd): %v", err)
	}
}

func TestReadAllWriteAllOrder(t *testing.T) {
	if os.Getuid() != 0 {
		t.Skipf("Skipping test since we are not root")
	}

	t.Parallel()

	g := msr.New()

	regs := []uint32{0x186, 0x187, 0x188, 0x189}

	if err := g.WriteAll(0, regs, 0); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}

	got, err := g.ReadAll(0, regs)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}

	if len(got) != len(regs) {
		t.Fatalf("ReadAll returned %d values, want %d", len(got), len(regs))
	}
}
