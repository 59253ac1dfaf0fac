// Package platform is the thin CPU-identification collaborator: a
// one-shot CPUID/proc-cpuinfo query that the rest of the tool treats as
// ground truth for the remainder of the process's life.
package platform

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/llcslice/reverse/asmops"
)

// ErrNotIntel indicates CPUID leaf 0's vendor string isn't "GenuineIntel".
var ErrNotIntel = errors.New("platform: CPU is not Intel")

// ApicCore pairs a logical processor's initial APIC id with its core id,
// both read from /proc/cpuinfo in "processor" order.
type ApicCore struct {
	ApicID int
	CoreID int
}

// Info is the immutable platform snapshot computed once by Detect.
type Info struct {
	DisplayModel     int
	ThreadsPerCore   int
	ThreadsPerPkg    int
	NbCores          int
	CurrentApicID    int
	CurrentCoreID    int
	ApicCoreMapping  []ApicCore
}

// VendorString reads CPUID leaf 0 and reassembles the 12-byte vendor
// string from EBX:EDX:ECX, the order Intel's manual specifies.
func VendorString() string {
	_, ebx, ecx, edx := asmops.CPUID(0, 0)

	b := make([]byte, 0, 12)
	for _, x := range []uint32{ebx, edx, ecx} {
		b = append(b, byte(x), byte(x>>8), byte(x>>16), byte(x>>24))
	}

	return string(b)
}

// IsIntel reports whether the running CPU identifies as GenuineIntel.
func IsIntel() bool {
	return VendorString() == "GenuineIntel"
}

// DisplayModel extracts CPUID leaf 1's display-model field:
// ((eax>>16)&0xF)<<4 | ((eax>>4)&0xF).
func DisplayModel() int {
	eax, _, _, _ := asmops.CPUID(1, 0)

	extended := (eax >> 16) & 0xF
	base := (eax >> 4) & 0xF

	return int(extended<<4 | base)
}

// threadsPerCoreLeafB reads CPUID leaf 0xB sub-leaf 0 (SMT level): EBX is
// the number of logical processors sharing this core.
func threadsPerCoreLeafB() int {
	_, ebx, _, _ := asmops.CPUID(0xB, 0)

	return int(ebx)
}

// threadsPerPackageLeafB reads CPUID leaf 0xB sub-leaf 1 (core level):
// EBX is the number of logical processors in the package, EDX the
// current logical processor's x2APIC id.
func threadsPerPackageLeafB() (threads int, apicID int) {
	_, ebx, _, edx := asmops.CPUID(0xB, 1)

	return int(ebx), int(edx)
}

// Detect probes CPUID and /proc/cpuinfo once and returns the immutable
// platform snapshot the rest of the tool is built on.
func Detect() (*Info, error) {
	if !IsIntel() {
		return nil, ErrNotIntel
	}

	threadsPerCore := threadsPerCoreLeafB()
	threadsPerPkg, apicID := threadsPerPackageLeafB()

	if threadsPerCore == 0 {
		threadsPerCore = 1
	}

	f, err := os.Open("/proc/cpuinfo")
	if err != nil {
		return nil, fmt.Errorf("platform: opening /proc/cpuinfo: %w", err)
	}
	defer f.Close()

	mapping, err := parseCPUInfo(f, threadsPerPkg)
	if err != nil {
		return nil, err
	}

	coreID := apicidToCoreID(apicID, mapping)

	return &Info{
		DisplayModel:    DisplayModel(),
		ThreadsPerCore:  threadsPerCore,
		ThreadsPerPkg:   threadsPerPkg,
		NbCores:         threadsPerPkg / threadsPerCore,
		CurrentApicID:   apicID,
		CurrentCoreID:   coreID,
		ApicCoreMapping: mapping,
	}, nil
}

// parseCPUInfo extracts, in "processor" order, the "core id" and
// "initial apicid" lines from /proc/cpuinfo. It mirrors the line-by-line
// bufio.Scanner "key : value" split used to parse the same file for
// general CPU inventories, limited to the two fields this tool needs.
func parseCPUInfo(r io.Reader, want int) ([]ApicCore, error) {
	mapping := make([]ApicCore, 0, want)

	var cur ApicCore

	have := false

	s := bufio.NewScanner(r)
	for s.Scan() {
		key, value := splitCPUInfoLine(s.Text())

		switch key {
		case "":
			if have {
				mapping = append(mapping, cur)
				cur = ApicCore{}
				have = false
			}
		case "core id":
			cur.CoreID, _ = strconv.Atoi(value)
			have = true
		case "initial apicid":
			cur.ApicID, _ = strconv.Atoi(value)
			have = true
		}
	}

	if have {
		mapping = append(mapping, cur)
	}

	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("platform: scanning /proc/cpuinfo: %w", err)
	}

	return mapping, nil
}

func apicidToCoreID(apicID int, mapping []ApicCore) int {
	for _, m := range mapping {
		if m.ApicID == apicID {
			return m.CoreID
		}
	}

	return -1
}

func splitCPUInfoLine(line string) (key, value string) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return "", ""
	}

	return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:])
}
