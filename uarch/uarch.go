// Package uarch holds the static, read-only performance-counter profiles
// for each supported Intel microarchitecture. Profiles are selected once
// from Lookup and passed by reference from then on; nothing in this
// package is ever mutated after construction.
package uarch

import "fmt"

// Class is the broad CPU class: client ("Core") parts have one CBo per
// physical core wired through the uncore perf counters; server ("Xeon")
// parts expose a separate PMON box per slice.
type Class uint8

const (
	ClassUnknown Class = iota
	ClassCore
	ClassXeon
)

//go:generate stringer -type=Class
func (c Class) String() string {
	switch c {
	case ClassCore:
		return "core"
	case ClassXeon:
		return "xeon"
	default:
		return "unknown"
	}
}

// Microarch identifies a specific Intel microarchitecture generation.
type Microarch uint8

const (
	MicroarchUnknown Microarch = iota
	SandyBridge
	IvyBridge
	Haswell
	Broadwell
	Skylake
	KabyLake
	SkylakeSP
)

//go:generate stringer -type=Microarch
func (m Microarch) String() string {
	switch m {
	case SandyBridge:
		return "Sandy Bridge"
	case IvyBridge:
		return "Ivy Bridge"
	case Haswell:
		return "Haswell"
	case Broadwell:
		return "Broadwell"
	case Skylake:
		return "Skylake"
	case KabyLake:
		return "Kaby Lake"
	case SkylakeSP:
		return "Skylake SP"
	default:
		return "unknown"
	}
}

// ErrUnsupportedModel indicates a display-model not present in the
// dispatch table below. The timing backend remains usable; the counter
// backends cannot be configured.
type ErrUnsupportedModel struct {
	DisplayModel int
}

func (e *ErrUnsupportedModel) Error() string {
	return fmt.Sprintf("uarch: unsupported display model %d", e.DisplayModel)
}

// ClassifyModel maps a CPUID leaf-1 display-model to a (Class, Microarch)
// pair, following the dispatch table in the reference implementation's
// determine_class_uarch.
func ClassifyModel(displayModel int) (Class, Microarch, error) {
	switch displayModel {
	case 45:
		return ClassXeon, SandyBridge, nil
	case 62:
		return ClassXeon, IvyBridge, nil
	case 63:
		return ClassXeon, Haswell, nil
	case 86, 79:
		return ClassXeon, Broadwell, nil
	case 85:
		return ClassXeon, SkylakeSP, nil
	case 42:
		return ClassCore, SandyBridge, nil
	case 58:
		return ClassCore, IvyBridge, nil
	case 60, 69, 70:
		return ClassCore, Haswell, nil
	case 61, 71:
		return ClassCore, Broadwell, nil
	case 78, 94:
		return ClassCore, Skylake, nil
	case 142, 158:
		return ClassCore, KabyLake, nil
	default:
		return ClassUnknown, MicroarchUnknown, &ErrUnsupportedModel{DisplayModel: displayModel}
	}
}

// XeonRegisters holds the per-slice MSR register numbers for a Xeon PMON
// box. Every slice of every profile contributes one entry per vector, so
// all four vectors always share len(Ctr0).
type XeonRegisters struct {
	Ctr0      []uint32 // per-slice counter register
	BoxFilter []uint32 // per-slice filter register
	Ctl0      []uint32 // per-slice control register
	BoxCtl    []uint32 // per-slice box-control register

	BoxFreeze      uint64
	BoxReset       uint64
	EnableCounting uint64
	SelectEvent    uint64
	Filter         uint64
	BoxUnfreeze    uint64
}

// CoreRegisters holds the per-slice MSR register numbers for a client CBo.
type CoreRegisters struct {
	GlobalCtrl     uint32 // unc_perf_global_ctr
	PerfEvtSel0    []uint32
	PerCtr0        []uint32
	EnableCtrs     uint64
	DisableCtrs    uint64
	SelectEvtCore  uint64
	ResetCtrs      uint64
}

// Profile is the immutable, fully-resolved counter configuration for one
// (Class, Microarch) pair. Exactly one of Xeon/Core is populated,
// according to Class.
type Profile struct {
	Class     Class
	Microarch Microarch
	MaxSlices int

	Xeon *XeonRegisters
	Core *CoreRegisters
}

// ErrIncoherentCoreCount indicates nb_cores exceeds the profile's
// max_slices: a configuration error that must abort before any MSR is
// touched.
type ErrIncoherentCoreCount struct {
	NbCores, MaxSlices int
}

func (e *ErrIncoherentCoreCount) Error() string {
	return fmt.Sprintf("uarch: nb_cores (%d) exceeds max_slices (%d)", e.NbCores, e.MaxSlices)
}

// Lookup selects the static profile for (class, arch), adjusting nbCores
// for the 8-core-client Coffee Lake special case (one CBox is hidden, so
// nbCores is reduced to 7 and only those 7 boxes are probed; the 8th
// slice is neither measured nor computed).
//
// It returns the possibly-adjusted core count alongside the profile so
// callers can re-check the nb_cores <= max_slices invariant.
func Lookup(class Class, arch Microarch, nbCores int) (*Profile, int, error) {
	switch class {
	case ClassXeon:
		p, err := xeonProfile(arch)
		if err != nil {
			return nil, nbCores, err
		}

		return p, nbCores, nil
	case ClassCore:
		p, adjusted := coreProfile(arch, nbCores)

		return p, adjusted, nil
	default:
		return nil, nbCores, &ErrUnsupportedModel{}
	}
}

// CheckCoherent verifies the nb_cores <= max_slices invariant spec.md §3
// requires before any probing begins.
func CheckCoherent(p *Profile, nbCores int) error {
	if nbCores > p.MaxSlices {
		return &ErrIncoherentCoreCount{NbCores: nbCores, MaxSlices: p.MaxSlices}
	}

	return nil
}
