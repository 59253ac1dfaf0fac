package cli

import (
	"errors"

	"github.com/llcslice/reverse/msr"
	"github.com/llcslice/reverse/pagemap"
	"github.com/llcslice/reverse/pairgen"
	"github.com/llcslice/reverse/platform"
	"github.com/llcslice/reverse/uarch"
)

// ExitCode maps an error returned from a run to the process exit code
// spec.md §6 assigns it: 0 success, 1 configuration/allocation failure,
// 2-4 MSR errors (mirroring rdmsr_on_cpu's own exit(2)/exit(3)/exit(4)),
// 127 any other I/O failure.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, msr.ErrNoSuchCPU):
		return 2
	case errors.Is(err, msr.ErrMSRUnsupported):
		return 3
	case errors.Is(err, msr.ErrMSRReadFailed), errors.Is(err, msr.ErrMSRWriteFailed):
		return 4
	case errors.Is(err, platform.ErrNotIntel),
		errors.Is(err, pairgen.ErrInsufficientHugePages),
		errors.Is(err, pagemap.ErrPageNotPresent),
		errors.Is(err, pagemap.ErrPageSwapped),
		isConfigError(err):
		return 1
	default:
		return 127
	}
}

func isConfigError(err error) bool {
	var unsupported *uarch.ErrUnsupportedModel

	var incoherent *uarch.ErrIncoherentCoreCount

	return errors.As(err, &unsupported) || errors.As(err, &incoherent)
}
