package cli_test

import (
	"errors"
	"testing"

	"github.com/llcslice/reverse/cli"
	"github.com/llcslice/reverse/msr"
	"github.com/llcslice/reverse/pairgen"
	"github.com/llcslice/reverse/platform"
	"github.com/llcslice/reverse/uarch"
)

func TestExitCode(t *testing.T) {
	t.Parallel()

	for _, test := range []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"no such cpu", msr.ErrNoSuchCPU, 2},
		{"unsupported msr", msr.ErrMSRUnsupported, 3},
		{"read failed", msr.ErrMSRReadFailed, 4},
		{"write failed", msr.ErrMSRWriteFailed, 4},
		{"not intel", platform.ErrNotIntel, 1},
		{"insufficient huge pages", pairgen.ErrInsufficientHugePages, 1},
		{"unsupported model", &uarch.ErrUnsupportedModel{DisplayModel: 1}, 1},
		{"incoherent cores", &uarch.ErrIncoherentCoreCount{NbCores: 9, MaxSlices: 4}, 1},
		{"other", errors.New("boom"), 127},
	} {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			if got := cli.ExitCode(test.err); got != test.want {
				t.Errorf("ExitCode(%v) = %d, want %d", test.err, got, test.want)
			}
		})
	}
}
