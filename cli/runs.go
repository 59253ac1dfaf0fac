package cli

import (
	"fmt"
	"os"

	"github.com/felixge/fgprof"
	"github.com/pkg/profile"
)

// Run implements the scan subcommand: probe a handful of addresses and
// print each one's slice without attempting to recover the hash.
func (c *ScanCmd) Run() error {
	stop, err := c.startProfiling()
	if err != nil {
		return err
	}
	defer stop()

	s, err := newSession(c.Clflush, c.Verbose)
	if err != nil {
		return err
	}
	defer s.Close()

	if c.Verbose {
		fmt.Fprintln(os.Stdout, "Scanning a few addresses...")
	}

	return runScan(s)
}

// Run implements the reverse subcommand: recover the LLC
// slice-selection hash's XOR-linear support sets.
func (c *ReverseCmd) Run() error {
	stop, err := c.startProfiling()
	if err != nil {
		return err
	}
	defer stop()

	s, err := newSession(c.Clflush, c.Verbose)
	if err != nil {
		return err
	}
	defer s.Close()

	if c.Verbose && c.Clflush {
		fmt.Fprintln(os.Stdout, "Using clflush method")
	}

	return runReverse(s)
}

// startProfiling wires the ambient profiling flags around a run,
// giving pkg/profile and fgprof (previously indirect-only teacher
// dependencies) a real call site: the probing loops below run for
// minutes and are exactly what CPU/wall-clock profiling is for.
func (c *CommonFlags) startProfiling() (func(), error) {
	stops := make([]func(), 0, 2)

	if c.CPUProfile != "" {
		p := profile.Start(profile.CPUProfile, profile.ProfilePath(c.CPUProfile), profile.Quiet)
		stops = append(stops, p.Stop)
	}

	if c.FgProf != "" {
		f, err := os.Create(c.FgProf)
		if err != nil {
			return nil, fmt.Errorf("cli: creating fgprof output %s: %w", c.FgProf, err)
		}

		stopFgprof := fgprof.Start(f, fgprof.FormatFolded)

		stops = append(stops, func() {
			stopFgprof() //nolint:errcheck // best-effort flush on exit
			f.Close()
		})
	}

	return func() {
		for _, stop := range stops {
			stop()
		}
	}, nil
}
