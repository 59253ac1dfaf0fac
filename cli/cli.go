// Package cli is the kong-based command-line front end: it parses
// flags, wires the profiling ambient tooling around a run, and maps
// the typed errors the rest of the tool produces to the process exit
// codes operators script against.
package cli

import (
	"github.com/alecthomas/kong"
)

// CommonFlags are the flags both subcommands accept, matching
// spec.md's `reverse [--help|-h] [--clflush|-f] [--scan|-s] [--verbose|-v]`
// surface (folded here into one flag set shared by the scan and reverse
// commands rather than a single --scan switch, so each mode gets its
// own --help text).
type CommonFlags struct {
	Verbose bool `help:"Print progress and per-pair diagnostics." short:"v"`
	Clflush bool `help:"Use the clflush timing side channel instead of performance counters." short:"f"`

	CPUProfile string `help:"Write a pprof CPU profile to this directory." placeholder:"DIR"`
	FgProf     string `help:"Write an fgprof wall-clock profile to this file." placeholder:"FILE"`
}

// ScanCmd emits slice labels for a handful of addresses without
// attempting to recover the hash function.
type ScanCmd struct {
	CommonFlags
}

// ReverseCmd recovers the LLC slice-selection hash's XOR-linear
// support sets.
type ReverseCmd struct {
	CommonFlags
}

// CLI is the full command tree kong parses argv into.
type CLI struct {
	Scan    ScanCmd    `cmd:"" help:"Probe a handful of addresses and print their slice."`
	Reverse ReverseCmd `cmd:"" default:"1" help:"Reverse-engineer the LLC slice-selection hash."`
}

// Parse parses os.Args (via kong.Parse) and runs the selected
// subcommand.
func Parse() error {
	var cli CLI

	ctx := kong.Parse(&cli,
		kong.Name("reverse"),
		kong.Description("Recovers Intel's undocumented LLC slice-selection hash."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	return ctx.Run()
}
