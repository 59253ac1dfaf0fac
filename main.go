//go:build !test

package main

import (
	"fmt"
	"os"

	"github.com/llcslice/reverse/cli"
)

func main() {
	if err := cli.Parse(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}
