package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/faucetdb/driftguard/cmd/driftguard/cli"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Exit codes: 1 when a check or diff fails, 2 when driftguard itself could
// not run. CI pipelines tell the two apart.
const (
	exitCheckFailed = 1
	exitError       = 2
)

func main() {
	err := cli.Execute(version, commit, date)
	switch {
	case err == nil:
	case errors.Is(err, cli.ErrCheckFailed):
		os.Exit(exitCheckFailed)
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitError)
	}
}
