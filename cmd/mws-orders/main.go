package main

import (
	"os"

	"github.com/Sternrassler/mws-orders-client/internal/cli"
)

// Set via ldflags at build time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.SetVersionInfo(version, commit, buildDate)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
