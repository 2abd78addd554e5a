package main

import (
	"fmt"
	"os"

	"github.com/goliatone/go-queryopts/internal/cli"
)

// version, commit, and date are set via ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := cli.Execute(cli.BuildInfo{Version: version, Commit: commit, Date: date}); err != nil {
		fmt.Fprintln(os.Stderr, "queryopts:", err)
		os.Exit(1)
	}
}
