// Package main provides the entry point for the gantry CLI.
package main

import (
	"context"
	"os"

	"github.com/mrz1836/gantry/internal/cli"
)

// Build metadata, overridden at release time via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx := context.Background()
	err := cli.Execute(ctx, cli.BuildInfo{Version: version, Commit: commit, Date: date})
	if err != nil {
		os.Exit(cli.ExitCodeForError(err))
	}
}
