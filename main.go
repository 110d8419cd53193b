package main

import (
	"os"

	"github.com/teemow/workspace-mcp/cmd"
)

// Set with -ldflags "-X main.version=..." by goreleaser.
var version = "dev"

func main() {
	cmd.SetVersion(version)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
