package cmd

import (
	"github.com/spf13/cobra"
)

// version is stamped by SetVersion from the linker-set value in main.
var version = "dev"

func SetVersion(v string) {
	version = v
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "workspace-mcp",
		Short: "MCP server for one Google Workspace account",
		Long: `workspace-mcp serves Drive, Calendar and Gmail tools over the Model
Context Protocol for a single Google account.

Sign-in is handled by the server: a stored session resumes without
interaction, expired access tokens are refreshed, and a new session is
started in the browser or by pasting an authorization code.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.SetVersionTemplate("workspace-mcp version {{.Version}}\n")
	root.AddCommand(
		newServeCmd(),
		newAuthCmd(),
		newVersionCmd(),
		newGenerateDocsCmd(),
	)
	return root
}

// Execute runs the command line and returns the error of the failed
// command, which has already been printed.
func Execute() error {
	return newRootCmd().Execute()
}
