// Package cmd implements the command-line interface for workspace-mcp.
//
// This package provides the following commands:
//   - serve: Start the MCP server over stdio or streamable HTTP
//   - auth: Sign in to Google, inspect or end the stored session
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
package cmd
