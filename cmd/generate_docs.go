package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/workspace-mcp/internal/server"
)

// toolCategories maps tool name prefixes to section titles, in the order the
// sections are written.
var toolCategories = []struct {
	prefix string
	title  string
}{
	{"google", "Google Auth Tools"},
	{"drive", "Google Drive Tools"},
	{"calendar", "Google Calendar Tools"},
	{"gmail", "Gmail Tools"},
}

const otherCategory = "Other"

func newGenerateDocsCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Print a markdown reference of every MCP tool the server registers,
built from the live tool definitions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tools, err := registeredTools()
			if err != nil {
				return err
			}
			markdown := generateToolsMarkdown(tools)

			if outputFile == "" {
				_, err := io.WriteString(cmd.OutOrStdout(), markdown)
				return err
			}
			if err := os.WriteFile(outputFile, []byte(markdown), 0o644); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Documentation written to %s\n", outputFile)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

// registeredTools registers everything on a throwaway server and returns the
// tool definitions. Registration never reads the credential files.
func registeredTools() ([]mcp.Tool, error) {
	manager, err := newSessionManager(sessionOptions{noBrowser: true}, slog.Default(), nil, nil)
	if err != nil {
		return nil, err
	}
	sc, err := server.NewServerContext(context.Background(), manager)
	if err != nil {
		return nil, fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() { _ = sc.Shutdown() }()

	mcpSrv := mcpserver.NewMCPServer("workspace-mcp", version, mcpserver.WithToolCapabilities(true))
	if err := registerAllTools(mcpSrv, sc); err != nil {
		return nil, err
	}

	tools := make([]mcp.Tool, 0, len(mcpSrv.ListTools()))
	for _, st := range mcpSrv.ListTools() {
		tools = append(tools, st.Tool)
	}
	return tools, nil
}

func toolCategory(name string) string {
	prefix, _, found := strings.Cut(name, "_")
	if !found {
		return otherCategory
	}
	for _, c := range toolCategories {
		if c.prefix == prefix {
			return c.title
		}
	}
	return otherCategory
}

func generateToolsMarkdown(tools []mcp.Tool) string {
	byCategory := map[string][]mcp.Tool{}
	for _, tool := range tools {
		c := toolCategory(tool.Name)
		byCategory[c] = append(byCategory[c], tool)
	}

	var sections []string
	for _, c := range toolCategories {
		if len(byCategory[c.title]) > 0 {
			sections = append(sections, c.title)
		}
	}
	if len(byCategory[otherCategory]) > 0 {
		sections = append(sections, otherCategory)
	}

	var sb strings.Builder
	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("Generated from the tool definitions of `workspace-mcp serve`.\n\n")

	sb.WriteString("## Table of Contents\n\n")
	for _, title := range sections {
		fmt.Fprintf(&sb, "- [%s](#%s)\n", title, strings.ToLower(strings.ReplaceAll(title, " ", "-")))
	}

	sb.WriteString("\n## Authentication\n\n")
	sb.WriteString("The server acts for one Google account. Every tool outside the Google Auth Tools " +
		"resumes a stored session silently and otherwise answers with a request to run " +
		"`google_authenticate`. No Google API is called before sign-in.\n\n")

	for _, title := range sections {
		list := byCategory[title]
		sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })

		fmt.Fprintf(&sb, "## %s\n\n", title)
		for _, tool := range list {
			sb.WriteString(toolMarkdown(tool))
		}
	}
	return sb.String()
}

func toolMarkdown(tool mcp.Tool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "### %s\n\n", tool.Name)
	if tool.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", tool.Description)
	}
	if hint := tool.Annotations.ReadOnlyHint; hint != nil && *hint {
		sb.WriteString("*Read-only.*\n\n")
	}

	if len(tool.InputSchema.Properties) == 0 {
		return sb.String()
	}

	names := make([]string, 0, len(tool.InputSchema.Properties))
	for name := range tool.InputSchema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Argument", "Type", "Required", "Description"})
	for _, name := range names {
		prop, _ := tool.InputSchema.Properties[name].(map[string]any)
		typ, _ := prop["type"].(string)
		if typ == "" {
			typ = "any"
		}
		desc, _ := prop["description"].(string)
		required := "no"
		if slices.Contains(tool.InputSchema.Required, name) {
			required = "yes"
		}
		t.AppendRow(table.Row{"`" + name + "`", typ, required, desc})
	}
	sb.WriteString("**Arguments:**\n\n")
	sb.WriteString(t.RenderMarkdown())
	sb.WriteString("\n\n")
	return sb.String()
}
