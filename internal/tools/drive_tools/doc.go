// Package drive_tools exposes read-only Google Drive metadata as MCP tools:
// drive_list_files and drive_get_file. Both answer with sign-in
// instructions while no Google session is active.
package drive_tools
