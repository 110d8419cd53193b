// Package calendar_tools provides MCP (Model Context Protocol) tools for Google Calendar.
//
// Available tools:
//   - calendar_list_events: List or search events within a time range
//   - calendar_list_calendars: List the calendars the user can access
package calendar_tools
