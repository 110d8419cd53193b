// Package gmail_tools provides MCP (Model Context Protocol) tools for Gmail.
//
// Available tools:
//   - gmail_list_messages: List messages matching a Gmail search query,
//     with subject, sender and date
//
// Example usage:
//
//	gmail_list_messages(query: "in:inbox is:unread", maxResults: 20)
package gmail_tools
