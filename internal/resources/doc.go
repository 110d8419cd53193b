// Package resources provides MCP resources for exposing user and session data.
// Resources are read-only data sources that MCP clients can fetch:
// user://profile describes the signed-in Google account and user://session
// reports the state of the session without touching the network.
package resources
