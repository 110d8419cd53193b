// Package common provides shared utilities for MCP tool implementations:
// the instrumentation wrapper every tool is registered through and the
// session gate used by tools that call Google APIs.
package common
