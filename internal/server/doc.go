// Package server provides the MCP server context, health probes, the
// Prometheus metrics server and the streamable HTTP transport.
//
// # Key Components
//
// ServerContext owns the session.Manager for the process and hands out
// Google API clients bound to it. Clients are built per call, so a session
// established or revoked by the auth tools is picked up immediately.
//
// HTTPServer mounts the MCP streamable HTTP endpoint at /mcp together with
// /healthz, /readyz and /healthz/detailed. The detailed probe reports the
// session state but never any credential material.
//
// MetricsServer exposes /metrics on a dedicated port.
package server
