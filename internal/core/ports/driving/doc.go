// Package driving lists what the outside world may ask of codeassist. The
// CLI, the HTTP API and the MCP server program against these interfaces;
// internal/core/services provides the implementations.
package driving
