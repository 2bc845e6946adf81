// Package mcp provides an MCP (Model Context Protocol) server adapter for codeassist.
// It exposes model dispatch and the code indexes to MCP-compatible assistants.
package mcp

import "errors"

// ErrMissingDispatcher is returned when the dispatcher is not provided.
var ErrMissingDispatcher = errors.New("mcp: dispatcher is required")

// errIndexUnavailable is returned by index tools when no index is configured.
var errIndexUnavailable = errors.New("mcp: code index is not configured")
