package mcp

import (
	"github.com/custodia-labs/codeassist/internal/core/ports/driving"
)

// Ports holds the services behind the MCP tools. Symbols and Embeddings
// may be nil, in which case their tools and resources are not offered.
type Ports struct {
	Dispatcher driving.Dispatcher
	Symbols    driving.SymbolIndex
	Embeddings driving.EmbeddingIndex
}

// Validate reports ErrMissingDispatcher when no dispatcher is set.
func (p *Ports) Validate() error {
	if p == nil || p.Dispatcher == nil {
		return ErrMissingDispatcher
	}
	return nil
}
