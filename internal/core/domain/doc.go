// Package domain defines the core business entities for codeassist.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - ModelDescriptor: Static description of a registered AI model
//   - DispatchRequest: A task routed to exactly one model
//   - Transaction: An entry in the bounded AI interaction log
//   - FileIndexEntry and Symbol: The per-file symbol index
//   - EmbeddingRecord: A vectorised chunk of source code
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
