// Package services is the core of codeassist: the model registry and
// dispatcher with its selection rules and transaction log, and the symbol,
// embedding and indexing services behind the code index.
//
// Services depend only on domain types and the driven ports. Adapters are
// injected by internal/app.
package services
