// Package driven declares what the core needs from infrastructure.
//
// Model backends arrive as ModelAdapter values built by a ModelAdapterFactory
// from the descriptors a ModelCatalog returns. The code index persists through
// FileIndexStore and EmbeddingRepository. Settings come from ConfigStore.
//
// EmbeddingService, PromptStore and LanguageDetector are optional: without
// them semantic search is off, built-in prompts are used, and languages are
// guessed from file extensions.
//
// This package imports domain and nothing else from internal/.
package driven
