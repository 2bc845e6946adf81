// Package file holds the adapters that keep state in plain files under the
// config directory (~/.codeassist unless overridden):
//
//   - config.toml through ConfigStore
//   - models.yaml through CatalogStore, which falls back to a built-in catalog
//   - prompts/*.txt through PromptStore, seeded from embedded defaults
package file
