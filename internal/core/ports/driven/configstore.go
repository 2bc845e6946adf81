package driven

// ConfigStore is a flat key/value settings store with dotted keys such as
// "providers.openai.api_key". Typed getters return the zero value when the
// key is missing or holds another type; GetInt and GetFloat convert between
// numeric types.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetFloat(key string) float64
	GetBool(key string) bool
	GetStringSlice(key string) []string

	// Set and Delete persist before returning. Deleting a missing key is a no-op.
	Set(key string, value any) error
	Delete(key string) error

	// Save writes the current values; Load replaces them from storage.
	Save() error
	Load() error

	// Path identifies the backing file, for display.
	Path() string
}
