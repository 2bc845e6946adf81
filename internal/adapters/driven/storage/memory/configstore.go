package memory

import (
	"sync"

	"github.com/custodia-labs/codeassist/internal/adapters/driven/config/values"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore is a ConfigStore that never touches disk. Save and Load are
// no-ops. It backs tests and ephemeral sessions.
type ConfigStore struct {
	mu   sync.RWMutex
	vals values.Map
}

func NewConfigStore() *ConfigStore {
	return &ConfigStore{vals: make(values.Map)}
}

func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vals[key]
	return v, ok
}

func (s *ConfigStore) GetString(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vals.String(key)
}

func (s *ConfigStore) GetInt(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vals.Int(key)
}

func (s *ConfigStore) GetFloat(key string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vals.Float(key)
}

func (s *ConfigStore) GetBool(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vals.Bool(key)
}

func (s *ConfigStore) GetStringSlice(key string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vals.StringSlice(key)
}

func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	s.vals[key] = value
	s.mu.Unlock()
	return nil
}

func (s *ConfigStore) Delete(key string) error {
	s.mu.Lock()
	delete(s.vals, key)
	s.mu.Unlock()
	return nil
}

func (s *ConfigStore) Save() error  { return nil }
func (s *ConfigStore) Load() error  { return nil }
func (s *ConfigStore) Path() string { return ":memory:" }
