package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/codeassist/internal/adapters/driven/config/values"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigFile is the configuration file name inside the config directory.
const ConfigFile = "config.toml"

// ConfigStore persists settings to config.toml. Keys are flat in memory and
// written as nested tables: "providers.openai.api_key" lands in
// [providers.openai]. Every Set and Delete rewrites the file.
type ConfigStore struct {
	mu   sync.RWMutex
	path string
	vals values.Map
}

// NewConfigStore opens configDir/config.toml, or ~/.codeassist/config.toml
// when configDir is empty. A missing file is an empty configuration.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &ConfigStore{path: filepath.Join(configDir, ConfigFile)}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// DefaultDir returns ~/.codeassist.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".codeassist"), nil
}

func (s *ConfigStore) read() values.Map {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vals
}

func (s *ConfigStore) Get(key string) (any, bool) {
	v, ok := s.read()[key]
	return v, ok
}

func (s *ConfigStore) GetString(key string) string        { return s.read().String(key) }
func (s *ConfigStore) GetInt(key string) int              { return s.read().Int(key) }
func (s *ConfigStore) GetFloat(key string) float64        { return s.read().Float(key) }
func (s *ConfigStore) GetBool(key string) bool            { return s.read().Bool(key) }
func (s *ConfigStore) GetStringSlice(key string) []string { return s.read().StringSlice(key) }

// Set stores value under key and writes the file.
func (s *ConfigStore) Set(key string, value any) error {
	return s.update(func(m values.Map) bool {
		m[key] = value
		return true
	})
}

// Delete removes key. The file is only rewritten when the key existed.
func (s *ConfigStore) Delete(key string) error {
	return s.update(func(m values.Map) bool {
		if _, ok := m[key]; !ok {
			return false
		}
		delete(m, key)
		return true
	})
}

// update applies fn to a copy of the values and publishes the copy once it
// is on disk, so readers never see a value the file does not hold.
func (s *ConfigStore) update(fn func(values.Map) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.vals.Clone()
	if !fn(next) {
		return nil
	}
	if err := s.write(next); err != nil {
		return err
	}
	s.vals = next
	return nil
}

// Save writes the current values to disk.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(s.vals)
}

func (s *ConfigStore) write(m values.Map) error {
	data, err := toml.Marshal(m.Nest())
	if err != nil {
		return fmt.Errorf("encode %s: %w", ConfigFile, err)
	}
	return os.WriteFile(s.path, data, 0600)
}

// Load replaces the in-memory values with the file's contents.
func (s *ConfigStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	var nested map[string]any
	if len(data) > 0 {
		if err := toml.Unmarshal(data, &nested); err != nil {
			return fmt.Errorf("parse %s: %w", s.path, err)
		}
	}

	s.mu.Lock()
	s.vals = values.Flatten(nested)
	s.mu.Unlock()
	return nil
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.path
}
