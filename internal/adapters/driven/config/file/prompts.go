package file

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

var _ driven.PromptStore = (*PromptStore)(nil)

// builtin holds the default prompt files and the README copied next to them.
//
//go:embed prompts
var builtin embed.FS

const promptExt = ".txt"

// PromptStore serves system prompts from <dir>/<name>.txt. The directory is
// seeded from the built-in copies on the first Load; files the user already
// has are left alone. Missing, empty or unreadable files fall back to the
// built-in text.
type PromptStore struct {
	dir string

	mu      sync.Mutex
	seeded  bool
	seedErr error
	cache   map[string]string
}

// NewPromptStore returns a store rooted at dir, or ~/.codeassist/prompts
// when dir is empty. Nothing touches the disk until Load.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		base, err := DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(base, "prompts")
	}
	return &PromptStore{dir: dir, cache: make(map[string]string)}, nil
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

// Load returns the prompt named name.
func (s *PromptStore) Load(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.seeded {
		s.seedErr = s.seed()
		s.seeded = true
	}

	if text, ok := s.cache[name]; ok {
		return text, nil
	}

	fallback, known := builtinPrompt(name)
	if s.seedErr != nil {
		if known {
			return fallback, nil
		}
		return "", fmt.Errorf("prompt %q: directory unavailable: %w", name, s.seedErr)
	}

	text, err := s.read(name)
	switch {
	case err == nil && text != "":
	case known:
		text = fallback
	case err == nil:
		return "", fmt.Errorf("prompt %q is empty", name)
	default:
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	s.cache[name] = text
	return text, nil
}

// Reload drops cached prompts so the next Load reads the files again.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

func (s *PromptStore) read(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name+promptExt))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// seed copies every built-in file that does not exist yet.
func (s *PromptStore) seed() error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return err
	}

	entries, err := fs.ReadDir(builtin, "prompts")
	if err != nil {
		return err
	}
	for _, e := range entries {
		dst := filepath.Join(s.dir, e.Name())
		if _, err := os.Stat(dst); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		data, err := builtin.ReadFile("prompts/" + e.Name())
		if err != nil {
			return err
		}
		if err := os.WriteFile(dst, data, 0600); err != nil {
			return fmt.Errorf("write %s: %w", e.Name(), err)
		}
	}
	return nil
}

func builtinPrompt(name string) (string, bool) {
	data, err := builtin.ReadFile("prompts/" + name + promptExt)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}
