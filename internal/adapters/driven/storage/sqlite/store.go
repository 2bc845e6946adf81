package sqlite

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/custodia-labs/codeassist/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

// DatabaseFile is the database name inside the data directory.
const DatabaseFile = "index.db"

// pragmas are applied by the driver to every pooled connection.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"foreign_keys(1)",
}

// Store owns the index database. The file index and the embedding
// repository are views over the same pool.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens dataDir/index.db, creating it and applying pending
// migrations as needed. An empty dataDir means ~/.codeassist/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".codeassist", "data")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	path := filepath.Join(dataDir, DatabaseFile)
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pending, err := loadMigrations(migrations.FS)
	if err == nil {
		err = migrate(db, pending)
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

func dsn(path string) string {
	q := url.Values{"_pragma": pragmas}
	return path + "?" + q.Encode()
}

func (s *Store) Close() error { return s.db.Close() }

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// FileIndexStore returns the file and symbol tables as a driven port.
func (s *Store) FileIndexStore() driven.FileIndexStore {
	return &fileIndexStore{store: s}
}

// EmbeddingRepository returns the embedding table as a driven port.
func (s *Store) EmbeddingRepository() driven.EmbeddingRepository {
	return &embeddingRepository{store: s}
}

// SchemaVersion returns the highest applied migration, or 0.
func (s *Store) SchemaVersion() (int, error) {
	return schemaVersion(s.db)
}
