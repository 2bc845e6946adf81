package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

// fileIndexStore implements driven.FileIndexStore.
type fileIndexStore struct {
	store *Store
}

var _ driven.FileIndexStore = (*fileIndexStore)(nil)

// GetFile returns the entry and its symbols in line order.
func (s *fileIndexStore) GetFile(ctx context.Context, path string) (*domain.FileIndexEntry, error) {
	var entry domain.FileIndexEntry
	err := s.store.db.QueryRowContext(ctx, `
		SELECT path, content, hash, language, indexed_at FROM files WHERE path = ?
	`, path).Scan(&entry.Path, &entry.Content, &entry.Hash, &entry.Language, &entry.IndexedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting file %s: %w", path, err)
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+symbolColumns+` FROM symbols WHERE file_path = ? ORDER BY ordinal
	`, path)
	if err != nil {
		return nil, fmt.Errorf("getting symbols for %s: %w", path, err)
	}
	defer rows.Close()

	entry.Symbols, err = scanSymbols(rows)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ReplaceFile upserts the entry and swaps its symbols in one transaction.
func (s *fileIndexStore) ReplaceFile(ctx context.Context, entry domain.FileIndexEntry) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO files (path, content, hash, language, indexed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			content = excluded.content,
			hash = excluded.hash,
			language = excluded.language,
			indexed_at = excluded.indexed_at
	`, entry.Path, entry.Content, entry.Hash, entry.Language, entry.IndexedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving file %s: %w", entry.Path, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM symbols WHERE file_path = ?`, entry.Path); err != nil {
		return fmt.Errorf("clearing symbols for %s: %w", entry.Path, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO symbols
			(id, file_path, name, kind, start_line, end_line, signature, language, ordinal)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing symbol insert: %w", err)
	}
	defer stmt.Close()

	for i, sym := range entry.Symbols {
		if _, err := stmt.ExecContext(ctx, sym.ID, entry.Path, sym.Name, string(sym.Kind),
			sym.StartLine, sym.EndLine, sym.Signature, sym.Language, i); err != nil {
			return fmt.Errorf("saving symbol %s: %w", sym.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s: %w", entry.Path, err)
	}
	return nil
}

// DeleteFile removes the entry; symbols follow by cascade.
func (s *fileIndexStore) DeleteFile(ctx context.Context, path string) error {
	if _, err := s.store.db.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path); err != nil {
		return fmt.Errorf("deleting file %s: %w", path, err)
	}
	return nil
}

// ListFiles returns all indexed paths in lexical order.
func (s *fileIndexStore) ListFiles(ctx context.Context) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, `SELECT path FROM files ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	defer rows.Close()

	paths := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// FindSymbols matches the query against name and signature, case-insensitively.
// SQLite's lower() folds ASCII only, so matching happens in Go with the same
// rule as the in-memory store.
func (s *fileIndexStore) FindSymbols(ctx context.Context, query string) ([]domain.Symbol, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+symbolColumns+` FROM symbols ORDER BY file_path, ordinal
	`)
	if err != nil {
		return nil, fmt.Errorf("finding symbols: %w", err)
	}
	defer rows.Close()

	all, err := scanSymbols(rows)
	if err != nil {
		return nil, err
	}
	found := all[:0]
	for _, sym := range all {
		if sym.Matches(query) {
			found = append(found, sym)
		}
	}
	return found, nil
}

const symbolColumns = "id, file_path, name, kind, start_line, end_line, signature, language"

func scanSymbols(rows *sql.Rows) ([]domain.Symbol, error) {
	symbols := []domain.Symbol{}
	for rows.Next() {
		var sym domain.Symbol
		var kind string
		if err := rows.Scan(&sym.ID, &sym.FilePath, &sym.Name, &kind,
			&sym.StartLine, &sym.EndLine, &sym.Signature, &sym.Language); err != nil {
			return nil, fmt.Errorf("scanning symbol: %w", err)
		}
		sym.Kind = domain.SymbolKind(kind)
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}
