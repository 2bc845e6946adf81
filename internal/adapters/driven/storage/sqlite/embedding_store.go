package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

// embeddingRepository implements driven.EmbeddingRepository.
// Vectors are stored as little-endian float32 blobs.
type embeddingRepository struct {
	store *Store
}

var _ driven.EmbeddingRepository = (*embeddingRepository)(nil)

const embeddingColumns = `id, file_path, content, vector, model, language, symbol_kind, start_line, end_line, created_at`

// Save inserts or replaces a record by ID.
func (r *embeddingRepository) Save(ctx context.Context, record domain.EmbeddingRecord) error {
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO embeddings
			(id, file_path, content, vector, dimensions, model, language, symbol_kind, start_line, end_line, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			file_path = excluded.file_path,
			content = excluded.content,
			vector = excluded.vector,
			dimensions = excluded.dimensions,
			model = excluded.model,
			language = excluded.language,
			symbol_kind = excluded.symbol_kind,
			start_line = excluded.start_line,
			end_line = excluded.end_line,
			created_at = excluded.created_at
	`, record.ID, record.FilePath, record.Content, encodeVector(record.Vector), len(record.Vector),
		record.Model, record.Language, string(record.SymbolKind), record.StartLine, record.EndLine, record.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving embedding %s: %w", record.ID, err)
	}
	return nil
}

// FindByLocation returns the record spanning exactly the given lines.
func (r *embeddingRepository) FindByLocation(
	ctx context.Context, path string, startLine, endLine int,
) (*domain.EmbeddingRecord, error) {
	row := r.store.db.QueryRowContext(ctx, `
		SELECT `+embeddingColumns+` FROM embeddings
		WHERE file_path = ? AND start_line = ? AND end_line = ?
		ORDER BY id LIMIT 1
	`, path, startLine, endLine)

	rec, err := scanEmbedding(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding embedding at %s:%d-%d: %w", path, startLine, endLine, err)
	}
	return rec, nil
}

// FindByFile returns the records for a path ordered by start line and id.
func (r *embeddingRepository) FindByFile(ctx context.Context, path string) ([]domain.EmbeddingRecord, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT `+embeddingColumns+` FROM embeddings WHERE file_path = ? ORDER BY start_line, id
	`, path)
	if err != nil {
		return nil, fmt.Errorf("listing embeddings for %s: %w", path, err)
	}
	return collectEmbeddings(rows)
}

// All returns every record ordered by path, start line and id.
func (r *embeddingRepository) All(ctx context.Context) ([]domain.EmbeddingRecord, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT `+embeddingColumns+` FROM embeddings ORDER BY file_path, start_line, id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing embeddings: %w", err)
	}
	return collectEmbeddings(rows)
}

func collectEmbeddings(rows *sql.Rows) ([]domain.EmbeddingRecord, error) {
	defer rows.Close()

	records := []domain.EmbeddingRecord{}
	for rows.Next() {
		rec, err := scanEmbedding(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// DeleteByFile removes all records for a path.
func (r *embeddingRepository) DeleteByFile(ctx context.Context, path string) error {
	if _, err := r.store.db.ExecContext(ctx, `DELETE FROM embeddings WHERE file_path = ?`, path); err != nil {
		return fmt.Errorf("deleting embeddings for %s: %w", path, err)
	}
	return nil
}

// Count returns the number of stored records.
func (r *embeddingRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting embeddings: %w", err)
	}
	return n, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEmbedding(row scanner) (*domain.EmbeddingRecord, error) {
	var rec domain.EmbeddingRecord
	var vector []byte
	var kind string
	var createdAt sql.NullTime
	if err := row.Scan(&rec.ID, &rec.FilePath, &rec.Content, &vector, &rec.Model, &rec.Language,
		&kind, &rec.StartLine, &rec.EndLine, &createdAt); err != nil {
		return nil, err
	}
	rec.Vector = decodeVector(vector)
	rec.SymbolKind = domain.SymbolKind(kind)
	if createdAt.Valid {
		rec.CreatedAt = createdAt.Time
	}
	return &rec, nil
}
