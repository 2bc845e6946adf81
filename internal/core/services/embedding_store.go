package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
	"github.com/custodia-labs/codeassist/internal/core/ports/driving"
	"github.com/custodia-labs/codeassist/internal/logger"
)

// Ensure EmbeddingStoreService implements the interface.
var _ driving.EmbeddingIndex = (*EmbeddingStoreService)(nil)

const (
	// DefaultSearchLimit applies when a caller passes a non-positive limit.
	DefaultSearchLimit = 10

	// SimilarityFloor is the relevance cut-off for similar-code lookups.
	// Results must score strictly above it.
	SimilarityFloor = 0.7
)

// embeddingNamespace seeds deterministic record ids.
var embeddingNamespace = uuid.MustParse("b3a7c1d4-8e2f-5a90-b6c3-4d1e7f2a9c58")

// EmbeddingStoreService vectorises code spans and answers similarity queries
// by brute-force cosine comparison over every stored record.
type EmbeddingStoreService struct {
	repo     driven.EmbeddingRepository
	embedder driven.EmbeddingService
	now      func() time.Time
}

// NewEmbeddingStoreService creates an embedding store.
// embedder may be nil, which disables embedding and semantic search.
func NewEmbeddingStoreService(repo driven.EmbeddingRepository, embedder driven.EmbeddingService) *EmbeddingStoreService {
	return &EmbeddingStoreService{
		repo:     repo,
		embedder: embedder,
		now:      time.Now,
	}
}

// Enabled reports whether an embedding service is configured.
func (s *EmbeddingStoreService) Enabled() bool {
	return s.embedder != nil
}

// EmbedChunk vectorises a span of code and stores it.
// Re-embedding the same location replaces the previous record.
func (s *EmbeddingStoreService) EmbedChunk(ctx context.Context, in domain.ChunkInput) (*domain.EmbeddingRecord, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if in.FilePath == "" {
		return nil, fmt.Errorf("%w: empty path", domain.ErrInvalidInput)
	}
	if in.StartLine < 1 || in.EndLine < in.StartLine {
		return nil, fmt.Errorf("%w: invalid line range %d-%d", domain.ErrInvalidInput, in.StartLine, in.EndLine)
	}

	vector, err := s.embedder.Embed(ctx, in.Content)
	if err != nil {
		return nil, fmt.Errorf("embedding %s:%d-%d: %w", in.FilePath, in.StartLine, in.EndLine, err)
	}
	if dims := s.embedder.Dimensions(); dims > 0 && len(vector) != dims {
		return nil, fmt.Errorf("%w: model returned %d, expected %d", domain.ErrDimensionMismatch, len(vector), dims)
	}

	id := in.ID
	if id == "" {
		id = EmbeddingID(in.FilePath, in.StartLine, in.EndLine)
	}

	record := domain.EmbeddingRecord{
		ID:         id,
		FilePath:   in.FilePath,
		Content:    in.Content,
		Vector:     vector,
		Model:      s.embedder.ModelName(),
		Language:   in.Language,
		SymbolKind: in.SymbolKind,
		StartLine:  in.StartLine,
		EndLine:    in.EndLine,
		CreatedAt:  s.now(),
	}
	if err := s.repo.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("saving embedding: %w", err)
	}
	return &record, nil
}

// SemanticSearch embeds the query and ranks every stored record against it.
func (s *EmbeddingStoreService) SemanticSearch(ctx context.Context, query string, limit int) ([]domain.SimilarityResult, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if query == "" {
		return []domain.SimilarityResult{}, nil
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	records, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading embeddings: %w", err)
	}

	return rank(vector, s.embedder.ModelName(), records, "", -2, normaliseLimit(limit)), nil
}

// FindSimilarCode ranks records against the one stored at the exact location.
// A missing record is a normal state and yields an empty result, as does a
// store without an embedder.
func (s *EmbeddingStoreService) FindSimilarCode(
	ctx context.Context, path string, startLine, endLine, limit int,
) ([]domain.SimilarityResult, error) {
	if s.embedder == nil {
		return []domain.SimilarityResult{}, nil
	}
	target, err := s.repo.FindByLocation(ctx, path, startLine, endLine)
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.SimilarityResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding embedding: %w", err)
	}

	records, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading embeddings: %w", err)
	}

	model := s.embedder.ModelName()
	if target.Model != model {
		logger.Warn("embeddings: %s:%d-%d was embedded by %q, current model is %q; re-index the file",
			path, startLine, endLine, target.Model, model)
		return []domain.SimilarityResult{}, nil
	}
	return rank(target.Vector, model, records, target.ID, SimilarityFloor, normaliseLimit(limit)), nil
}

// EmbeddingsCurrent reports whether the path holds exactly chunks records,
// all produced by the configured model.
func (s *EmbeddingStoreService) EmbeddingsCurrent(ctx context.Context, path string, chunks int) (bool, error) {
	if s.embedder == nil {
		return false, domain.ErrEmbeddingUnavailable
	}
	records, err := s.repo.FindByFile(ctx, path)
	if err != nil {
		return false, fmt.Errorf("loading embeddings for %s: %w", path, err)
	}
	if len(records) != chunks {
		return false, nil
	}
	model := s.embedder.ModelName()
	for _, r := range records {
		if r.Model != model {
			return false, nil
		}
	}
	return true, nil
}

// RemoveEmbeddingsForFile drops every record for the path.
func (s *EmbeddingStoreService) RemoveEmbeddingsForFile(ctx context.Context, path string) error {
	if err := s.repo.DeleteByFile(ctx, path); err != nil {
		return fmt.Errorf("removing embeddings for %s: %w", path, err)
	}
	return nil
}

// rank scores records against vector, keeping those strictly above floor.
// Only records produced by model are comparable; the rest are left out
// until the indexer re-embeds their files.
func rank(
	vector []float32, model string, records []domain.EmbeddingRecord, excludeID string, floor float64, limit int,
) []domain.SimilarityResult {
	results := make([]domain.SimilarityResult, 0, len(records))
	stale := 0
	for _, r := range records {
		if r.ID == excludeID {
			continue
		}
		if r.Model != model {
			stale++
			continue
		}
		sim, err := CosineSimilarity(vector, r.Vector)
		if err != nil {
			stale++
			continue
		}
		if sim > floor {
			results = append(results, domain.SimilarityResult{Record: r, Similarity: sim})
		}
	}
	if stale > 0 {
		logger.Warn("embeddings: ignored %d records not comparable with %q vectors; re-index to refresh them", stale, model)
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if a.Record.FilePath != b.Record.FilePath {
			return a.Record.FilePath < b.Record.FilePath
		}
		return a.Record.StartLine < b.Record.StartLine
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func normaliseLimit(limit int) int {
	if limit <= 0 {
		return DefaultSearchLimit
	}
	return limit
}

// EmbeddingID derives the record id for a location.
func EmbeddingID(path string, startLine, endLine int) string {
	key := path + "\x00" + strconv.Itoa(startLine) + "\x00" + strconv.Itoa(endLine)
	return uuid.NewSHA1(embeddingNamespace, []byte(key)).String()
}
