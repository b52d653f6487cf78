package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lookout/internal/apperr"
)

// Chunk is a bounded segment of crawled text tagged with the orchestration
// run that produced it. QueryID isolation is the only cross-request
// correctness requirement on the shared index: retrieval for one run must
// never see another run's chunks.
type Chunk struct {
	Text      string
	SourceURL string
	Title     string
	QueryID   string
	CreatedAt time.Time
}

// Point is the persisted form of a Chunk. Points are immutable after insert;
// the only mutations are insert and delete.
type Point struct {
	Chunk
	Vector []float32
}

// RetrievedChunk pairs a chunk with its normalized similarity to the query
// vector, in [0, 1].
type RetrievedChunk struct {
	Chunk
	Score float32
}

// Embedder turns text into a fixed-dimension vector. Satisfied by the
// embedding worker pool so callers never run model inference on the request
// path directly.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store is the vector store backend.
type Store interface {
	UpsertPoints(ctx context.Context, points []Point) error
	Search(ctx context.Context, vector []float32, queryID string, limit int) ([]RetrievedChunk, error)
	Count(ctx context.Context) (int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// Service owns the index lifecycle: it embeds chunk text through the worker
// pool and delegates storage to the vector store. One handle is constructed
// at process start and shared by all request-handling units.
type Service struct {
	embedder Embedder
	store    Store
}

func NewService(e Embedder, s Store) *Service {
	return &Service{embedder: e, store: s}
}

// Upsert embeds and stores a batch of chunks. A chunk whose embedding fails
// is skipped and logged; the failure never spreads to its batch siblings.
// A store failure is fatal for the batch.
func (s *Service) Upsert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	points := make([]Point, 0, len(chunks))
	for _, c := range chunks {
		vec, err := s.embedder.Embed(ctx, c.Text)
		if err != nil {
			slog.WarnContext(ctx, "embedding failed, skipping chunk", "url", c.SourceURL, "error", err)
			continue
		}
		points = append(points, Point{Chunk: c, Vector: vec})
	}

	if len(points) == 0 {
		return nil
	}

	if err := s.store.UpsertPoints(ctx, points); err != nil {
		return apperr.New(apperr.KindIndexUnavailable, fmt.Errorf("upsert %d points: %w", len(points), err))
	}

	slog.InfoContext(ctx, "indexed chunks", "count", len(points), "query_id", chunks[0].QueryID)
	return nil
}

// Search embeds the query text and returns the top-k most similar chunks
// restricted to the given query id, ordered by descending similarity.
func (s *Service) Search(ctx context.Context, query, queryID string, k int) ([]RetrievedChunk, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, apperr.New(apperr.KindIndexUnavailable, fmt.Errorf("embed query: %w", err))
	}

	hits, err := s.store.Search(ctx, vec, queryID, k)
	if err != nil {
		return nil, apperr.New(apperr.KindIndexUnavailable, err)
	}
	return hits, nil
}

// Count reports total live points across all query ids.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, apperr.New(apperr.KindIndexUnavailable, err)
	}
	return n, nil
}

// EvictOlderThan deletes every point created before now-maxAge and returns
// the number deleted. Safe to run concurrently with upserts and searches:
// deletion is atomic per point.
func (s *Service) EvictOlderThan(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	deleted, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, apperr.New(apperr.KindIndexUnavailable, err)
	}

	slog.InfoContext(ctx, "evicted stale points", "deleted", deleted, "cutoff", cutoff)
	return deleted, nil
}
