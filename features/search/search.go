package search

import (
	"context"

	"lookout/internal/adapter/searx"
	"lookout/internal/crawl"
	"lookout/internal/index"
)

// Answer is the summarized response for one orchestration run. Sources only
// ever contains URLs that were present in the retrieved context; the model's
// own claims are verified before they land here.
type Answer struct {
	QueryID  string   `json:"query_id"`
	Summary  string   `json:"summary"`
	Sources  []string `json:"sources"`
	Degraded bool     `json:"degraded"`
}

// Snippet is one retrieved chunk in the structured-context response shape.
type Snippet struct {
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	Score   float32 `json:"score"`
}

// ContextResult is the structured-context response: the same pipeline as
// Search up through retrieval, without summarization.
type ContextResult struct {
	QueryID  string    `json:"query_id"`
	Snippets []Snippet `json:"snippets"`
	Degraded bool      `json:"degraded"`
}

// RunRecord is the persisted trace of one orchestration run.
type RunRecord struct {
	QueryID     string
	Query       string
	SourceCount int
	ChunkCount  int
	Degraded    bool
	LatencyMs   int64
}

type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]searx.Result, error)
}

type Crawler interface {
	CrawlAll(ctx context.Context, urls []string) []crawl.Document
}

type Index interface {
	Upsert(ctx context.Context, chunks []index.Chunk) error
	Search(ctx context.Context, query, queryID string, k int) ([]index.RetrievedChunk, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Publisher is satisfied by *nsq.Producer.
type Publisher interface {
	Publish(topic string, body []byte) error
}

type Recorder interface {
	Save(ctx context.Context, rec RunRecord) error
}
