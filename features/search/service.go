package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"lookout/internal/apperr"
	"lookout/internal/config"
	"lookout/internal/index"
	"lookout/internal/middleware"
	"lookout/internal/text"
	"lookout/internal/worker"
)

type Options struct {
	SearchResults    int
	CrawlTopN        int
	MinDocumentChars int
	MinChunkChars    int
	RetrievalTopK    int
	MaxCitedSources  int
}

// Service runs the end-to-end pipeline: search, crawl, chunk and index,
// retrieve, summarize with verified citations. One handle is built at process
// start; concurrent requests share it and are isolated from each other by
// the per-run query id tagged onto every chunk.
type Service struct {
	searcher  Searcher
	crawler   Crawler
	index     Index
	generator Generator
	publisher Publisher
	recorder  Recorder
	chunker   *text.Chunker
	queryLog  *QueryLogger
	opts      Options
}

func NewService(
	searcher Searcher,
	crawler Crawler,
	idx Index,
	generator Generator,
	publisher Publisher,
	recorder Recorder,
	chunker *text.Chunker,
	queryLog *QueryLogger,
	opts Options,
) *Service {
	return &Service{
		searcher:  searcher,
		crawler:   crawler,
		index:     idx,
		generator: generator,
		publisher: publisher,
		recorder:  recorder,
		chunker:   chunker,
		queryLog:  queryLog,
		opts:      opts,
	}
}

type runResult struct {
	queryID     string
	hits        []index.RetrievedChunk
	sourceCount int
	chunkCount  int
	degraded    bool
}

// run executes the shared pipeline up through retrieval. Search failure is
// the only unrecoverable stage; crawling degrades per URL and an empty
// context degrades the answer instead of failing it.
func (s *Service) run(ctx context.Context, query string) (*runResult, error) {
	queryID := uuid.New().String()
	slog.InfoContext(ctx, "search run started", "query_id", queryID, "query", query)

	results, err := s.searcher.Search(ctx, query, s.opts.SearchResults)
	if err != nil {
		return nil, err
	}

	topN := s.opts.CrawlTopN
	if topN > len(results) {
		topN = len(results)
	}
	urls := make([]string, 0, topN)
	titles := make(map[string]string, topN)
	for _, r := range results[:topN] {
		urls = append(urls, r.URL)
		titles[r.URL] = r.Title
	}

	docs := s.crawler.CrawlAll(ctx, urls)

	now := time.Now()
	seen := make(map[string]bool)
	var chunks []index.Chunk
	succeeded := 0
	for _, doc := range docs {
		if doc.Failed() {
			slog.WarnContext(ctx, "crawl failed", "url", doc.URL, "error", doc.Err)
			continue
		}
		body := strings.TrimSpace(doc.Markdown)
		if len(body) < s.opts.MinDocumentChars {
			slog.WarnContext(ctx, "crawled document too thin, skipping", "url", doc.URL, "length", len(body))
			continue
		}
		succeeded++
		for _, piece := range text.Dedupe(s.chunker.Split(body)) {
			piece = strings.TrimSpace(piece)
			if len(piece) < s.opts.MinChunkChars || seen[piece] {
				continue
			}
			seen[piece] = true
			chunks = append(chunks, index.Chunk{
				Text:      piece,
				SourceURL: doc.URL,
				Title:     titles[doc.URL],
				QueryID:   queryID,
				CreatedAt: now,
			})
		}
	}

	if len(chunks) > 0 {
		if err := s.index.Upsert(ctx, chunks); err != nil {
			return nil, err
		}
		s.publishMaintenance(ctx)
	}

	hits, err := s.index.Search(ctx, query, queryID, s.opts.RetrievalTopK)
	if err != nil {
		return nil, err
	}

	degraded := succeeded < len(urls) || len(hits) == 0
	slog.InfoContext(ctx, "search run retrieved context",
		"query_id", queryID,
		"urls", len(urls),
		"documents", succeeded,
		"chunks", len(chunks),
		"hits", len(hits),
		"degraded", degraded)

	return &runResult{
		queryID:     queryID,
		hits:        hits,
		sourceCount: succeeded,
		chunkCount:  len(chunks),
		degraded:    degraded,
	}, nil
}

// Search runs the full pipeline and returns a summarized, citation-verified
// answer.
func (s *Service) Search(ctx context.Context, query string) (*Answer, error) {
	start := time.Now()

	run, err := s.run(ctx, query)
	if err != nil {
		return nil, err
	}

	answer := &Answer{QueryID: run.queryID, Sources: []string{}, Degraded: run.degraded}
	if len(run.hits) == 0 {
		answer.Summary = "No fresh content could be retrieved for this query."
	} else {
		raw, err := s.generator.Generate(ctx, buildPrompt(query, run.hits))
		if err != nil {
			return nil, apperr.New(apperr.KindSummarizerUnavailable, err)
		}
		summary, cited := verifyCitations(raw, contextURLs(run.hits), s.opts.MaxCitedSources)
		answer.Summary = summary
		answer.Sources = cited
	}

	s.finish(ctx, query, run, time.Since(start))
	return answer, nil
}

// SearchContext runs the same pipeline up through retrieval and returns the
// scored snippets without summarization.
func (s *Service) SearchContext(ctx context.Context, query string) (*ContextResult, error) {
	start := time.Now()

	run, err := s.run(ctx, query)
	if err != nil {
		return nil, err
	}

	snippets := make([]Snippet, 0, len(run.hits))
	for _, hit := range run.hits {
		snippets = append(snippets, Snippet{
			URL:     hit.SourceURL,
			Title:   hit.Title,
			Snippet: hit.Text,
			Score:   hit.Score,
		})
	}

	s.finish(ctx, query, run, time.Since(start))
	return &ContextResult{QueryID: run.queryID, Snippets: snippets, Degraded: run.degraded}, nil
}

// publishMaintenance nudges the background consumer to check the index size.
// Failure to publish never fails the triggering request.
func (s *Service) publishMaintenance(ctx context.Context) {
	if s.publisher == nil {
		return
	}
	event := worker.MaintenanceEvent{CorrelationID: middleware.GetCorrelationID(ctx)}
	body, err := json.Marshal(event)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal maintenance event", "error", err)
		return
	}
	if err := s.publisher.Publish(config.TopicIndexMaintenance, body); err != nil {
		slog.ErrorContext(ctx, "failed to publish maintenance event", "error", err)
	}
}

func (s *Service) finish(ctx context.Context, query string, run *runResult, elapsed time.Duration) {
	if s.recorder != nil {
		rec := RunRecord{
			QueryID:     run.queryID,
			Query:       query,
			SourceCount: run.sourceCount,
			ChunkCount:  run.chunkCount,
			Degraded:    run.degraded,
			LatencyMs:   elapsed.Milliseconds(),
		}
		if err := s.recorder.Save(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "failed to record search run", "error", err)
		}
	}
	if s.queryLog != nil {
		s.queryLog.Log(QueryLogEntry{
			Query:         query,
			QueryID:       run.queryID,
			NumResults:    len(run.hits),
			Degraded:      run.degraded,
			Duration:      elapsed,
			CorrelationID: middleware.GetCorrelationID(ctx),
		})
	}
}

func contextURLs(hits []index.RetrievedChunk) map[string]bool {
	urls := make(map[string]bool, len(hits))
	for _, hit := range hits {
		urls[hit.SourceURL] = true
	}
	return urls
}

func buildPrompt(query string, hits []index.RetrievedChunk) string {
	var sb strings.Builder
	sb.WriteString("Context from web search:\n\n")
	for _, hit := range hits {
		fmt.Fprintf(&sb, "Source: %s", hit.SourceURL)
		if hit.Title != "" {
			fmt.Fprintf(&sb, " (%s)", hit.Title)
		}
		sb.WriteString("\n")
		sb.WriteString(hit.Text)
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "Question: %s\n", query)
	return sb.String()
}
