package crawl

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Document is the outcome of one crawl attempt. Exactly one of Markdown or
// Err is meaningful; a failed crawl never aborts its siblings.
type Document struct {
	URL      string
	Markdown string
	Err      error
}

func (d Document) Failed() bool { return d.Err != nil }

// Fetcher extracts markdown content from one URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Coordinator fans a URL set out to the crawl backend under a global
// admission gate. The gate is shared across all concurrent requests so the
// backend sees a bounded number of in-flight crawls regardless of request
// volume; excess crawls queue for a slot.
type Coordinator struct {
	fetcher Fetcher
	gate    chan struct{}
	timeout time.Duration
}

func NewCoordinator(f Fetcher, concurrency int, timeout time.Duration) *Coordinator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Coordinator{
		fetcher: f,
		gate:    make(chan struct{}, concurrency),
		timeout: timeout,
	}
}

// CrawlAll fetches every URL concurrently and returns exactly one Document
// per input URL, in input order. Individual timeouts and transport errors are
// recorded on the affected Document only.
func (c *Coordinator) CrawlAll(ctx context.Context, urls []string) []Document {
	docs := make([]Document, len(urls))

	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			docs[i] = c.crawlOne(ctx, url)
		}(i, u)
	}
	wg.Wait()

	return docs
}

func (c *Coordinator) crawlOne(ctx context.Context, url string) Document {
	select {
	case c.gate <- struct{}{}:
		defer func() { <-c.gate }()
	case <-ctx.Done():
		return Document{URL: url, Err: ctx.Err()}
	}

	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	md, err := c.fetcher.Fetch(cctx, url)
	if err != nil {
		slog.WarnContext(ctx, "crawl failed", "url", url, "error", err)
		return Document{URL: url, Err: err}
	}

	return Document{URL: url, Markdown: md}
}
