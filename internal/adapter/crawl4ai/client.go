package crawl4ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Client talks to a Crawl4AI service instance. The transport keeps a bounded
// keep-alive pool and a token-bucket throttle in front of the backend; the
// admission gate in internal/crawl bounds concurrency on top of this.
type Client struct {
	crawlURL string
	client   *http.Client
	limiter  *rate.Limiter
}

func NewClient(crawlURL string, connectTimeout time.Duration, maxConns int, rps float64) *Client {
	if maxConns < 1 {
		maxConns = 1
	}
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		crawlURL: crawlURL,
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: connectTimeout,
				}).DialContext,
				MaxIdleConns:        maxConns,
				MaxIdleConnsPerHost: maxConns,
				MaxConnsPerHost:     maxConns,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(rps), maxConns),
	}
}

type crawlResult struct {
	Markdown         string `json:"markdown"`
	CleanedHTML      string `json:"cleaned_html"`
	ExtractedContent string `json:"extracted_content"`
	Success          bool   `json:"success"`
	StatusCode       int    `json:"status_code"`
	ErrorMessage     string `json:"error_message"`
}

type crawlResponse struct {
	Results []crawlResult `json:"results"`
	crawlResult
}

// Fetch extracts the content of one URL, preferring structured markdown and
// falling back to cleaned HTML, then raw extracted text. Content too short to
// chunk is treated as a failed extraction.
func (c *Client) Fetch(ctx context.Context, pageURL string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	payload := map[string]any{
		"urls": []string{pageURL},
		"browser_config": map[string]any{
			"type":   "BrowserConfig",
			"params": map[string]any{"headless": true},
		},
		"crawler_config": map[string]any{
			"type": "CrawlerRunConfig",
			"params": map[string]any{
				"stream":               false,
				"cache_mode":           "bypass",
				"word_count_threshold": 100,
				"skip_internal_links":  true,
				"extraction_strategy": map[string]any{
					"type": "BM25ExtractionStrategy",
					"params": map[string]any{
						"top_k":                10,
						"word_count_threshold": 100,
					},
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.crawlURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("crawl backend returned %d for %s", resp.StatusCode, pageURL)
	}

	var decoded crawlResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode crawl response: %w", err)
	}

	// The dockerized API wraps results in an array; bare responses carry the
	// fields at the top level.
	result := decoded.crawlResult
	if len(decoded.Results) > 0 {
		result = decoded.Results[0]
	}

	content := pickContent(result)
	if content == "" {
		if result.ErrorMessage != "" {
			return "", fmt.Errorf("extraction failed for %s: %s", pageURL, result.ErrorMessage)
		}
		return "", fmt.Errorf("no usable content extracted from %s", pageURL)
	}

	return content, nil
}

func pickContent(r crawlResult) string {
	for _, candidate := range []string{r.Markdown, r.CleanedHTML, r.ExtractedContent} {
		if len(strings.TrimSpace(candidate)) > 50 {
			return candidate
		}
	}
	return ""
}
