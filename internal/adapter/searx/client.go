package searx

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sort"
	"time"

	"lookout/internal/apperr"
)

// Result is one ranked hit from the search backend. Read-only downstream.
type Result struct {
	URL     string
	Title   string
	Snippet string
	Score   float64
}

// Client queries a SearxNG instance. No retries here: if a retry policy ever
// makes sense it belongs to the orchestrator, not the transport client.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout, connectTimeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: connectTimeout,
				}).DialContext,
			},
		},
	}
}

type searxResponse struct {
	Results []struct {
		URL     string  `json:"url"`
		Title   string  `json:"title"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search runs one query and returns up to k results ordered by engine score
// descending. Any transport failure or timeout surfaces as
// UPSTREAM_UNAVAILABLE; the pipeline cannot proceed without seed URLs.
func (c *Client) Search(ctx context.Context, query string, k int) ([]Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("safesearch", "1")
	params.Set("categories", "general")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, apperr.New(apperr.KindUpstreamUnavailable, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperr.New(apperr.KindUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Newf(apperr.KindUpstreamUnavailable, "searx returned %d", resp.StatusCode)
	}

	var body searxResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperr.New(apperr.KindUpstreamUnavailable, fmt.Errorf("decode searx response: %w", err))
	}

	results := make([]Result, 0, len(body.Results))
	for _, r := range body.Results {
		if r.URL == "" {
			continue
		}
		results = append(results, Result{URL: r.URL, Title: r.Title, Snippet: r.Content, Score: r.Score})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}
