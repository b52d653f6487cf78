package searx_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lookout/internal/apperr"
	"lookout/internal/adapter/searx"
)

func TestSearch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "rust ownership model", r.URL.Query().Get("q"))

		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"url": "http://low.example", "title": "Low", "content": "c1", "score": 0.2},
				{"url": "http://high.example", "title": "High", "content": "c2", "score": 0.9},
				{"url": "http://mid.example", "title": "Mid", "content": "c3", "score": 0.5},
				{"url": "", "title": "NoURL", "content": "", "score": 1.0},
			},
		})
	}))
	defer ts.Close()

	c := searx.NewClient(ts.URL, 15*time.Second, 3*time.Second)
	results, err := c.Search(context.Background(), "rust ownership model", 2)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "http://high.example", results[0].URL)
	assert.Equal(t, "http://mid.example", results[1].URL)
	assert.Equal(t, "High", results[0].Title)
	assert.Equal(t, "c2", results[0].Snippet)
}

func TestSearch_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	c := searx.NewClient(ts.URL, time.Second, time.Second)
	_, err := c.Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstreamUnavailable, apperr.KindOf(err))
}

func TestSearch_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer ts.Close()

	c := searx.NewClient(ts.URL, 20*time.Millisecond, 20*time.Millisecond)
	_, err := c.Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstreamUnavailable, apperr.KindOf(err))
}

func TestSearch_BadJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer ts.Close()

	c := searx.NewClient(ts.URL, time.Second, time.Second)
	_, err := c.Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstreamUnavailable, apperr.KindOf(err))
}

func TestSearch_Unreachable(t *testing.T) {
	c := searx.NewClient("http://127.0.0.1:1", time.Second, time.Second)
	_, err := c.Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstreamUnavailable, apperr.KindOf(err))
}
