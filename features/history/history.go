package history

import "time"

// Record is one persisted orchestration run.
type Record struct {
	ID          string    `json:"id"`
	QueryID     string    `json:"query_id"`
	Query       string    `json:"query"`
	SourceCount int       `json:"source_count"`
	ChunkCount  int       `json:"chunk_count"`
	Degraded    bool      `json:"degraded"`
	LatencyMs   int64     `json:"latency_ms"`
	CreatedAt   time.Time `json:"created_at"`
}
