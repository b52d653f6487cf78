package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nsqio/go-nsq"
	"lookout/internal/middleware"
)

// MaintenanceEvent is published after every upsert batch. The consumer, not
// the publisher, decides whether eviction is actually needed, so a burst of
// requests cannot stampede the store with delete calls.
type MaintenanceEvent struct {
	CorrelationID string `json:"correlation_id,omitempty"`
}

// IndexMaintainer is the slice of the index service the consumer needs.
type IndexMaintainer interface {
	Count(ctx context.Context) (int, error)
	EvictOlderThan(ctx context.Context, maxAge time.Duration) (int, error)
}

// MaintenanceConsumer runs threshold-triggered eviction off the request path.
// It lives on the NSQ consumer's goroutines, detached from the request that
// published the event: its failures are logged and retried by the queue,
// never surfaced to a caller.
type MaintenanceConsumer struct {
	index     IndexMaintainer
	threshold int
	maxAge    time.Duration
}

func NewMaintenanceConsumer(index IndexMaintainer, threshold int, maxAge time.Duration) *MaintenanceConsumer {
	return &MaintenanceConsumer{index: index, threshold: threshold, maxAge: maxAge}
}

func (h *MaintenanceConsumer) HandleMessage(m *nsq.Message) error {
	var event MaintenanceEvent
	if len(m.Body) > 0 {
		if err := json.Unmarshal(m.Body, &event); err != nil {
			// Poison pill: don't retry garbage.
			slog.Error("invalid maintenance event", "error", err)
			return nil
		}
	}

	ctx := context.Background()
	if event.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, event.CorrelationID)
	}

	count, err := h.index.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "maintenance count failed", "error", err)
		return err
	}

	if count <= h.threshold {
		return nil
	}

	slog.InfoContext(ctx, "index over threshold, evicting", "count", count, "threshold", h.threshold)

	deleted, err := h.index.EvictOlderThan(ctx, h.maxAge)
	if err != nil {
		slog.ErrorContext(ctx, "background eviction failed", "error", err)
		return err
	}

	slog.InfoContext(ctx, "background eviction completed", "deleted", deleted)
	return nil
}
