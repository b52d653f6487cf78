package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"lookout/internal/middleware"
)

type Index interface {
	Count(ctx context.Context) (int, error)
	EvictOlderThan(ctx context.Context, maxAge time.Duration) (int, error)
}

type Handler struct {
	index Index
}

func NewHandler(index Index) *Handler {
	return &Handler{index: index}
}

type StatsResponse struct {
	TotalPoints int `json:"total_points"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	count, err := h.index.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count index points", "error", err)
		h.writeError(ctx, w, "INDEX_UNAVAILABLE", "failed to count index points", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": StatsResponse{TotalPoints: count}}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

type CleanupRequest struct {
	MaxAgeHours int `json:"max_age_hours"`
}

type CleanupResponse struct {
	Deleted int `json:"deleted"`
}

// Cleanup runs eviction synchronously with a caller-supplied age, unlike the
// threshold-triggered background path.
func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CleanupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(ctx, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if req.MaxAgeHours <= 0 {
		h.writeError(ctx, w, "VALIDATION_ERROR", "max_age_hours must be positive", http.StatusBadRequest)
		return
	}

	deleted, err := h.index.EvictOlderThan(ctx, time.Duration(req.MaxAgeHours)*time.Hour)
	if err != nil {
		slog.ErrorContext(ctx, "manual cleanup failed", "error", err)
		h.writeError(ctx, w, "INDEX_UNAVAILABLE", "failed to evict index points", http.StatusServiceUnavailable)
		return
	}

	slog.InfoContext(ctx, "manual cleanup completed", "max_age_hours", req.MaxAgeHours, "deleted", deleted)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": CleanupResponse{Deleted: deleted}}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
