package history

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"lookout/internal/middleware"
)

const defaultListLimit = 20

type Repo interface {
	List(ctx context.Context, limit int) ([]Record, error)
}

type Handler struct {
	repo Repo
}

func NewHandler(repo Repo) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			h.writeError(ctx, w, "VALIDATION_ERROR", "limit must be between 1 and 200", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	records, err := h.repo.List(ctx, limit)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list search history", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to list search history", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []Record{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": records}); err != nil {
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
