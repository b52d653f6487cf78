package search

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"lookout/internal/apperr"
	"lookout/internal/middleware"
)

type SearchService interface {
	Search(ctx context.Context, query string) (*Answer, error)
	SearchContext(ctx context.Context, query string) (*ContextResult, error)
}

type Handler struct {
	service SearchService
}

func NewHandler(service SearchService) *Handler {
	return &Handler{service: service}
}

type searchRequest struct {
	Query string `json:"query"`
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query, ok := h.decodeQuery(w, r)
	if !ok {
		return
	}

	answer, err := h.service.Search(r.Context(), query)
	if err != nil {
		h.writeKindError(r.Context(), w, err)
		return
	}

	h.writeData(r.Context(), w, answer)
}

func (h *Handler) SearchContext(w http.ResponseWriter, r *http.Request) {
	query, ok := h.decodeQuery(w, r)
	if !ok {
		return
	}

	result, err := h.service.SearchContext(r.Context(), query)
	if err != nil {
		h.writeKindError(r.Context(), w, err)
		return
	}

	h.writeData(r.Context(), w, result)
}

func (h *Handler) decodeQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, string(apperr.KindValidation), err.Error(), http.StatusBadRequest)
		return "", false
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		h.writeError(r.Context(), w, string(apperr.KindValidation), "query is required", http.StatusBadRequest)
		return "", false
	}
	return query, true
}

func (h *Handler) writeKindError(ctx context.Context, w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	slog.ErrorContext(ctx, "search request failed", "kind", string(kind), "error", err)

	status := http.StatusInternalServerError
	message := "Internal Server Error"
	switch kind {
	case apperr.KindUpstreamUnavailable:
		status = http.StatusBadGateway
		message = "search backend unavailable"
	case apperr.KindIndexUnavailable:
		status = http.StatusServiceUnavailable
		message = "vector index unavailable"
	case apperr.KindSummarizerUnavailable:
		status = http.StatusBadGateway
		message = "summarizer unavailable"
	case apperr.KindValidation:
		status = http.StatusBadRequest
		message = err.Error()
	}

	h.writeError(ctx, w, string(kind), message, status)
}

func (h *Handler) writeData(ctx context.Context, w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": payload}); err != nil {
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
