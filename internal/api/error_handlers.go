package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/prensa-app/prensa/internal/pipeline"
)

// ProcessingErrorHandler exposes the dead-letter ledger to operators.
type ProcessingErrorHandler struct {
	repo   pipeline.ErrorRepository
	logger *slog.Logger
}

// NewProcessingErrorHandler creates a new processing error handler.
func NewProcessingErrorHandler(repo pipeline.ErrorRepository, logger *slog.Logger) *ProcessingErrorHandler {
	return &ProcessingErrorHandler{repo: repo, logger: logger}
}

// ListErrors returns processing errors with optional filtering.
// GET /api/processing-errors?limit=100&unresolved_only=true
func (h *ProcessingErrorHandler) ListErrors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := parseLimit(r, 100)
	unresolvedOnly := r.URL.Query().Get("unresolved_only") == "true"

	ctx := r.Context()
	errors, err := h.repo.List(ctx, limit, unresolvedOnly)
	if err != nil {
		h.logger.Error("failed to list processing errors", "error", err)
		http.Error(w, "Failed to list errors", http.StatusInternalServerError)
		return
	}

	unresolvedCount, err := h.repo.CountUnresolved(ctx)
	if err != nil {
		h.logger.Error("failed to count unresolved errors", "error", err)
		unresolvedCount = 0
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"errors":           errors,
		"count":            len(errors),
		"unresolved_count": unresolvedCount,
	})
}

// ResolveError marks an error as resolved.
// POST /api/processing-errors/{id}/resolve
func (h *ProcessingErrorHandler) ResolveError(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/processing-errors/")
	id := strings.TrimSuffix(path, "/resolve")
	if id == "" || id == path {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	}

	if err := h.repo.MarkResolved(r.Context(), id); err != nil {
		h.logger.Error("failed to resolve processing error", "error", err, "id", id)
		http.Error(w, "Failed to resolve error", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved", "id": id})
}
