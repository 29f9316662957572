package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/prensa-app/prensa/internal/models"
)

// ItemInserter accepts new raw items from the crawler side.
type ItemInserter interface {
	Insert(ctx context.Context, item models.RawItem) error
}

// ItemHandler accepts raw items pushed by the crawler.
type ItemHandler struct {
	items  ItemInserter
	logger *slog.Logger
}

// NewItemHandler creates a new item ingest handler.
func NewItemHandler(items ItemInserter, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{items: items, logger: logger}
}

// IngestItems stores a batch of fetched items in status pending.
// POST /api/items [{...}, {...}]
func (h *ItemHandler) IngestItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var items []models.RawItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	now := time.Now()
	stored := 0

	for _, item := range items {
		if item.URL == "" || item.Title == "" {
			h.logger.Warn("skipping item without url or title", "id", item.ID)
			continue
		}
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		if item.FetchedAt.IsZero() {
			item.FetchedAt = now
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		item.Status = models.ItemStatusPending
		item.RetryCount = 0

		if err := h.items.Insert(ctx, item); err != nil {
			h.logger.Error("failed to store item", "error", err, "url", item.URL)
			http.Error(w, "Failed to store items", http.StatusInternalServerError)
			return
		}
		stored++
	}

	writeJSON(w, http.StatusCreated, map[string]int{
		"received": len(items),
		"stored":   stored,
	})
}
