package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/prensa-app/prensa/internal/models"
)

func pendingItem(id string, fetchedAt time.Time) models.RawItem {
	return models.RawItem{
		ID:        id,
		URL:       "https://example.com/" + id,
		FetchedAt: fetchedAt,
		Status:    models.ItemStatusPending,
	}
}

func TestMemoryItemRepository_ClaimMarksProcessing(t *testing.T) {
	repo := NewMemoryItemRepository()
	repo.Add(pendingItem("a", time.Now()))

	claimed, err := repo.Claim(context.Background(), 10, 3, 15*time.Minute)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if len(claimed) != 1 {
		t.Fatalf("claimed %d items, want 1", len(claimed))
	}

	stored, _ := repo.Get("a")
	if stored.Status != models.ItemStatusProcessing {
		t.Errorf("status = %s, want processing", stored.Status)
	}
	if stored.ClaimedAt == nil {
		t.Error("claim timestamp not set")
	}

	// A second claim must not hand out the same item.
	again, _ := repo.Claim(context.Background(), 10, 3, 15*time.Minute)
	if len(again) != 0 {
		t.Errorf("second claim returned %d items, want 0", len(again))
	}
}

func TestMemoryItemRepository_ClaimRecoversStaleClaims(t *testing.T) {
	repo := NewMemoryItemRepository()

	stale := pendingItem("stale", time.Now().Add(-time.Hour))
	staleClaim := time.Now().Add(-30 * time.Minute)
	stale.Status = models.ItemStatusProcessing
	stale.ClaimedAt = &staleClaim
	repo.Add(stale)

	fresh := pendingItem("fresh", time.Now().Add(-time.Hour))
	freshClaim := time.Now().Add(-time.Minute)
	fresh.Status = models.ItemStatusProcessing
	fresh.ClaimedAt = &freshClaim
	repo.Add(fresh)

	claimed, err := repo.Claim(context.Background(), 10, 3, 15*time.Minute)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if len(claimed) != 1 || claimed[0].ID != "stale" {
		t.Errorf("claimed = %v, want only the stale item", ids(claimed))
	}
}

func TestMemoryItemRepository_ClaimSkipsExhaustedAndTerminal(t *testing.T) {
	repo := NewMemoryItemRepository()

	exhausted := pendingItem("exhausted", time.Now().Add(-time.Hour))
	exhausted.Status = models.ItemStatusFailed
	exhausted.RetryCount = 3
	repo.Add(exhausted)

	retryable := pendingItem("retryable", time.Now().Add(-time.Hour))
	retryable.Status = models.ItemStatusFailed
	retryable.RetryCount = 2
	repo.Add(retryable)

	done := pendingItem("done", time.Now().Add(-time.Hour))
	done.Status = models.ItemStatusProcessed
	repo.Add(done)

	rejected := pendingItem("rejected", time.Now().Add(-time.Hour))
	rejected.Status = models.ItemStatusRejected
	repo.Add(rejected)

	claimed, err := repo.Claim(context.Background(), 10, 3, 15*time.Minute)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if len(claimed) != 1 || claimed[0].ID != "retryable" {
		t.Errorf("claimed = %v, want only the retryable item", ids(claimed))
	}
}

func TestMemoryItemRepository_ClaimOrdersByFetchTime(t *testing.T) {
	repo := NewMemoryItemRepository()
	now := time.Now()
	repo.Add(pendingItem("newest", now))
	repo.Add(pendingItem("oldest", now.Add(-2*time.Hour)))
	repo.Add(pendingItem("middle", now.Add(-1*time.Hour)))

	claimed, err := repo.Claim(context.Background(), 2, 3, 15*time.Minute)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}

	got := ids(claimed)
	if len(got) != 2 || got[0] != "oldest" || got[1] != "middle" {
		t.Errorf("claim order = %v, want [oldest middle]", got)
	}
}

func TestMemoryItemRepository_MarkFailedIncrementsRetry(t *testing.T) {
	repo := NewMemoryItemRepository()
	repo.Add(pendingItem("a", time.Now()))

	if _, err := repo.Claim(context.Background(), 1, 3, 15*time.Minute); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if err := repo.MarkFailed(context.Background(), "a", "timeout"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	item, _ := repo.Get("a")
	if item.RetryCount != 1 {
		t.Errorf("retry count = %d, want 1", item.RetryCount)
	}
	if item.Status != models.ItemStatusFailed {
		t.Errorf("status = %s, want failed", item.Status)
	}
	if item.ClaimedAt != nil {
		t.Error("claim timestamp should be cleared")
	}
}

func TestMemoryItemRepository_InvalidTransitionRejected(t *testing.T) {
	repo := NewMemoryItemRepository()
	item := pendingItem("a", time.Now())
	item.Status = models.ItemStatusRejected
	repo.Add(item)

	// Terminal items cannot be finalized again.
	if err := repo.MarkProcessed(context.Background(), "a", "story-1"); err == nil {
		t.Error("expected transition error for rejected -> processed")
	}
}

func TestMemoryItemRepository_CountByStatus(t *testing.T) {
	repo := NewMemoryItemRepository()
	repo.Add(pendingItem("a", time.Now()))
	repo.Add(pendingItem("b", time.Now()))
	failed := pendingItem("c", time.Now())
	failed.Status = models.ItemStatusFailed
	failed.RetryCount = 3
	repo.Add(failed)

	counts, err := repo.CountByStatus(context.Background())
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[models.ItemStatusPending] != 2 || counts[models.ItemStatusFailed] != 1 {
		t.Errorf("counts = %v", counts)
	}

	exhausted, err := repo.ListExhausted(context.Background(), 3, 10)
	if err != nil {
		t.Fatalf("ListExhausted: %v", err)
	}
	if len(exhausted) != 1 || exhausted[0].ID != "c" {
		t.Errorf("exhausted = %v, want [c]", ids(exhausted))
	}
}

func ids(items []models.RawItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}
