package pipeline

import (
	"context"
	"log/slog"
	"testing"

	"github.com/prensa-app/prensa/internal/models"
)

func TestSourceResolver_CreatesWhenUnseen(t *testing.T) {
	repo := NewMemorySourceRepository()
	resolver := NewSourceResolver(repo, slog.Default())

	feed := models.FeedInfo{
		Name:        "El Diario",
		SiteURL:     "https://eldiario.example",
		Language:    "es",
		LogoURL:     "https://eldiario.example/logo.png",
		Reliability: 0.8,
	}

	record, err := resolver.Resolve(context.Background(), feed)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if record.ID == "" {
		t.Error("created record should have an id")
	}
	if record.Name != feed.Name || record.SiteURL != feed.SiteURL {
		t.Errorf("record fields not copied: %+v", record)
	}
	if repo.Count() != 1 {
		t.Errorf("source count = %d, want 1", repo.Count())
	}
}

func TestSourceResolver_MatchesByNameFirst(t *testing.T) {
	repo := NewMemorySourceRepository()
	existing, _ := repo.Create(context.Background(), models.SourceRecord{
		Name:    "El Diario",
		SiteURL: "https://old-domain.example",
	})

	resolver := NewSourceResolver(repo, slog.Default())

	// Same name, different site URL: name wins, no new record.
	record, err := resolver.Resolve(context.Background(), models.FeedInfo{
		Name:    "El Diario",
		SiteURL: "https://new-domain.example",
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if record.ID != existing.ID {
		t.Errorf("resolved id = %s, want existing %s", record.ID, existing.ID)
	}
	if repo.Count() != 1 {
		t.Errorf("source count = %d, want 1", repo.Count())
	}
}

func TestSourceResolver_FallsBackToSiteURL(t *testing.T) {
	repo := NewMemorySourceRepository()
	existing, _ := repo.Create(context.Background(), models.SourceRecord{
		Name:    "Diario Oficial",
		SiteURL: "https://eldiario.example",
	})

	resolver := NewSourceResolver(repo, slog.Default())

	// Display name drifted but the registered site matches.
	record, err := resolver.Resolve(context.Background(), models.FeedInfo{
		Name:    "El Diario (Nuevo)",
		SiteURL: "https://eldiario.example",
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if record.ID != existing.ID {
		t.Errorf("resolved id = %s, want existing %s", record.ID, existing.ID)
	}
	if repo.Count() != 1 {
		t.Errorf("source count = %d, want 1; url match must not create a duplicate", repo.Count())
	}
}
