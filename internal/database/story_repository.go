package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/prensa-app/prensa/internal/models"
)

// PostgresStoryRepository implements pipeline.StoryRepository using PostgreSQL.
type PostgresStoryRepository struct {
	db *sql.DB
}

// NewPostgresStoryRepository creates a new PostgreSQL story repository.
func NewPostgresStoryRepository(db *sql.DB) *PostgresStoryRepository {
	return &PostgresStoryRepository{db: db}
}

const storyColumns = `id, source_id, original_url, title_en, title_es, summary_en, summary_es,
	       rationale_en, rationale_es, quality_score, topic_ids, image_url,
	       published_at, approved, created_at`

// GetBySourceAndURL retrieves the story for a (source, original URL) pair, or
// nil when none exists.
func (r *PostgresStoryRepository) GetBySourceAndURL(ctx context.Context, sourceID, originalURL string) (*models.Story, error) {
	query := fmt.Sprintf("SELECT %s FROM stories WHERE source_id = $1 AND original_url = $2", storyColumns)

	story, err := scanStory(r.db.QueryRowContext(ctx, query, sourceID, originalURL))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query story by source and URL: %w", err)
	}
	return story, nil
}

// Create inserts a new story. The (source_id, original_url) pair is unique;
// on conflict the existing story is returned, so concurrent runs processing
// the same article converge on one story.
func (r *PostgresStoryRepository) Create(ctx context.Context, story models.Story) (*models.Story, error) {
	if story.ID == "" {
		story.ID = uuid.New().String()
	}
	if story.CreatedAt.IsZero() {
		story.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO stories (id, source_id, original_url, title_en, title_es, summary_en, summary_es,
		                     rationale_en, rationale_es, quality_score, topic_ids, image_url,
		                     published_at, approved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (source_id, original_url) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		story.ID,
		story.SourceID,
		story.OriginalURL,
		story.TitleEn,
		story.TitleEs,
		story.SummaryEn,
		story.SummaryEs,
		story.RationaleEn,
		story.RationaleEs,
		story.QualityScore,
		pq.Array(story.TopicIDs),
		story.ImageURL,
		story.PublishedAt,
		story.Approved,
		story.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create story: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check story insert: %w", err)
	}
	if inserted == 0 {
		existing, err := r.GetBySourceAndURL(ctx, story.SourceID, story.OriginalURL)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("story for %s lost to a concurrent delete", story.OriginalURL)
		}
		return existing, nil
	}

	return &story, nil
}

// ListRecent returns the newest stories, for the admin surface.
func (r *PostgresStoryRepository) ListRecent(ctx context.Context, limit int) ([]models.Story, error) {
	query := fmt.Sprintf("SELECT %s FROM stories ORDER BY published_at DESC LIMIT $1", storyColumns)

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	defer rows.Close()

	var stories []models.Story
	for rows.Next() {
		story, err := scanStory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan story: %w", err)
		}
		stories = append(stories, *story)
	}
	return stories, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStory(row rowScanner) (*models.Story, error) {
	var story models.Story
	var topicIDs pq.StringArray

	err := row.Scan(
		&story.ID,
		&story.SourceID,
		&story.OriginalURL,
		&story.TitleEn,
		&story.TitleEs,
		&story.SummaryEn,
		&story.SummaryEs,
		&story.RationaleEn,
		&story.RationaleEs,
		&story.QualityScore,
		&topicIDs,
		&story.ImageURL,
		&story.PublishedAt,
		&story.Approved,
		&story.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	story.TopicIDs = []string(topicIDs)
	return &story, nil
}
