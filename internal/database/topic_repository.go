package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prensa-app/prensa/internal/models"
)

// PostgresTopicRepository implements pipeline.TopicRepository using PostgreSQL.
// The taxonomy is curator-maintained; the pipeline only reads it.
type PostgresTopicRepository struct {
	db *sql.DB
}

// NewPostgresTopicRepository creates a new PostgreSQL topic repository.
func NewPostgresTopicRepository(db *sql.DB) *PostgresTopicRepository {
	return &PostgresTopicRepository{db: db}
}

// GetBySlug retrieves a topic by its slug, or nil when the slug is not part
// of the taxonomy.
func (r *PostgresTopicRepository) GetBySlug(ctx context.Context, slug string) (*models.Topic, error) {
	var topic models.Topic
	err := r.db.QueryRowContext(ctx,
		"SELECT id, slug, name_en, name_es FROM topics WHERE slug = $1",
		slug,
	).Scan(&topic.ID, &topic.Slug, &topic.NameEn, &topic.NameEs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query topic by slug: %w", err)
	}
	return &topic, nil
}

// List returns the full taxonomy ordered by slug.
func (r *PostgresTopicRepository) List(ctx context.Context) ([]models.Topic, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, slug, name_en, name_es FROM topics ORDER BY slug ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	defer rows.Close()

	var topics []models.Topic
	for rows.Next() {
		var topic models.Topic
		if err := rows.Scan(&topic.ID, &topic.Slug, &topic.NameEn, &topic.NameEs); err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		topics = append(topics, topic)
	}
	return topics, rows.Err()
}
