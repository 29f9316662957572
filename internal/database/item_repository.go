package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/prensa-app/prensa/internal/models"
)

// PostgresItemRepository implements pipeline.ItemRepository using PostgreSQL.
type PostgresItemRepository struct {
	db *sql.DB
}

// NewPostgresItemRepository creates a new PostgreSQL item repository.
func NewPostgresItemRepository(db *sql.DB) *PostgresItemRepository {
	return &PostgresItemRepository{db: db}
}

const itemColumns = `id, feed_name, feed_site_url, feed_language, feed_logo_url,
	       feed_reliability, feed_curator_topic_ids, url, title, content,
	       description, image_url, fetched_at, published_at, status,
	       retry_count, last_error, story_id, claimed_at, created_at`

// Claim atomically claims up to limit eligible items for this run. Multiple
// pipeline instances can call this concurrently; FOR UPDATE SKIP LOCKED
// guarantees each item is handed to exactly one caller. Eligible items are:
//  1. pending
//  2. failed with retries remaining
//  3. processing with a claim older than staleAfter (a crashed run)
func (r *PostgresItemRepository) Claim(ctx context.Context, limit, maxRetries int, staleAfter time.Duration) ([]models.RawItem, error) {
	query := fmt.Sprintf(`
		UPDATE items
		SET status = 'processing',
		    claimed_at = NOW()
		WHERE id IN (
			SELECT id FROM items
			WHERE retry_count < $2
			  AND (
			    status = 'pending'
			    OR status = 'failed'
			    OR (status = 'processing' AND claimed_at < NOW() - $3::interval)
			  )
			ORDER BY fetched_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING %s
	`, itemColumns)

	staleInterval := fmt.Sprintf("%d seconds", int(staleAfter.Seconds()))
	rows, err := r.db.QueryContext(ctx, query, limit, maxRetries, staleInterval)
	if err != nil {
		return nil, fmt.Errorf("failed to claim items: %w", err)
	}
	defer rows.Close()

	var items []models.RawItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate claimed items: %w", err)
	}

	return items, nil
}

// MarkProcessed finalizes an item with a link to its story. The status guard
// keeps a stale worker from overwriting a reclaim's outcome.
func (r *PostgresItemRepository) MarkProcessed(ctx context.Context, id, storyID string) error {
	query := `
		UPDATE items
		SET status = 'processed', story_id = $2, last_error = '', claimed_at = NULL
		WHERE id = $1 AND status = 'processing'
	`
	_, err := r.db.ExecContext(ctx, query, id, storyID)
	if err != nil {
		return fmt.Errorf("failed to mark item processed: %w", err)
	}
	return nil
}

// MarkRejected terminally rejects an item with the given reason.
func (r *PostgresItemRepository) MarkRejected(ctx context.Context, id, reason string) error {
	query := `
		UPDATE items
		SET status = 'rejected', last_error = $2, claimed_at = NULL
		WHERE id = $1 AND status = 'processing'
	`
	_, err := r.db.ExecContext(ctx, query, id, reason)
	if err != nil {
		return fmt.Errorf("failed to mark item rejected: %w", err)
	}
	return nil
}

// MarkFailed records a transient failure and increments the retry counter.
func (r *PostgresItemRepository) MarkFailed(ctx context.Context, id, errMsg string) error {
	query := `
		UPDATE items
		SET status = 'failed', last_error = $2, retry_count = retry_count + 1, claimed_at = NULL
		WHERE id = $1 AND status = 'processing'
	`
	_, err := r.db.ExecContext(ctx, query, id, errMsg)
	if err != nil {
		return fmt.Errorf("failed to mark item failed: %w", err)
	}
	return nil
}

// CountByStatus returns item counts grouped by status.
func (r *PostgresItemRepository) CountByStatus(ctx context.Context) (map[models.ItemStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM items GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count items by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.ItemStatus]int)
	for rows.Next() {
		var status models.ItemStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// ListExhausted returns failed items that are out of retries, oldest first.
func (r *PostgresItemRepository) ListExhausted(ctx context.Context, maxRetries, limit int) ([]models.RawItem, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM items
		WHERE status = 'failed' AND retry_count >= $1
		ORDER BY fetched_at ASC
		LIMIT $2
	`, itemColumns)

	rows, err := r.db.QueryContext(ctx, query, maxRetries, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list exhausted items: %w", err)
	}
	defer rows.Close()

	var items []models.RawItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// CountExhausted returns how many failed items are out of retries.
func (r *PostgresItemRepository) CountExhausted(ctx context.Context, maxRetries int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM items WHERE status = 'failed' AND retry_count >= $1",
		maxRetries,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count exhausted items: %w", err)
	}
	return count, nil
}

// Insert stores a new raw item. Used by the crawler-facing ingest endpoint.
func (r *PostgresItemRepository) Insert(ctx context.Context, item models.RawItem) error {
	query := `
		INSERT INTO items (id, feed_name, feed_site_url, feed_language, feed_logo_url,
		                   feed_reliability, feed_curator_topic_ids, url, title, content,
		                   description, image_url, fetched_at, published_at, status,
		                   retry_count, last_error, story_id, claimed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (id) DO NOTHING
	`

	var publishedAt, claimedAt sql.NullTime
	if item.PublishedAt != nil {
		publishedAt = sql.NullTime{Time: *item.PublishedAt, Valid: true}
	}
	if item.ClaimedAt != nil {
		claimedAt = sql.NullTime{Time: *item.ClaimedAt, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		item.ID,
		item.Feed.Name,
		item.Feed.SiteURL,
		item.Feed.Language,
		item.Feed.LogoURL,
		item.Feed.Reliability,
		pq.Array(item.Feed.CuratorTopicIDs),
		item.URL,
		item.Title,
		item.Content,
		item.Description,
		item.ImageURL,
		item.FetchedAt,
		publishedAt,
		item.Status,
		item.RetryCount,
		item.LastError,
		item.StoryID,
		claimedAt,
		item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

func scanItem(rows *sql.Rows) (models.RawItem, error) {
	var item models.RawItem
	var publishedAt, claimedAt sql.NullTime
	var lastError, storyID sql.NullString
	var curatorTopicIDs pq.StringArray

	err := rows.Scan(
		&item.ID,
		&item.Feed.Name,
		&item.Feed.SiteURL,
		&item.Feed.Language,
		&item.Feed.LogoURL,
		&item.Feed.Reliability,
		&curatorTopicIDs,
		&item.URL,
		&item.Title,
		&item.Content,
		&item.Description,
		&item.ImageURL,
		&item.FetchedAt,
		&publishedAt,
		&item.Status,
		&item.RetryCount,
		&lastError,
		&storyID,
		&claimedAt,
		&item.CreatedAt,
	)
	if err != nil {
		return models.RawItem{}, fmt.Errorf("failed to scan item: %w", err)
	}

	item.Feed.CuratorTopicIDs = []string(curatorTopicIDs)
	item.LastError = lastError.String
	item.StoryID = storyID.String
	if publishedAt.Valid {
		item.PublishedAt = &publishedAt.Time
	}
	if claimedAt.Valid {
		item.ClaimedAt = &claimedAt.Time
	}

	return item, nil
}
