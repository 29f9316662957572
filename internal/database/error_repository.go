package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prensa-app/prensa/internal/models"
)

// PostgresErrorRepository implements pipeline.ErrorRepository using PostgreSQL.
type PostgresErrorRepository struct {
	db *sql.DB
}

// NewPostgresErrorRepository creates a new PostgreSQL processing error repository.
func NewPostgresErrorRepository(db *sql.DB) *PostgresErrorRepository {
	return &PostgresErrorRepository{db: db}
}

// Store saves a processing error to the database.
func (r *PostgresErrorRepository) Store(ctx context.Context, procErr models.ProcessingError) error {
	if procErr.ID == "" {
		procErr.ID = uuid.New().String()
	}
	if procErr.CreatedAt.IsZero() {
		procErr.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO processing_errors (id, item_id, url, stage, error_msg, retry_count, created_at, resolved, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	var resolvedAt sql.NullTime
	if procErr.ResolvedAt != nil {
		resolvedAt = sql.NullTime{Time: *procErr.ResolvedAt, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		procErr.ID,
		procErr.ItemID,
		procErr.URL,
		procErr.Stage,
		procErr.ErrorMsg,
		procErr.RetryCount,
		procErr.CreatedAt,
		procErr.Resolved,
		resolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store processing error: %w", err)
	}
	return nil
}

// List retrieves processing errors, newest first.
func (r *PostgresErrorRepository) List(ctx context.Context, limit int, unresolvedOnly bool) ([]models.ProcessingError, error) {
	query := `
		SELECT id, item_id, url, stage, error_msg, retry_count, created_at, resolved, resolved_at
		FROM processing_errors
	`
	if unresolvedOnly {
		query += " WHERE resolved = FALSE"
	}
	query += " ORDER BY created_at DESC LIMIT $1"

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query processing errors: %w", err)
	}
	defer rows.Close()

	var errors []models.ProcessingError
	for rows.Next() {
		var e models.ProcessingError
		var resolvedAt sql.NullTime

		if err := rows.Scan(
			&e.ID,
			&e.ItemID,
			&e.URL,
			&e.Stage,
			&e.ErrorMsg,
			&e.RetryCount,
			&e.CreatedAt,
			&e.Resolved,
			&resolvedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan processing error: %w", err)
		}
		if resolvedAt.Valid {
			e.ResolvedAt = &resolvedAt.Time
		}
		errors = append(errors, e)
	}
	return errors, rows.Err()
}

// CountUnresolved returns the count of unresolved errors.
func (r *PostgresErrorRepository) CountUnresolved(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM processing_errors WHERE resolved = FALSE").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unresolved errors: %w", err)
	}
	return count, nil
}

// MarkResolved marks an error as handled by an operator.
func (r *PostgresErrorRepository) MarkResolved(ctx context.Context, id string) error {
	query := `
		UPDATE processing_errors
		SET resolved = TRUE, resolved_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark error resolved: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check resolved update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("processing error not found: %s", id)
	}
	return nil
}
