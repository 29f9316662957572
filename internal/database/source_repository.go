package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prensa-app/prensa/internal/models"
)

// PostgresSourceRepository implements pipeline.SourceRepository using PostgreSQL.
type PostgresSourceRepository struct {
	db *sql.DB
}

// NewPostgresSourceRepository creates a new PostgreSQL source repository.
func NewPostgresSourceRepository(db *sql.DB) *PostgresSourceRepository {
	return &PostgresSourceRepository{db: db}
}

const sourceColumns = `id, name, site_url, logo_url, language, reliability, created_at`

// GetByName retrieves a source by its display name.
func (r *PostgresSourceRepository) GetByName(ctx context.Context, name string) (*models.SourceRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM sources WHERE name = $1", sourceColumns)
	return r.getOne(ctx, query, name)
}

// GetBySiteURL retrieves a source by its registered site URL.
func (r *PostgresSourceRepository) GetBySiteURL(ctx context.Context, siteURL string) (*models.SourceRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM sources WHERE site_url = $1", sourceColumns)
	return r.getOne(ctx, query, siteURL)
}

func (r *PostgresSourceRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.SourceRecord, error) {
	var rec models.SourceRecord
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&rec.ID,
		&rec.Name,
		&rec.SiteURL,
		&rec.LogoURL,
		&rec.Language,
		&rec.Reliability,
		&rec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query source: %w", err)
	}
	return &rec, nil
}

// Create inserts a new source record. When a concurrent run already created a
// record with the same name, the existing record is returned instead, so two
// runs resolving the same feed converge on one source.
func (r *PostgresSourceRepository) Create(ctx context.Context, record models.SourceRecord) (*models.SourceRecord, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO sources (id, name, site_url, logo_url, language, reliability, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (name) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.Name,
		record.SiteURL,
		record.LogoURL,
		record.Language,
		record.Reliability,
		record.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create source: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check source insert: %w", err)
	}
	if inserted == 0 {
		existing, err := r.GetByName(ctx, record.Name)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("source %q lost to a concurrent delete", record.Name)
		}
		return existing, nil
	}

	return &record, nil
}

// List returns all sources ordered by name, for the admin surface.
func (r *PostgresSourceRepository) List(ctx context.Context) ([]models.SourceRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM sources ORDER BY name ASC", sourceColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var records []models.SourceRecord
	for rows.Next() {
		var rec models.SourceRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.Name,
			&rec.SiteURL,
			&rec.LogoURL,
			&rec.Language,
			&rec.Reliability,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
