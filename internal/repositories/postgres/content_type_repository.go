package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/asakaida/rolemigrate/internal/entities"
	"github.com/asakaida/rolemigrate/internal/repositories"
)

// PostgresContentTypeRepository implements ContentTypeRepository using PostgreSQL
type PostgresContentTypeRepository struct {
	db repositories.DBTX
}

// NewPostgresContentTypeRepository creates a new PostgreSQL content type repository
func NewPostgresContentTypeRepository(db repositories.DBTX) repositories.ContentTypeRepository {
	return &PostgresContentTypeRepository{db: db}
}

// GetOrCreate returns the content type for app label and model, creating it when missing
func (r *PostgresContentTypeRepository) GetOrCreate(ctx context.Context, appLabel string, model string) (*entities.ContentType, error) {
	ct := &entities.ContentType{AppLabel: appLabel, Model: model}
	if err := ct.Validate(); err != nil {
		return nil, fmt.Errorf("invalid content type: %w", err)
	}

	insert := `
		INSERT INTO django_content_type (app_label, model)
		VALUES ($1, $2)
		ON CONFLICT (app_label, model) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, insert, appLabel, model); err != nil {
		return nil, fmt.Errorf("failed to create content type %s: %w", ct, err)
	}

	query := `
		SELECT id
		FROM django_content_type
		WHERE app_label = $1 AND model = $2
	`
	if err := r.db.QueryRowContext(ctx, query, appLabel, model).Scan(&ct.ID); err != nil {
		return nil, fmt.Errorf("failed to get content type %s: %w", ct, err)
	}

	return ct, nil
}

// Get retrieves a content type by ID
func (r *PostgresContentTypeRepository) Get(ctx context.Context, id int64) (*entities.ContentType, error) {
	query := `
		SELECT id, app_label, model
		FROM django_content_type
		WHERE id = $1
	`
	var ct entities.ContentType
	err := r.db.QueryRowContext(ctx, query, id).Scan(&ct.ID, &ct.AppLabel, &ct.Model)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("content type %d: %w", id, repositories.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content type: %w", err)
	}

	return &ct, nil
}
