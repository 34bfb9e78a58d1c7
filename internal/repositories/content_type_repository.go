package repositories

import (
	"context"

	"github.com/asakaida/rolemigrate/internal/entities"
)

// ContentTypeRepository defines the interface for content type data access
type ContentTypeRepository interface {
	// GetOrCreate returns the content type for app label and model, creating it when missing
	GetOrCreate(ctx context.Context, appLabel string, model string) (*entities.ContentType, error)

	// Get retrieves a content type by ID
	// Returns ErrNotFound if it does not exist
	Get(ctx context.Context, id int64) (*entities.ContentType, error)
}
