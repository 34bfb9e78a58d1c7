package repositories

import (
	"context"

	"github.com/asakaida/rolemigrate/internal/entities"
)

// CatalogRepository defines the interface for the permission catalog
type CatalogRepository interface {
	// GetOrCreate returns the entry with the same (codename, content type, name),
	// creating it when missing. The returned flag reports a creation.
	GetOrCreate(ctx context.Context, perm *entities.DABPermission) (*entities.DABPermission, bool, error)

	// Find returns the first entry matching the key
	// Returns ErrNotFound if no entry matches
	Find(ctx context.Context, key entities.PermissionKey) (*entities.DABPermission, error)

	// List returns every entry ordered by ID
	List(ctx context.Context) ([]*entities.DABPermission, error)

	// Delete removes one entry
	Delete(ctx context.Context, id int64) error
}
