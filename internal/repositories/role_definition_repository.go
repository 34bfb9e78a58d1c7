package repositories

import (
	"context"

	"github.com/asakaida/rolemigrate/internal/entities"
)

// RoleDefinitionRepository defines the interface for role definition data access
type RoleDefinitionRepository interface {
	// GetOrCreate returns the role definition with the given name, creating it when missing.
	// The returned flag reports a creation.
	GetOrCreate(ctx context.Context, name string) (*entities.RoleDefinition, bool, error)

	// GetByName retrieves a role definition by name
	// Returns ErrNotFound if it does not exist
	GetByName(ctx context.Context, name string) (*entities.RoleDefinition, error)

	// AddPermission attaches a catalog entry, ignoring one already attached
	AddPermission(ctx context.Context, roleDefinitionID int64, permissionID int64) error

	// ListPermissions returns the catalog entries attached to a role definition
	ListPermissions(ctx context.Context, roleDefinitionID int64) ([]*entities.DABPermission, error)

	// CountPermissions returns how many catalog entries are attached
	CountPermissions(ctx context.Context, roleDefinitionID int64) (int, error)

	// List returns every role definition ordered by ID
	List(ctx context.Context) ([]*entities.RoleDefinition, error)

	// Delete removes a role definition together with its links and assignments
	Delete(ctx context.Context, id int64) error
}
