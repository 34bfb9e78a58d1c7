package repositories

import (
	"context"

	"github.com/asakaida/rolemigrate/internal/entities"
)

// AssignmentRepository defines the interface for user and team assignments
type AssignmentRepository interface {
	// CreateUserAssignment inserts a user assignment and sets its ID
	CreateUserAssignment(ctx context.Context, a *entities.RoleUserAssignment) error

	// CreateTeamAssignment inserts a team assignment and sets its ID
	CreateTeamAssignment(ctx context.Context, a *entities.RoleTeamAssignment) error

	// GetOrCreateObjectRole returns the object role of a role definition on one object
	GetOrCreateObjectRole(ctx context.Context, roleDefinitionID int64, contentTypeID int64, objectID string) (*entities.ObjectRole, error)

	// GetOrCreateUserAssignment returns the scoped user assignment matching a,
	// inserting it when missing. The returned flag reports a creation.
	GetOrCreateUserAssignment(ctx context.Context, a *entities.RoleUserAssignment) (bool, error)

	// GetOrCreateTeamAssignment returns the scoped team assignment matching a,
	// inserting it when missing. The returned flag reports a creation.
	GetOrCreateTeamAssignment(ctx context.Context, a *entities.RoleTeamAssignment) (bool, error)

	// ListUserAssignments returns the user assignments of a role definition
	ListUserAssignments(ctx context.Context, roleDefinitionID int64) ([]*entities.RoleUserAssignment, error)

	// ListTeamAssignments returns the team assignments of a role definition
	ListTeamAssignments(ctx context.Context, roleDefinitionID int64) ([]*entities.RoleTeamAssignment, error)
}
