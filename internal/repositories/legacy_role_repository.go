package repositories

import (
	"context"

	"github.com/asakaida/rolemigrate/internal/entities"
)

// AssignmentFilter defines filter criteria for querying legacy assignments
type AssignmentFilter struct {
	RoleID     int64 // Filter by role ID (optional, 0 matches all)
	ScopedOnly bool  // Only assignments that carry a content type
}

// LegacyRoleRepository defines the interface for the legacy role model
type LegacyRoleRepository interface {
	// ListRoles returns every legacy role ordered by ID
	ListRoles(ctx context.Context) ([]*entities.LegacyRole, error)

	// CreateRole inserts a legacy role and sets its ID
	CreateRole(ctx context.Context, role *entities.LegacyRole) error

	// ListRolePermissions returns the legacy permissions attached to a role
	ListRolePermissions(ctx context.Context, roleID int64) ([]*entities.Permission, error)

	// AddRolePermissions attaches legacy permissions to a role, ignoring ones already attached
	AddRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error

	// ListPermissions returns every legacy permission row ordered by ID
	ListPermissions(ctx context.Context) ([]*entities.Permission, error)

	// ListAssignments returns the legacy assignments of one kind matching the filter, ordered by ID
	ListAssignments(ctx context.Context, kind entities.ActorKind, filter *AssignmentFilter) ([]*entities.LegacyAssignment, error)

	// SetAssignmentRole re-points a legacy assignment to another role
	SetAssignmentRole(ctx context.Context, kind entities.ActorKind, assignmentID int64, roleID int64) error
}
