package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/asakaida/rolemigrate/internal/entities"
	"github.com/asakaida/rolemigrate/internal/repositories"
	"github.com/lib/pq"
)

// PostgresLegacyRoleRepository implements LegacyRoleRepository using PostgreSQL
type PostgresLegacyRoleRepository struct {
	db repositories.DBTX
}

// NewPostgresLegacyRoleRepository creates a new PostgreSQL legacy role repository
func NewPostgresLegacyRoleRepository(db repositories.DBTX) repositories.LegacyRoleRepository {
	return &PostgresLegacyRoleRepository{db: db}
}

// assignmentTable maps an actor kind to its legacy table and actor column
func assignmentTable(kind entities.ActorKind) (string, string, error) {
	switch kind {
	case entities.ActorUser:
		return "core_userrole", "user_id", nil
	case entities.ActorGroup:
		return "core_grouprole", "group_id", nil
	default:
		return "", "", fmt.Errorf("unknown actor kind: %q", kind)
	}
}

// ListRoles returns every legacy role ordered by ID
func (r *PostgresLegacyRoleRepository) ListRoles(ctx context.Context) ([]*entities.LegacyRole, error) {
	query := `
		SELECT id, name, COALESCE(description, '')
		FROM core_role
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []*entities.LegacyRole
	for rows.Next() {
		var role entities.LegacyRole
		if err := rows.Scan(&role.ID, &role.Name, &role.Description); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, &role)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roles: %w", err)
	}

	return roles, nil
}

// CreateRole inserts a legacy role and sets its ID
func (r *PostgresLegacyRoleRepository) CreateRole(ctx context.Context, role *entities.LegacyRole) error {
	if err := role.Validate(); err != nil {
		return fmt.Errorf("invalid role: %w", err)
	}

	query := `
		INSERT INTO core_role (name, description)
		VALUES ($1, $2)
		RETURNING id
	`
	if err := r.db.QueryRowContext(ctx, query, role.Name, role.Description).Scan(&role.ID); err != nil {
		return fmt.Errorf("failed to create role %s: %w", role.Name, err)
	}

	return nil
}

// ListRolePermissions returns the legacy permissions attached to a role
func (r *PostgresLegacyRoleRepository) ListRolePermissions(ctx context.Context, roleID int64) ([]*entities.Permission, error) {
	query := `
		SELECT p.id, p.codename, p.content_type_id, p.name
		FROM auth_permission p
		JOIN core_role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.id
	`
	return r.queryPermissions(ctx, query, roleID)
}

// AddRolePermissions attaches legacy permissions to a role, ignoring ones already attached
func (r *PostgresLegacyRoleRepository) AddRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	if len(permissionIDs) == 0 {
		return nil
	}

	query := `
		INSERT INTO core_role_permissions (role_id, permission_id)
		SELECT $1, unnest($2::bigint[])
		ON CONFLICT (role_id, permission_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, roleID, pq.Array(permissionIDs)); err != nil {
		return fmt.Errorf("failed to add role permissions: %w", err)
	}

	return nil
}

// ListPermissions returns every legacy permission row ordered by ID
func (r *PostgresLegacyRoleRepository) ListPermissions(ctx context.Context) ([]*entities.Permission, error) {
	query := `
		SELECT id, codename, content_type_id, name
		FROM auth_permission
		ORDER BY id
	`
	return r.queryPermissions(ctx, query)
}

func (r *PostgresLegacyRoleRepository) queryPermissions(ctx context.Context, query string, args ...interface{}) ([]*entities.Permission, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()

	var perms []*entities.Permission
	for rows.Next() {
		var p entities.Permission
		if err := rows.Scan(&p.ID, &p.Codename, &p.ContentTypeID, &p.Name); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating permissions: %w", err)
	}

	return perms, nil
}

// ListAssignments returns the legacy assignments of one kind matching the filter, ordered by ID
func (r *PostgresLegacyRoleRepository) ListAssignments(ctx context.Context, kind entities.ActorKind, filter *repositories.AssignmentFilter) ([]*entities.LegacyAssignment, error) {
	table, actorColumn, err := assignmentTable(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT a.id, a.%s, a.role_id, r.name, a.content_type_id, COALESCE(ct.model, ''), COALESCE(a.object_id, '')
		FROM %s a
		JOIN core_role r ON r.id = a.role_id
		LEFT JOIN django_content_type ct ON ct.id = a.content_type_id
	`, actorColumn, table)

	var conditions []string
	var args []interface{}
	if filter != nil {
		if filter.RoleID != 0 {
			args = append(args, filter.RoleID)
			conditions = append(conditions, fmt.Sprintf("a.role_id = $%d", len(args)))
		}
		if filter.ScopedOnly {
			conditions = append(conditions, "a.content_type_id IS NOT NULL")
		}
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY a.id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s assignments: %w", kind, err)
	}
	defer rows.Close()

	var assignments []*entities.LegacyAssignment
	for rows.Next() {
		a := entities.LegacyAssignment{Kind: kind}
		var contentTypeID sql.NullInt64
		if err := rows.Scan(&a.ID, &a.ActorID, &a.RoleID, &a.RoleName, &contentTypeID, &a.ContentTypeModel, &a.ObjectID); err != nil {
			return nil, fmt.Errorf("failed to scan %s assignment: %w", kind, err)
		}
		a.ContentTypeID = int64Ptr(contentTypeID)
		assignments = append(assignments, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s assignments: %w", kind, err)
	}

	return assignments, nil
}

// SetAssignmentRole re-points a legacy assignment to another role
func (r *PostgresLegacyRoleRepository) SetAssignmentRole(ctx context.Context, kind entities.ActorKind, assignmentID int64, roleID int64) error {
	table, _, err := assignmentTable(kind)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`UPDATE %s SET role_id = $1 WHERE id = $2`, table)
	result, err := r.db.ExecContext(ctx, query, roleID, assignmentID)
	if err != nil {
		return fmt.Errorf("failed to update %s assignment: %w", kind, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s assignment %d: %w", kind, assignmentID, repositories.ErrNotFound)
	}

	return nil
}
