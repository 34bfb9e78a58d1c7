package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/asakaida/rolemigrate/internal/entities"
	"github.com/asakaida/rolemigrate/internal/repositories"
)

// PostgresRoleDefinitionRepository implements RoleDefinitionRepository using PostgreSQL
type PostgresRoleDefinitionRepository struct {
	db repositories.DBTX
}

// NewPostgresRoleDefinitionRepository creates a new PostgreSQL role definition repository
func NewPostgresRoleDefinitionRepository(db repositories.DBTX) repositories.RoleDefinitionRepository {
	return &PostgresRoleDefinitionRepository{db: db}
}

// GetOrCreate returns the role definition with the given name, creating it when missing
func (r *PostgresRoleDefinitionRepository) GetOrCreate(ctx context.Context, name string) (*entities.RoleDefinition, bool, error) {
	if name == "" {
		return nil, false, fmt.Errorf("role definition name is required")
	}

	insert := `
		INSERT INTO dab_rbac_roledefinition (name, description, managed)
		VALUES ($1, '', FALSE)
		ON CONFLICT (name) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, insert, name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create role definition %s: %w", name, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	rd, err := r.GetByName(ctx, name)
	if err != nil {
		return nil, false, err
	}

	return rd, affected > 0, nil
}

// GetByName retrieves a role definition by name
func (r *PostgresRoleDefinitionRepository) GetByName(ctx context.Context, name string) (*entities.RoleDefinition, error) {
	query := `
		SELECT id, name, description, managed
		FROM dab_rbac_roledefinition
		WHERE name = $1
		ORDER BY id
		LIMIT 1
	`
	var rd entities.RoleDefinition
	err := r.db.QueryRowContext(ctx, query, name).Scan(&rd.ID, &rd.Name, &rd.Description, &rd.Managed)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("role definition %s: %w", name, repositories.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role definition: %w", err)
	}

	return &rd, nil
}

// AddPermission attaches a catalog entry, ignoring one already attached
func (r *PostgresRoleDefinitionRepository) AddPermission(ctx context.Context, roleDefinitionID int64, permissionID int64) error {
	query := `
		INSERT INTO dab_rbac_roledefinition_permissions (roledefinition_id, dabpermission_id)
		VALUES ($1, $2)
		ON CONFLICT (roledefinition_id, dabpermission_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, roleDefinitionID, permissionID); err != nil {
		return fmt.Errorf("failed to add permission to role definition: %w", err)
	}

	return nil
}

// ListPermissions returns the catalog entries attached to a role definition
func (r *PostgresRoleDefinitionRepository) ListPermissions(ctx context.Context, roleDefinitionID int64) ([]*entities.DABPermission, error) {
	query := `
		SELECT p.id, p.codename, p.content_type_id, p.name
		FROM dab_rbac_dabpermission p
		JOIN dab_rbac_roledefinition_permissions rp ON rp.dabpermission_id = p.id
		WHERE rp.roledefinition_id = $1
		ORDER BY p.id
	`
	return queryCatalog(ctx, r.db, query, roleDefinitionID)
}

// CountPermissions returns how many catalog entries are attached
func (r *PostgresRoleDefinitionRepository) CountPermissions(ctx context.Context, roleDefinitionID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM dab_rbac_roledefinition_permissions
		WHERE roledefinition_id = $1
	`
	var count int
	if err := r.db.QueryRowContext(ctx, query, roleDefinitionID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count role definition permissions: %w", err)
	}

	return count, nil
}

// List returns every role definition ordered by ID
func (r *PostgresRoleDefinitionRepository) List(ctx context.Context) ([]*entities.RoleDefinition, error) {
	query := `
		SELECT id, name, description, managed
		FROM dab_rbac_roledefinition
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list role definitions: %w", err)
	}
	defer rows.Close()

	var defs []*entities.RoleDefinition
	for rows.Next() {
		var rd entities.RoleDefinition
		if err := rows.Scan(&rd.ID, &rd.Name, &rd.Description, &rd.Managed); err != nil {
			return nil, fmt.Errorf("failed to scan role definition: %w", err)
		}
		defs = append(defs, &rd)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating role definitions: %w", err)
	}

	return defs, nil
}

// Delete removes a role definition; links, object roles and assignments cascade
func (r *PostgresRoleDefinitionRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM dab_rbac_roledefinition WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete role definition %d: %w", id, err)
	}

	return nil
}
