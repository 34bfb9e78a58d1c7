package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/asakaida/rolemigrate/internal/entities"
	"github.com/asakaida/rolemigrate/internal/repositories"
)

const (
	userAssignmentTable = "dab_rbac_roleuserassignment"
	teamAssignmentTable = "dab_rbac_roleteamassignment"
)

// assignmentRow is the column set shared by user and team assignments
type assignmentRow struct {
	id               int64
	roleDefinitionID int64
	actorID          int64
	objectRoleID     *int64
	contentTypeID    *int64
	objectID         string
}

// PostgresAssignmentRepository implements AssignmentRepository using PostgreSQL
type PostgresAssignmentRepository struct {
	db repositories.DBTX
}

// NewPostgresAssignmentRepository creates a new PostgreSQL assignment repository
func NewPostgresAssignmentRepository(db repositories.DBTX) repositories.AssignmentRepository {
	return &PostgresAssignmentRepository{db: db}
}

// CreateUserAssignment inserts a user assignment and sets its ID
func (r *PostgresAssignmentRepository) CreateUserAssignment(ctx context.Context, a *entities.RoleUserAssignment) error {
	id, err := r.insert(ctx, userAssignmentTable, "user_id", assignmentRow{
		roleDefinitionID: a.RoleDefinitionID,
		actorID:          a.UserID,
		objectRoleID:     a.ObjectRoleID,
		contentTypeID:    a.ContentTypeID,
		objectID:         a.ObjectID,
	})
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

// CreateTeamAssignment inserts a team assignment and sets its ID
func (r *PostgresAssignmentRepository) CreateTeamAssignment(ctx context.Context, a *entities.RoleTeamAssignment) error {
	id, err := r.insert(ctx, teamAssignmentTable, "team_id", assignmentRow{
		roleDefinitionID: a.RoleDefinitionID,
		actorID:          a.TeamID,
		objectRoleID:     a.ObjectRoleID,
		contentTypeID:    a.ContentTypeID,
		objectID:         a.ObjectID,
	})
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

// GetOrCreateObjectRole returns the object role of a role definition on one object
func (r *PostgresAssignmentRepository) GetOrCreateObjectRole(ctx context.Context, roleDefinitionID int64, contentTypeID int64, objectID string) (*entities.ObjectRole, error) {
	if objectID == "" {
		return nil, fmt.Errorf("object id is required for an object role")
	}

	insert := `
		INSERT INTO dab_rbac_objectrole (role_definition_id, content_type_id, object_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (role_definition_id, content_type_id, object_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, insert, roleDefinitionID, contentTypeID, objectID); err != nil {
		return nil, fmt.Errorf("failed to create object role: %w", err)
	}

	query := `
		SELECT id
		FROM dab_rbac_objectrole
		WHERE role_definition_id = $1 AND content_type_id = $2 AND object_id = $3
	`
	objectRole := &entities.ObjectRole{
		RoleDefinitionID: roleDefinitionID,
		ContentTypeID:    contentTypeID,
		ObjectID:         objectID,
	}
	if err := r.db.QueryRowContext(ctx, query, roleDefinitionID, contentTypeID, objectID).Scan(&objectRole.ID); err != nil {
		return nil, fmt.Errorf("failed to get object role: %w", err)
	}

	return objectRole, nil
}

// GetOrCreateUserAssignment returns the scoped user assignment matching a, inserting it when missing
func (r *PostgresAssignmentRepository) GetOrCreateUserAssignment(ctx context.Context, a *entities.RoleUserAssignment) (bool, error) {
	id, created, err := r.getOrCreate(ctx, userAssignmentTable, "user_id", assignmentRow{
		roleDefinitionID: a.RoleDefinitionID,
		actorID:          a.UserID,
		objectRoleID:     a.ObjectRoleID,
		contentTypeID:    a.ContentTypeID,
		objectID:         a.ObjectID,
	})
	if err != nil {
		return false, err
	}
	a.ID = id
	return created, nil
}

// GetOrCreateTeamAssignment returns the scoped team assignment matching a, inserting it when missing
func (r *PostgresAssignmentRepository) GetOrCreateTeamAssignment(ctx context.Context, a *entities.RoleTeamAssignment) (bool, error) {
	id, created, err := r.getOrCreate(ctx, teamAssignmentTable, "team_id", assignmentRow{
		roleDefinitionID: a.RoleDefinitionID,
		actorID:          a.TeamID,
		objectRoleID:     a.ObjectRoleID,
		contentTypeID:    a.ContentTypeID,
		objectID:         a.ObjectID,
	})
	if err != nil {
		return false, err
	}
	a.ID = id
	return created, nil
}

// ListUserAssignments returns the user assignments of a role definition
func (r *PostgresAssignmentRepository) ListUserAssignments(ctx context.Context, roleDefinitionID int64) ([]*entities.RoleUserAssignment, error) {
	rows, err := r.list(ctx, userAssignmentTable, "user_id", roleDefinitionID)
	if err != nil {
		return nil, err
	}

	assignments := make([]*entities.RoleUserAssignment, 0, len(rows))
	for _, row := range rows {
		assignments = append(assignments, &entities.RoleUserAssignment{
			ID:               row.id,
			RoleDefinitionID: row.roleDefinitionID,
			UserID:           row.actorID,
			ObjectRoleID:     row.objectRoleID,
			ContentTypeID:    row.contentTypeID,
			ObjectID:         row.objectID,
		})
	}
	return assignments, nil
}

// ListTeamAssignments returns the team assignments of a role definition
func (r *PostgresAssignmentRepository) ListTeamAssignments(ctx context.Context, roleDefinitionID int64) ([]*entities.RoleTeamAssignment, error) {
	rows, err := r.list(ctx, teamAssignmentTable, "team_id", roleDefinitionID)
	if err != nil {
		return nil, err
	}

	assignments := make([]*entities.RoleTeamAssignment, 0, len(rows))
	for _, row := range rows {
		assignments = append(assignments, &entities.RoleTeamAssignment{
			ID:               row.id,
			RoleDefinitionID: row.roleDefinitionID,
			TeamID:           row.actorID,
			ObjectRoleID:     row.objectRoleID,
			ContentTypeID:    row.contentTypeID,
			ObjectID:         row.objectID,
		})
	}
	return assignments, nil
}

func (r *PostgresAssignmentRepository) insert(ctx context.Context, table string, actorColumn string, row assignmentRow) (int64, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (role_definition_id, %s, object_role_id, content_type_id, object_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, table, actorColumn)

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		row.roleDefinitionID, row.actorID, nullInt64(row.objectRoleID), nullInt64(row.contentTypeID), nullString(row.objectID),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create assignment in %s: %w", table, err)
	}

	return id, nil
}

// getOrCreate matches on actor, object role and role definition
func (r *PostgresAssignmentRepository) getOrCreate(ctx context.Context, table string, actorColumn string, row assignmentRow) (int64, bool, error) {
	if row.objectRoleID == nil {
		return 0, false, fmt.Errorf("object role is required for a scoped assignment")
	}

	query := fmt.Sprintf(`
		SELECT id
		FROM %s
		WHERE %s = $1 AND object_role_id = $2 AND role_definition_id = $3
		ORDER BY id
		LIMIT 1
	`, table, actorColumn)

	var id int64
	err := r.db.QueryRowContext(ctx, query, row.actorID, *row.objectRoleID, row.roleDefinitionID).Scan(&id)
	if err == nil {
		return id, false, nil
	}
	if err != sql.ErrNoRows {
		return 0, false, fmt.Errorf("failed to get assignment in %s: %w", table, err)
	}

	id, err = r.insert(ctx, table, actorColumn, row)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (r *PostgresAssignmentRepository) list(ctx context.Context, table string, actorColumn string, roleDefinitionID int64) ([]assignmentRow, error) {
	query := fmt.Sprintf(`
		SELECT id, role_definition_id, %s, object_role_id, content_type_id, COALESCE(object_id, '')
		FROM %s
		WHERE role_definition_id = $1
		ORDER BY id
	`, actorColumn, table)

	rows, err := r.db.QueryContext(ctx, query, roleDefinitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments in %s: %w", table, err)
	}
	defer rows.Close()

	var result []assignmentRow
	for rows.Next() {
		var row assignmentRow
		var objectRoleID, contentTypeID sql.NullInt64
		if err := rows.Scan(&row.id, &row.roleDefinitionID, &row.actorID, &objectRoleID, &contentTypeID, &row.objectID); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		row.objectRoleID = int64Ptr(objectRoleID)
		row.contentTypeID = int64Ptr(contentTypeID)
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignments: %w", err)
	}

	return result, nil
}
