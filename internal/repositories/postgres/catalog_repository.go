package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/asakaida/rolemigrate/internal/entities"
	"github.com/asakaida/rolemigrate/internal/repositories"
)

// PostgresCatalogRepository implements CatalogRepository using PostgreSQL
type PostgresCatalogRepository struct {
	db repositories.DBTX
}

// NewPostgresCatalogRepository creates a new PostgreSQL permission catalog repository
func NewPostgresCatalogRepository(db repositories.DBTX) repositories.CatalogRepository {
	return &PostgresCatalogRepository{db: db}
}

// GetOrCreate returns the entry with the same triple, creating it when missing
func (r *PostgresCatalogRepository) GetOrCreate(ctx context.Context, perm *entities.DABPermission) (*entities.DABPermission, bool, error) {
	if err := perm.Validate(); err != nil {
		return nil, false, fmt.Errorf("invalid permission: %w", err)
	}

	insert := `
		INSERT INTO dab_rbac_dabpermission (codename, content_type_id, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (codename, content_type_id, name) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, insert, perm.Codename, perm.ContentTypeID, perm.Name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create permission %s: %w", perm, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	found, err := r.Find(ctx, perm.Key())
	if err != nil {
		return nil, false, err
	}

	return found, affected > 0, nil
}

// Find returns the first entry matching the key
func (r *PostgresCatalogRepository) Find(ctx context.Context, key entities.PermissionKey) (*entities.DABPermission, error) {
	query := `
		SELECT id, codename, content_type_id, name
		FROM dab_rbac_dabpermission
		WHERE codename = $1 AND content_type_id = $2 AND name = $3
		ORDER BY id
		LIMIT 1
	`
	var p entities.DABPermission
	err := r.db.QueryRowContext(ctx, query, key.Codename, key.ContentTypeID, key.Name).Scan(
		&p.ID, &p.Codename, &p.ContentTypeID, &p.Name,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("permission %s: %w", key, repositories.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find permission: %w", err)
	}

	return &p, nil
}

// List returns every entry ordered by ID
func (r *PostgresCatalogRepository) List(ctx context.Context) ([]*entities.DABPermission, error) {
	query := `
		SELECT id, codename, content_type_id, name
		FROM dab_rbac_dabpermission
		ORDER BY id
	`
	return queryCatalog(ctx, r.db, query)
}

// Delete removes one entry
func (r *PostgresCatalogRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM dab_rbac_dabpermission WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete permission %d: %w", id, err)
	}

	return nil
}

func queryCatalog(ctx context.Context, db repositories.DBTX, query string, args ...interface{}) ([]*entities.DABPermission, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog permissions: %w", err)
	}
	defer rows.Close()

	var perms []*entities.DABPermission
	for rows.Next() {
		var p entities.DABPermission
		if err := rows.Scan(&p.ID, &p.Codename, &p.ContentTypeID, &p.Name); err != nil {
			return nil, fmt.Errorf("failed to scan catalog permission: %w", err)
		}
		perms = append(perms, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating catalog permissions: %w", err)
	}

	return perms, nil
}
