package repositories

import (
	"context"
	"database/sql"
	"errors"
)

// ErrNotFound is returned by lookups that match no row
var ErrNotFound = errors.New("not found")

// DBTX is satisfied by both *sql.DB and *sql.Tx so repositories can run
// inside a migration transaction
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Repositories groups every repository a data migration works with.
// All members share the same DBTX.
type Repositories struct {
	ContentTypes    ContentTypeRepository
	LegacyRoles     LegacyRoleRepository
	Teams           TeamRepository
	Catalog         CatalogRepository
	RoleDefinitions RoleDefinitionRepository
	Assignments     AssignmentRepository
}
