package postgres

import (
	"database/sql"

	"github.com/asakaida/rolemigrate/internal/repositories"
)

// NewRepositories builds every repository on top of the same connection or transaction
func NewRepositories(db repositories.DBTX) *repositories.Repositories {
	return &repositories.Repositories{
		ContentTypes:    NewPostgresContentTypeRepository(db),
		LegacyRoles:     NewPostgresLegacyRoleRepository(db),
		Teams:           NewPostgresTeamRepository(db),
		Catalog:         NewPostgresCatalogRepository(db),
		RoleDefinitions: NewPostgresRoleDefinitionRepository(db),
		Assignments:     NewPostgresAssignmentRepository(db),
	}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
