package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/asakaida/rolemigrate/internal/entities"
	"github.com/asakaida/rolemigrate/internal/repositories"
)

// PostgresTeamRepository implements TeamRepository using PostgreSQL
type PostgresTeamRepository struct {
	db repositories.DBTX
}

// NewPostgresTeamRepository creates a new PostgreSQL team repository
func NewPostgresTeamRepository(db repositories.DBTX) repositories.TeamRepository {
	return &PostgresTeamRepository{db: db}
}

// GetByGroupID returns the team of a group
func (r *PostgresTeamRepository) GetByGroupID(ctx context.Context, groupID int64) (*entities.Team, error) {
	query := `
		SELECT id, name, group_id
		FROM galaxy_team
		WHERE group_id = $1
	`
	var team entities.Team
	err := r.db.QueryRowContext(ctx, query, groupID).Scan(&team.ID, &team.Name, &team.GroupID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("team for group %d: %w", groupID, repositories.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	return &team, nil
}
