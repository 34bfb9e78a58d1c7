package repositories

import (
	"context"

	"github.com/asakaida/rolemigrate/internal/entities"
)

// TeamRepository resolves the team that stands for a legacy group
type TeamRepository interface {
	// GetByGroupID returns the team of a group
	// Returns ErrNotFound if the group has no team
	GetByGroupID(ctx context.Context, groupID int64) (*entities.Team, error)
}
