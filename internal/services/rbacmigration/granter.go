package rbacmigration

import (
	"context"
	"fmt"

	"github.com/asakaida/rolemigrate/internal/entities"
	"github.com/asakaida/rolemigrate/internal/infrastructure/metrics"
	"github.com/asakaida/rolemigrate/internal/repositories"
)

// Granter gives a role definition to actors on one object
type Granter struct {
	metrics *metrics.Collector
}

// NewGranter creates a granter
func NewGranter(collector *metrics.Collector) *Granter {
	return &Granter{metrics: collector}
}

// GivePermissions binds users and teams to rd on the object. The object role
// and the assignments are reused when they already exist.
func (g *Granter) GivePermissions(ctx context.Context, repos *repositories.Repositories, rd *entities.RoleDefinition, users []int64, teams []int64, objectID string, contentTypeID int64) error {
	if objectID == "" {
		return fmt.Errorf("object id is required to grant %s", rd)
	}

	objRole, err := repos.Assignments.GetOrCreateObjectRole(ctx, rd.ID, contentTypeID, objectID)
	if err != nil {
		return fmt.Errorf("failed to get object role of %s on %d:%s: %w", rd, contentTypeID, objectID, err)
	}

	ct := contentTypeID
	for _, userID := range users {
		created, err := repos.Assignments.GetOrCreateUserAssignment(ctx, &entities.RoleUserAssignment{
			RoleDefinitionID: rd.ID,
			UserID:           userID,
			ObjectRoleID:     &objRole.ID,
			ContentTypeID:    &ct,
			ObjectID:         objectID,
		})
		if err != nil {
			return fmt.Errorf("failed to assign %s to user %d: %w", rd, userID, err)
		}
		g.record(created)
	}

	for _, teamID := range teams {
		created, err := repos.Assignments.GetOrCreateTeamAssignment(ctx, &entities.RoleTeamAssignment{
			RoleDefinitionID: rd.ID,
			TeamID:           teamID,
			ObjectRoleID:     &objRole.ID,
			ContentTypeID:    &ct,
			ObjectID:         objectID,
		})
		if err != nil {
			return fmt.Errorf("failed to assign %s to team %d: %w", rd, teamID, err)
		}
		g.record(created)
	}
	return nil
}

func (g *Granter) record(created bool) {
	if created {
		g.metrics.Record(OpMigrateRoleAssignments, metrics.OutcomeCreated)
	} else {
		g.metrics.Record(OpMigrateRoleAssignments, metrics.OutcomeSkipped)
	}
}
