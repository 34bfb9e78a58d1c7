package rbacmigration

import (
	"context"
	"errors"
	"fmt"

	"github.com/asakaida/rolemigrate/internal/entities"
	"github.com/asakaida/rolemigrate/internal/infrastructure/metrics"
	"github.com/asakaida/rolemigrate/internal/repositories"
	"github.com/sirupsen/logrus"
)

// ErrTeamNotFound is returned when a legacy group has no team to stand for it
var ErrTeamNotFound = errors.New("group has no team")

// AssignmentMigrator re-creates legacy role bindings as role definition assignments
type AssignmentMigrator struct {
	granter *Granter
	logger  *logrus.Logger
	metrics *metrics.Collector
}

// NewAssignmentMigrator creates a migrator
func NewAssignmentMigrator(granter *Granter, logger *logrus.Logger, collector *metrics.Collector) *AssignmentMigrator {
	if granter == nil {
		granter = NewGranter(collector)
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &AssignmentMigrator{granter: granter, logger: logger, metrics: collector}
}

// Migrate handles every user assignment, then every group assignment
func (m *AssignmentMigrator) Migrate(ctx context.Context, repos *repositories.Repositories) error {
	for _, kind := range assignmentKinds {
		assignments, err := repos.LegacyRoles.ListAssignments(ctx, kind, nil)
		if err != nil {
			return fmt.Errorf("failed to list %s assignments: %w", kind, err)
		}
		for _, a := range assignments {
			if err := m.migrateOne(ctx, repos, a); err != nil {
				return err
			}
		}
		m.logger.WithFields(logrus.Fields{"kind": kind, "assignments": len(assignments)}).Info("Migrated role assignments")
	}
	return nil
}

func (m *AssignmentMigrator) migrateOne(ctx context.Context, repos *repositories.Repositories, a *entities.LegacyAssignment) error {
	rd, err := repos.RoleDefinitions.GetByName(ctx, a.RoleName)
	if errors.Is(err, repositories.ErrNotFound) {
		m.metrics.Record(OpMigrateRoleAssignments, metrics.OutcomeSkipped)
		m.logger.WithField("assignment", a.String()).Debug("No role definition, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to find role definition %s: %w", a.RoleName, err)
	}

	var actorID int64
	switch a.Kind {
	case entities.ActorUser:
		actorID = a.ActorID
	case entities.ActorGroup:
		team, err := repos.Teams.GetByGroupID(ctx, a.ActorID)
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: group %d (%s)", ErrTeamNotFound, a.ActorID, a)
		}
		if err != nil {
			return fmt.Errorf("failed to find team of group %d: %w", a.ActorID, err)
		}
		actorID = team.ID
	default:
		return fmt.Errorf("unknown assignment kind %q", a.Kind)
	}

	if a.IsSystemWide() {
		return m.assignSystem(ctx, repos, rd, a.Kind, actorID)
	}

	if !a.HasContentType() {
		return fmt.Errorf("assignment %s has an object id but no content type", a)
	}
	var users, teams []int64
	if a.Kind == entities.ActorUser {
		users = []int64{actorID}
	} else {
		teams = []int64{actorID}
	}
	return m.granter.GivePermissions(ctx, repos, rd, users, teams, a.ObjectID, *a.ContentTypeID)
}

// assignSystem always inserts; a repeated binding yields a repeated assignment
func (m *AssignmentMigrator) assignSystem(ctx context.Context, repos *repositories.Repositories, rd *entities.RoleDefinition, kind entities.ActorKind, actorID int64) error {
	var err error
	if kind == entities.ActorUser {
		err = repos.Assignments.CreateUserAssignment(ctx, &entities.RoleUserAssignment{RoleDefinitionID: rd.ID, UserID: actorID})
	} else {
		err = repos.Assignments.CreateTeamAssignment(ctx, &entities.RoleTeamAssignment{RoleDefinitionID: rd.ID, TeamID: actorID})
	}
	if err != nil {
		return fmt.Errorf("failed to assign %s to %s %d: %w", rd, kind, actorID, err)
	}
	m.metrics.Record(OpMigrateRoleAssignments, metrics.OutcomeCreated)
	return nil
}
