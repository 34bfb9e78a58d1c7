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

var (
	// ErrSplitLookup is returned in legacy split mode when the assignment to
	// re-point is missing or its content type has no clone for the current role
	ErrSplitLookup = errors.New("split role lookup failed")

	// ErrInvalidSplitMode is returned for an unknown split mode
	ErrInvalidSplitMode = errors.New("invalid split mode")
)

// SplitMode selects how scoped assignments are moved to the clones
type SplitMode string

const (
	// SplitFixed re-points every scoped assignment and copies permissions to the clones
	SplitFixed SplitMode = "fixed"
	// SplitLegacy re-points only the last assignment seen per class and
	// leaves the clones without permissions
	SplitLegacy SplitMode = "legacy"
)

// ParseSplitMode converts a configuration value to a SplitMode
func ParseSplitMode(s string) (SplitMode, error) {
	switch SplitMode(s) {
	case SplitFixed, SplitLegacy:
		return SplitMode(s), nil
	case "":
		return SplitFixed, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSplitMode, s)
}

var assignmentKinds = []entities.ActorKind{entities.ActorUser, entities.ActorGroup}

// RoleSplitter clones legacy roles per content type of the objects they are granted on
type RoleSplitter struct {
	mode    SplitMode
	logger  *logrus.Logger
	metrics *metrics.Collector
}

// NewRoleSplitter creates a splitter
func NewRoleSplitter(mode SplitMode, logger *logrus.Logger, collector *metrics.Collector) *RoleSplitter {
	if logger == nil {
		logger = logrus.New()
	}
	if mode == SplitLegacy {
		logger.Warn("Legacy split mode re-points only the last assignment seen per class")
	}
	return &RoleSplitter{mode: mode, logger: logger, metrics: collector}
}

// Split walks every legacy role that exists when it starts. Clones created
// along the way are not split again.
func (s *RoleSplitter) Split(ctx context.Context, repos *repositories.Repositories) error {
	roles, err := repos.LegacyRoles.ListRoles(ctx)
	if err != nil {
		return fmt.Errorf("failed to list legacy roles: %w", err)
	}

	switch s.mode {
	case SplitFixed:
		for _, role := range roles {
			if err := s.splitFixed(ctx, repos, role); err != nil {
				return err
			}
		}
	case SplitLegacy:
		var last *entities.LegacyAssignment
		for _, role := range roles {
			if last, err = s.splitLegacy(ctx, repos, role, last); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSplitMode, s.mode)
	}
	return nil
}

// cloneFor returns the clone of role for the assignment's content type,
// creating it on first sight
func (s *RoleSplitter) cloneFor(ctx context.Context, repos *repositories.Repositories, role *entities.LegacyRole, a *entities.LegacyAssignment, clones map[int64]*entities.LegacyRole) (*entities.LegacyRole, bool, error) {
	ctID := *a.ContentTypeID
	if clone, ok := clones[ctID]; ok {
		return clone, false, nil
	}

	clone := &entities.LegacyRole{
		Name:        role.SplitName(a.ContentTypeModel),
		Description: role.Description,
	}
	if err := repos.LegacyRoles.CreateRole(ctx, clone); err != nil {
		return nil, false, fmt.Errorf("failed to create split role %s: %w", clone.Name, err)
	}
	clones[ctID] = clone
	s.metrics.Record(OpSplitLegacyRoles, metrics.OutcomeCreated)
	s.logger.WithFields(logrus.Fields{"role": role.Name, "split_role": clone.Name}).Debug("CREATE")
	return clone, true, nil
}

func (s *RoleSplitter) splitFixed(ctx context.Context, repos *repositories.Repositories, role *entities.LegacyRole) error {
	clones := make(map[int64]*entities.LegacyRole)
	var permIDs []int64
	permsLoaded := false

	for _, kind := range assignmentKinds {
		assignments, err := repos.LegacyRoles.ListAssignments(ctx, kind, &repositories.AssignmentFilter{RoleID: role.ID, ScopedOnly: true})
		if err != nil {
			return fmt.Errorf("failed to list %s assignments of role %s: %w", kind, role.Name, err)
		}

		for _, a := range assignments {
			clone, created, err := s.cloneFor(ctx, repos, role, a, clones)
			if err != nil {
				return err
			}

			if created {
				if !permsLoaded {
					perms, err := repos.LegacyRoles.ListRolePermissions(ctx, role.ID)
					if err != nil {
						return fmt.Errorf("failed to list permissions of role %s: %w", role.Name, err)
					}
					for _, p := range perms {
						permIDs = append(permIDs, p.ID)
					}
					permsLoaded = true
				}
				if len(permIDs) > 0 {
					if err := repos.LegacyRoles.AddRolePermissions(ctx, clone.ID, permIDs); err != nil {
						return fmt.Errorf("failed to copy permissions to role %s: %w", clone.Name, err)
					}
				}
			}

			if err := s.repoint(ctx, repos, a, clone); err != nil {
				return err
			}
		}
	}

	if len(clones) > 0 {
		s.logger.WithFields(logrus.Fields{"role": role.Name, "splits": len(clones)}).Info("Split legacy role")
	}
	return nil
}

// splitLegacy re-points only the last assignment seen after each class walk.
// last carries over between classes and roles.
func (s *RoleSplitter) splitLegacy(ctx context.Context, repos *repositories.Repositories, role *entities.LegacyRole, last *entities.LegacyAssignment) (*entities.LegacyAssignment, error) {
	clones := make(map[int64]*entities.LegacyRole)

	for _, kind := range assignmentKinds {
		assignments, err := repos.LegacyRoles.ListAssignments(ctx, kind, &repositories.AssignmentFilter{RoleID: role.ID, ScopedOnly: true})
		if err != nil {
			return last, fmt.Errorf("failed to list %s assignments of role %s: %w", kind, role.Name, err)
		}

		for _, a := range assignments {
			if _, _, err := s.cloneFor(ctx, repos, role, a, clones); err != nil {
				return last, err
			}
			last = a
		}

		if last == nil {
			return last, fmt.Errorf("%w: role %s has no %s assignment to re-point", ErrSplitLookup, role.Name, kind)
		}
		clone, ok := clones[*last.ContentTypeID]
		if !ok {
			return last, fmt.Errorf("%w: role %s has no split for content type %d of %s", ErrSplitLookup, role.Name, *last.ContentTypeID, last)
		}
		if err := s.repoint(ctx, repos, last, clone); err != nil {
			return last, err
		}
	}
	return last, nil
}

func (s *RoleSplitter) repoint(ctx context.Context, repos *repositories.Repositories, a *entities.LegacyAssignment, clone *entities.LegacyRole) error {
	if err := repos.LegacyRoles.SetAssignmentRole(ctx, a.Kind, a.ID, clone.ID); err != nil {
		return fmt.Errorf("failed to move %s to role %s: %w", a, clone.Name, err)
	}
	s.metrics.Record(OpSplitLegacyRoles, metrics.OutcomeUpdated)
	return nil
}
