package rbacmigration

import (
	"context"

	"github.com/asakaida/rolemigrate/internal/infrastructure/metrics"
	"github.com/asakaida/rolemigrate/internal/repositories"
	"github.com/asakaida/rolemigrate/internal/services/datamigration"
	"github.com/sirupsen/logrus"
)

// Operation names, also used as metric labels
const (
	OpCreateDABPermissions             = "create_dab_permissions"
	OpSplitLegacyRoles                 = "split_legacy_roles"
	OpCopyRolesToRoleDefinitions       = "copy_roles_to_role_definitions"
	OpMigrateRoleAssignments           = "migrate_role_assignments"
	OpCopyAuthPermissions              = "copy_auth_permissions"
	OpCopyPermissionsToRoleDefinitions = "copy_permissions_to_role_definitions"
	OpDeletePermissions                = "delete_all_permissions"
	OpDeleteRoleDefinitions            = "delete_all_role_definitions"
)

// Options configures the data migrations
type Options struct {
	AppLabel        string
	SplitMode       SplitMode
	Registry        *Registry // nil uses DefaultRegistry
	LookupCacheSize int
	Logger          *logrus.Logger
	Metrics         *metrics.Collector
}

// Migrations returns the ordered data migrations from legacy roles to role definitions
func Migrations(opts Options) []datamigration.Migration {
	if opts.AppLabel == "" {
		opts.AppLabel = "galaxy"
	}
	if opts.SplitMode == "" {
		opts.SplitMode = SplitFixed
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}

	bootstrapper := NewPermissionBootstrapper(opts.Registry, opts.Logger, opts.Metrics)
	splitter := NewRoleSplitter(opts.SplitMode, opts.Logger, opts.Metrics)
	copier := NewRoleDefinitionCopier(opts.LookupCacheSize, opts.Logger, opts.Metrics)
	migrator := NewAssignmentMigrator(NewGranter(opts.Metrics), opts.Logger, opts.Metrics)

	return []datamigration.Migration{
		{
			Version: 1,
			Name:    "galaxy_role_defs_to_dab_defs",
			Operations: []datamigration.Operation{
				{
					Name: OpCreateDABPermissions,
					Forward: func(ctx context.Context, repos *repositories.Repositories) error {
						return bootstrapper.CreateDABPermissions(ctx, repos, opts.AppLabel)
					},
					Reverse: bootstrapper.DeleteAllPermissions,
				},
				{Name: OpSplitLegacyRoles, Forward: splitter.Split, Reverse: datamigration.Noop},
				{Name: OpCopyRolesToRoleDefinitions, Forward: copier.Copy, Reverse: copier.DeleteAll},
				{Name: OpMigrateRoleAssignments, Forward: migrator.Migrate, Reverse: datamigration.Noop},
			},
		},
		{
			Version: 2,
			Name:    "dab_permissions_from_auth",
			Operations: []datamigration.Operation{
				{
					Name: OpCopyAuthPermissions,
					Forward: func(ctx context.Context, repos *repositories.Repositories) error {
						return bootstrapper.CopyAuthPermissions(ctx, repos, opts.AppLabel)
					},
					Reverse: bootstrapper.DeleteAllPermissions,
				},
				{Name: OpCopyPermissionsToRoleDefinitions, Forward: datamigration.Noop, Reverse: copier.DeleteAll},
			},
		},
	}
}
