package rbacmigration

import (
	"context"
	"fmt"

	"github.com/asakaida/rolemigrate/internal/entities"
	"github.com/asakaida/rolemigrate/internal/infrastructure/metrics"
	"github.com/asakaida/rolemigrate/internal/repositories"
	"github.com/sirupsen/logrus"
)

// PermissionBootstrapper fills the permission catalog
type PermissionBootstrapper struct {
	registry *Registry
	logger   *logrus.Logger
	metrics  *metrics.Collector
}

// NewPermissionBootstrapper creates a bootstrapper over a model registry
func NewPermissionBootstrapper(registry *Registry, logger *logrus.Logger, collector *metrics.Collector) *PermissionBootstrapper {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &PermissionBootstrapper{registry: registry, logger: logger, metrics: collector}
}

// CreateDABPermissions generates the catalog entries of every model of an app label
func (b *PermissionBootstrapper) CreateDABPermissions(ctx context.Context, repos *repositories.Repositories, appLabel string) error {
	models := b.registry.Models(appLabel)
	if len(models) == 0 {
		b.logger.WithField("app_label", appLabel).Warn("No models registered, no permissions generated")
		return nil
	}

	created := 0
	for _, model := range models {
		ct, err := repos.ContentTypes.GetOrCreate(ctx, appLabel, model.Name)
		if err != nil {
			return fmt.Errorf("failed to get content type %s.%s: %w", appLabel, model.Name, err)
		}

		for _, spec := range model.generate() {
			perm := &entities.DABPermission{Codename: spec.codename, ContentTypeID: ct.ID, Name: spec.name}
			ok, err := b.ensure(ctx, repos, OpCreateDABPermissions, perm)
			if err != nil {
				return err
			}
			if ok {
				created++
			}
		}
	}

	b.logger.WithFields(logrus.Fields{"app_label": appLabel, "created": created}).Info("Finished creating permissions")
	return nil
}

// CopyAuthPermissions runs the generator for appLabel, then copies every
// legacy permission row into the catalog
func (b *PermissionBootstrapper) CopyAuthPermissions(ctx context.Context, repos *repositories.Repositories, appLabel string) error {
	if err := b.CreateDABPermissions(ctx, repos, appLabel); err != nil {
		return err
	}

	perms, err := repos.LegacyRoles.ListPermissions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list legacy permissions: %w", err)
	}

	created := 0
	for _, p := range perms {
		perm := &entities.DABPermission{Codename: p.Codename, ContentTypeID: p.ContentTypeID, Name: p.Name}
		ok, err := b.ensure(ctx, repos, OpCopyAuthPermissions, perm)
		if err != nil {
			return err
		}
		if ok {
			created++
		}
	}

	b.logger.WithFields(logrus.Fields{"legacy": len(perms), "created": created}).Info("Finished copying legacy permissions")
	return nil
}

func (b *PermissionBootstrapper) ensure(ctx context.Context, repos *repositories.Repositories, op string, perm *entities.DABPermission) (bool, error) {
	if err := perm.Validate(); err != nil {
		return false, fmt.Errorf("invalid permission %s: %w", perm, err)
	}
	got, created, err := repos.Catalog.GetOrCreate(ctx, perm)
	if err != nil {
		return false, fmt.Errorf("failed to create permission %s: %w", perm, err)
	}
	if created {
		b.metrics.Record(op, metrics.OutcomeCreated)
		b.logger.WithFields(logrus.Fields{"operation": op, "permission": got.String()}).Debug("CREATE")
	} else {
		b.metrics.Record(op, metrics.OutcomeSkipped)
	}
	return created, nil
}

// DeleteAllPermissions removes every catalog entry, including ones that
// existed before the migration ran
func (b *PermissionBootstrapper) DeleteAllPermissions(ctx context.Context, repos *repositories.Repositories) error {
	perms, err := repos.Catalog.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list permissions: %w", err)
	}
	for _, p := range perms {
		b.logger.WithFields(logrus.Fields{"operation": OpDeletePermissions, "permission": p.String()}).Debug("DELETE")
		if err := repos.Catalog.Delete(ctx, p.ID); err != nil {
			return fmt.Errorf("failed to delete permission %s: %w", p, err)
		}
		b.metrics.Record(OpDeletePermissions, metrics.OutcomeDeleted)
	}
	b.logger.WithField("deleted", len(perms)).Info("Deleted all permissions")
	return nil
}
