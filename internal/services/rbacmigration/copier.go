package rbacmigration

import (
	"context"
	"errors"
	"fmt"

	"github.com/asakaida/rolemigrate/internal/entities"
	"github.com/asakaida/rolemigrate/internal/infrastructure/metrics"
	"github.com/asakaida/rolemigrate/internal/repositories"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
)

// DefaultLookupCacheSize is used when no positive cache size is configured
const DefaultLookupCacheSize = 1024

// RoleDefinitionCopier copies legacy roles into role definitions
type RoleDefinitionCopier struct {
	cacheSize int
	logger    *logrus.Logger
	metrics   *metrics.Collector
}

// NewRoleDefinitionCopier creates a copier whose catalog lookups are cached
// in an LRU of cacheSize entries per run
func NewRoleDefinitionCopier(cacheSize int, logger *logrus.Logger, collector *metrics.Collector) *RoleDefinitionCopier {
	if cacheSize <= 0 {
		cacheSize = DefaultLookupCacheSize
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &RoleDefinitionCopier{cacheSize: cacheSize, logger: logger, metrics: collector}
}

// catalogLookup finds catalog entries by key, remembering misses too
type catalogLookup struct {
	catalog repositories.CatalogRepository
	cache   *lru.Cache[entities.PermissionKey, *entities.DABPermission]
	metrics *metrics.Collector
}

func (l *catalogLookup) find(ctx context.Context, key entities.PermissionKey) (*entities.DABPermission, error) {
	if perm, ok := l.cache.Get(key); ok {
		l.metrics.RecordCacheHit()
		return perm, nil
	}
	l.metrics.RecordCacheMiss()

	perm, err := l.catalog.Find(ctx, key)
	if errors.Is(err, repositories.ErrNotFound) {
		perm, err = nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find permission %s: %w", key, err)
	}
	l.cache.Add(key, perm)
	return perm, nil
}

// Copy creates one role definition per legacy role and attaches the matching
// catalog entries. Role definitions left without permissions are deleted.
func (c *RoleDefinitionCopier) Copy(ctx context.Context, repos *repositories.Repositories) error {
	cache, err := lru.New[entities.PermissionKey, *entities.DABPermission](c.cacheSize)
	if err != nil {
		return fmt.Errorf("failed to create lookup cache: %w", err)
	}
	lookup := &catalogLookup{catalog: repos.Catalog, cache: cache, metrics: c.metrics}

	roles, err := repos.LegacyRoles.ListRoles(ctx)
	if err != nil {
		return fmt.Errorf("failed to list legacy roles: %w", err)
	}

	kept, dropped := 0, 0
	for _, role := range roles {
		ok, err := c.copyRole(ctx, repos, lookup, role)
		if err != nil {
			return err
		}
		if ok {
			kept++
		} else {
			dropped++
		}
	}

	c.logger.WithFields(logrus.Fields{"copied": kept, "dropped": dropped}).Info("Finished copying roles to role definitions")
	return nil
}

// copyRole reports whether the role definition survived
func (c *RoleDefinitionCopier) copyRole(ctx context.Context, repos *repositories.Repositories, lookup *catalogLookup, role *entities.LegacyRole) (bool, error) {
	log := c.logger.WithField("role", role.Name)

	rd, created, err := repos.RoleDefinitions.GetOrCreate(ctx, role.Name)
	if err != nil {
		return false, fmt.Errorf("failed to create role definition %s: %w", role.Name, err)
	}
	if created {
		c.metrics.Record(OpCopyRolesToRoleDefinitions, metrics.OutcomeCreated)
	}
	log.Debug("CREATE")

	perms, err := repos.LegacyRoles.ListRolePermissions(ctx, role.ID)
	if err != nil {
		return false, fmt.Errorf("failed to list permissions of role %s: %w", role.Name, err)
	}
	for _, p := range perms {
		dabPerm, err := lookup.find(ctx, p.Key())
		if err != nil {
			return false, err
		}
		if dabPerm == nil {
			continue
		}
		if err := repos.RoleDefinitions.AddPermission(ctx, rd.ID, dabPerm.ID); err != nil {
			return false, fmt.Errorf("failed to add permission %s to %s: %w", dabPerm, rd, err)
		}
	}

	count, err := repos.RoleDefinitions.CountPermissions(ctx, rd.ID)
	if err != nil {
		return false, fmt.Errorf("failed to count permissions of %s: %w", rd, err)
	}
	if count > 0 {
		return true, nil
	}

	log.Info("Role has no catalog permissions, not migrating it")
	if err := repos.RoleDefinitions.Delete(ctx, rd.ID); err != nil {
		return false, fmt.Errorf("failed to delete empty %s: %w", rd, err)
	}
	c.metrics.Record(OpCopyRolesToRoleDefinitions, metrics.OutcomeSkipped)
	return false, nil
}

// DeleteAll removes every role definition with its links and assignments
func (c *RoleDefinitionCopier) DeleteAll(ctx context.Context, repos *repositories.Repositories) error {
	rds, err := repos.RoleDefinitions.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list role definitions: %w", err)
	}
	for _, rd := range rds {
		c.logger.WithField("role_definition", rd.Name).Debug("DELETE")
		if err := repos.RoleDefinitions.Delete(ctx, rd.ID); err != nil {
			return fmt.Errorf("failed to delete %s: %w", rd, err)
		}
		c.metrics.Record(OpDeleteRoleDefinitions, metrics.OutcomeDeleted)
	}
	c.logger.WithField("deleted", len(rds)).Info("Deleted all role definitions")
	return nil
}
