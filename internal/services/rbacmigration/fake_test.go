package rbacmigration

import (
	"context"
	"fmt"

	"github.com/asakaida/rolemigrate/internal/entities"
	"github.com/asakaida/rolemigrate/internal/repositories"
)

// fakeStore is an in-memory database behind every repository interface
type fakeStore struct {
	nextID int64

	contentTypes []*entities.ContentType
	permissions  []*entities.Permission
	roles        []*entities.LegacyRole
	rolePerms    map[int64][]int64
	legacy       []*entities.LegacyAssignment
	teams        []*entities.Team

	catalog         []*entities.DABPermission
	roleDefs        []*entities.RoleDefinition
	rdPerms         map[int64][]int64
	objectRoles     []*entities.ObjectRole
	userAssignments []*entities.RoleUserAssignment
	teamAssignments []*entities.RoleTeamAssignment
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rolePerms: make(map[int64][]int64),
		rdPerms:   make(map[int64][]int64),
	}
}

func (s *fakeStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *fakeStore) repos() *repositories.Repositories {
	return &repositories.Repositories{
		ContentTypes:    &fakeContentTypes{s},
		LegacyRoles:     &fakeLegacyRoles{s},
		Teams:           &fakeTeams{s},
		Catalog:         &fakeCatalog{s},
		RoleDefinitions: &fakeRoleDefinitions{s},
		Assignments:     &fakeAssignments{s},
	}
}

// Seeding helpers

func (s *fakeStore) addContentType(appLabel, model string) *entities.ContentType {
	ct, _ := (&fakeContentTypes{s}).GetOrCreate(context.Background(), appLabel, model)
	return ct
}

func (s *fakeStore) addPermission(codename string, ct *entities.ContentType, name string) *entities.Permission {
	p := &entities.Permission{ID: s.id(), Codename: codename, ContentTypeID: ct.ID, Name: name}
	s.permissions = append(s.permissions, p)
	return p
}

func (s *fakeStore) addRole(name string, perms ...*entities.Permission) *entities.LegacyRole {
	r := &entities.LegacyRole{ID: s.id(), Name: name, Description: name + " role"}
	s.roles = append(s.roles, r)
	for _, p := range perms {
		s.rolePerms[r.ID] = append(s.rolePerms[r.ID], p.ID)
	}
	return r
}

func (s *fakeStore) addAssignment(kind entities.ActorKind, actorID int64, role *entities.LegacyRole, ct *entities.ContentType, objectID string) *entities.LegacyAssignment {
	a := &entities.LegacyAssignment{ID: s.id(), Kind: kind, ActorID: actorID, RoleID: role.ID, ObjectID: objectID}
	if ct != nil {
		id := ct.ID
		a.ContentTypeID = &id
	}
	s.legacy = append(s.legacy, a)
	return a
}

func (s *fakeStore) addTeam(name string, groupID int64) *entities.Team {
	t := &entities.Team{ID: s.id(), Name: name, GroupID: groupID}
	s.teams = append(s.teams, t)
	return t
}

// Inspection helpers

func (s *fakeStore) role(name string) *entities.LegacyRole {
	for _, r := range s.roles {
		if r.Name == name {
			return r
		}
	}
	return nil
}

func (s *fakeStore) roleDef(name string) *entities.RoleDefinition {
	for _, rd := range s.roleDefs {
		if rd.Name == name {
			return rd
		}
	}
	return nil
}

func (s *fakeStore) assignment(id int64) *entities.LegacyAssignment {
	for _, a := range s.legacy {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (s *fakeStore) contentType(id int64) *entities.ContentType {
	for _, ct := range s.contentTypes {
		if ct.ID == id {
			return ct
		}
	}
	return nil
}

func removeID(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

type fakeContentTypes struct{ *fakeStore }

func (r *fakeContentTypes) GetOrCreate(ctx context.Context, appLabel string, model string) (*entities.ContentType, error) {
	for _, ct := range r.contentTypes {
		if ct.AppLabel == appLabel && ct.Model == model {
			return ct, nil
		}
	}
	ct := &entities.ContentType{ID: r.id(), AppLabel: appLabel, Model: model}
	r.contentTypes = append(r.contentTypes, ct)
	return ct, nil
}

func (r *fakeContentTypes) Get(ctx context.Context, id int64) (*entities.ContentType, error) {
	if ct := r.contentType(id); ct != nil {
		return ct, nil
	}
	return nil, repositories.ErrNotFound
}

type fakeLegacyRoles struct{ *fakeStore }

func (r *fakeLegacyRoles) ListRoles(ctx context.Context) ([]*entities.LegacyRole, error) {
	out := make([]*entities.LegacyRole, len(r.roles))
	copy(out, r.roles)
	return out, nil
}

func (r *fakeLegacyRoles) CreateRole(ctx context.Context, role *entities.LegacyRole) error {
	if r.role(role.Name) != nil {
		return fmt.Errorf("duplicate role name %s", role.Name)
	}
	role.ID = r.id()
	r.roles = append(r.roles, role)
	return nil
}

func (r *fakeLegacyRoles) ListRolePermissions(ctx context.Context, roleID int64) ([]*entities.Permission, error) {
	var out []*entities.Permission
	for _, id := range r.rolePerms[roleID] {
		for _, p := range r.permissions {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (r *fakeLegacyRoles) AddRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	for _, id := range permissionIDs {
		found := false
		for _, existing := range r.rolePerms[roleID] {
			if existing == id {
				found = true
			}
		}
		if !found {
			r.rolePerms[roleID] = append(r.rolePerms[roleID], id)
		}
	}
	return nil
}

func (r *fakeLegacyRoles) ListPermissions(ctx context.Context) ([]*entities.Permission, error) {
	out := make([]*entities.Permission, len(r.permissions))
	copy(out, r.permissions)
	return out, nil
}

// ListAssignments returns copies, like rows read from a database
func (r *fakeLegacyRoles) ListAssignments(ctx context.Context, kind entities.ActorKind, filter *repositories.AssignmentFilter) ([]*entities.LegacyAssignment, error) {
	var out []*entities.LegacyAssignment
	for _, a := range r.legacy {
		if a.Kind != kind {
			continue
		}
		if filter != nil && filter.RoleID != 0 && a.RoleID != filter.RoleID {
			continue
		}
		if filter != nil && filter.ScopedOnly && a.ContentTypeID == nil {
			continue
		}
		c := *a
		for _, role := range r.roles {
			if role.ID == a.RoleID {
				c.RoleName = role.Name
			}
		}
		if a.ContentTypeID != nil {
			c.ContentTypeModel = r.contentType(*a.ContentTypeID).Model
		}
		out = append(out, &c)
	}
	return out, nil
}

func (r *fakeLegacyRoles) SetAssignmentRole(ctx context.Context, kind entities.ActorKind, assignmentID int64, roleID int64) error {
	a := r.assignment(assignmentID)
	if a == nil || a.Kind != kind {
		return repositories.ErrNotFound
	}
	a.RoleID = roleID
	return nil
}

type fakeTeams struct{ *fakeStore }

func (r *fakeTeams) GetByGroupID(ctx context.Context, groupID int64) (*entities.Team, error) {
	for _, t := range r.teams {
		if t.GroupID == groupID {
			return t, nil
		}
	}
	return nil, repositories.ErrNotFound
}

type fakeCatalog struct{ *fakeStore }

func (r *fakeCatalog) GetOrCreate(ctx context.Context, perm *entities.DABPermission) (*entities.DABPermission, bool, error) {
	if existing, err := r.Find(ctx, perm.Key()); err == nil {
		return existing, false, nil
	}
	created := *perm
	created.ID = r.id()
	r.catalog = append(r.catalog, &created)
	return &created, true, nil
}

func (r *fakeCatalog) Find(ctx context.Context, key entities.PermissionKey) (*entities.DABPermission, error) {
	for _, p := range r.catalog {
		if p.Key() == key {
			return p, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeCatalog) List(ctx context.Context) ([]*entities.DABPermission, error) {
	out := make([]*entities.DABPermission, len(r.catalog))
	copy(out, r.catalog)
	return out, nil
}

func (r *fakeCatalog) Delete(ctx context.Context, id int64) error {
	kept := r.catalog[:0]
	for _, p := range r.catalog {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	r.catalog = kept
	for rdID, ids := range r.rdPerms {
		r.rdPerms[rdID] = removeID(ids, id)
	}
	return nil
}

type fakeRoleDefinitions struct{ *fakeStore }

func (r *fakeRoleDefinitions) GetOrCreate(ctx context.Context, name string) (*entities.RoleDefinition, bool, error) {
	if rd := r.roleDef(name); rd != nil {
		return rd, false, nil
	}
	rd := &entities.RoleDefinition{ID: r.id(), Name: name}
	r.roleDefs = append(r.roleDefs, rd)
	return rd, true, nil
}

func (r *fakeRoleDefinitions) GetByName(ctx context.Context, name string) (*entities.RoleDefinition, error) {
	if rd := r.roleDef(name); rd != nil {
		return rd, nil
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeRoleDefinitions) AddPermission(ctx context.Context, roleDefinitionID int64, permissionID int64) error {
	for _, id := range r.rdPerms[roleDefinitionID] {
		if id == permissionID {
			return nil
		}
	}
	r.rdPerms[roleDefinitionID] = append(r.rdPerms[roleDefinitionID], permissionID)
	return nil
}

func (r *fakeRoleDefinitions) ListPermissions(ctx context.Context, roleDefinitionID int64) ([]*entities.DABPermission, error) {
	var out []*entities.DABPermission
	for _, id := range r.rdPerms[roleDefinitionID] {
		for _, p := range r.catalog {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (r *fakeRoleDefinitions) CountPermissions(ctx context.Context, roleDefinitionID int64) (int, error) {
	return len(r.rdPerms[roleDefinitionID]), nil
}

func (r *fakeRoleDefinitions) List(ctx context.Context) ([]*entities.RoleDefinition, error) {
	out := make([]*entities.RoleDefinition, len(r.roleDefs))
	copy(out, r.roleDefs)
	return out, nil
}

func (r *fakeRoleDefinitions) Delete(ctx context.Context, id int64) error {
	kept := r.roleDefs[:0]
	for _, rd := range r.roleDefs {
		if rd.ID != id {
			kept = append(kept, rd)
		}
	}
	r.roleDefs = kept
	delete(r.rdPerms, id)

	objectRoles := r.objectRoles[:0]
	for _, o := range r.objectRoles {
		if o.RoleDefinitionID != id {
			objectRoles = append(objectRoles, o)
		}
	}
	r.objectRoles = objectRoles

	users := r.userAssignments[:0]
	for _, a := range r.userAssignments {
		if a.RoleDefinitionID != id {
			users = append(users, a)
		}
	}
	r.userAssignments = users

	teams := r.teamAssignments[:0]
	for _, a := range r.teamAssignments {
		if a.RoleDefinitionID != id {
			teams = append(teams, a)
		}
	}
	r.teamAssignments = teams
	return nil
}

type fakeAssignments struct{ *fakeStore }

func (r *fakeAssignments) CreateUserAssignment(ctx context.Context, a *entities.RoleUserAssignment) error {
	a.ID = r.id()
	r.userAssignments = append(r.userAssignments, a)
	return nil
}

func (r *fakeAssignments) CreateTeamAssignment(ctx context.Context, a *entities.RoleTeamAssignment) error {
	a.ID = r.id()
	r.teamAssignments = append(r.teamAssignments, a)
	return nil
}

func (r *fakeAssignments) GetOrCreateObjectRole(ctx context.Context, roleDefinitionID int64, contentTypeID int64, objectID string) (*entities.ObjectRole, error) {
	for _, o := range r.objectRoles {
		if o.RoleDefinitionID == roleDefinitionID && o.ContentTypeID == contentTypeID && o.ObjectID == objectID {
			return o, nil
		}
	}
	o := &entities.ObjectRole{ID: r.id(), RoleDefinitionID: roleDefinitionID, ContentTypeID: contentTypeID, ObjectID: objectID}
	r.objectRoles = append(r.objectRoles, o)
	return o, nil
}

func sameObjectRole(a, b *int64) bool {
	return a != nil && b != nil && *a == *b
}

func (r *fakeAssignments) GetOrCreateUserAssignment(ctx context.Context, a *entities.RoleUserAssignment) (bool, error) {
	for _, existing := range r.userAssignments {
		if existing.UserID == a.UserID && existing.RoleDefinitionID == a.RoleDefinitionID && sameObjectRole(existing.ObjectRoleID, a.ObjectRoleID) {
			a.ID = existing.ID
			return false, nil
		}
	}
	return true, r.CreateUserAssignment(ctx, a)
}

func (r *fakeAssignments) GetOrCreateTeamAssignment(ctx context.Context, a *entities.RoleTeamAssignment) (bool, error) {
	for _, existing := range r.teamAssignments {
		if existing.TeamID == a.TeamID && existing.RoleDefinitionID == a.RoleDefinitionID && sameObjectRole(existing.ObjectRoleID, a.ObjectRoleID) {
			a.ID = existing.ID
			return false, nil
		}
	}
	return true, r.CreateTeamAssignment(ctx, a)
}

func (r *fakeAssignments) ListUserAssignments(ctx context.Context, roleDefinitionID int64) ([]*entities.RoleUserAssignment, error) {
	var out []*entities.RoleUserAssignment
	for _, a := range r.userAssignments {
		if a.RoleDefinitionID == roleDefinitionID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAssignments) ListTeamAssignments(ctx context.Context, roleDefinitionID int64) ([]*entities.RoleTeamAssignment, error) {
	var out []*entities.RoleTeamAssignment
	for _, a := range r.teamAssignments {
		if a.RoleDefinitionID == roleDefinitionID {
			out = append(out, a)
		}
	}
	return out, nil
}
