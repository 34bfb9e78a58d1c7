package entities

import "fmt"

// ActorKind distinguishes the two legacy assignment tables
type ActorKind string

const (
	ActorUser  ActorKind = "user"
	ActorGroup ActorKind = "group"
)

// LegacyAssignment binds a user or a group to a legacy role, optionally
// scoped to one object (content type + object id).
type LegacyAssignment struct {
	ID               int64
	Kind             ActorKind
	ActorID          int64  // user_id or group_id depending on Kind
	RoleID           int64
	RoleName         string // Name of the bound legacy role
	ContentTypeID    *int64 // nil for system-wide assignments
	ContentTypeModel string // Model of ContentTypeID, empty when nil
	ObjectID         string // Empty for system-wide assignments
}

// HasContentType reports whether the assignment carries a content type
func (a *LegacyAssignment) HasContentType() bool {
	return a.ContentTypeID != nil
}

// IsSystemWide reports whether the assignment applies globally.
// An empty object id means system-wide, whatever the content type says.
func (a *LegacyAssignment) IsSystemWide() bool {
	return a.ObjectID == ""
}

// String returns a string representation of the assignment
// Format: kind:actor_id -> role[@content_type_id:object_id]
func (a *LegacyAssignment) String() string {
	if a.IsSystemWide() || a.ContentTypeID == nil {
		return fmt.Sprintf("%s:%d -> %s", a.Kind, a.ActorID, a.RoleName)
	}
	return fmt.Sprintf("%s:%d -> %s@%d:%s", a.Kind, a.ActorID, a.RoleName, *a.ContentTypeID, a.ObjectID)
}

// ObjectRole ties a role definition to one object
type ObjectRole struct {
	ID               int64
	RoleDefinitionID int64
	ContentTypeID    int64
	ObjectID         string
}

// RoleUserAssignment binds a user to a role definition
type RoleUserAssignment struct {
	ID               int64
	RoleDefinitionID int64
	UserID           int64
	ObjectRoleID     *int64 // nil for system-wide assignments
	ContentTypeID    *int64
	ObjectID         string
}

// RoleTeamAssignment binds a team to a role definition
type RoleTeamAssignment struct {
	ID               int64
	RoleDefinitionID int64
	TeamID           int64
	ObjectRoleID     *int64 // nil for system-wide assignments
	ContentTypeID    *int64
	ObjectID         string
}
