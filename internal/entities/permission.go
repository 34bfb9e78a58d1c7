package entities

import "fmt"

// PermissionKey is the identity of a permission across the legacy table and
// the catalog. Catalog entries are deduplicated by this triple.
type PermissionKey struct {
	Codename      string
	ContentTypeID int64
	Name          string
}

// String returns a string representation of the key
// Format: codename@content_type_id (name)
func (k PermissionKey) String() string {
	return fmt.Sprintf("%s@%d (%s)", k.Codename, k.ContentTypeID, k.Name)
}

// Permission represents a legacy permission row
// Example: codename "view_namespace", name "Can view namespace"
type Permission struct {
	ID            int64
	Codename      string
	ContentTypeID int64
	Name          string
}

// Key returns the deduplication key of the permission
func (p *Permission) Key() PermissionKey {
	return PermissionKey{Codename: p.Codename, ContentTypeID: p.ContentTypeID, Name: p.Name}
}

// DABPermission represents a permission catalog entry
type DABPermission struct {
	ID            int64
	Codename      string
	ContentTypeID int64
	Name          string
}

// Key returns the deduplication key of the catalog entry
func (p *DABPermission) Key() PermissionKey {
	return PermissionKey{Codename: p.Codename, ContentTypeID: p.ContentTypeID, Name: p.Name}
}

// String returns a string representation of the catalog entry
func (p *DABPermission) String() string {
	return p.Key().String()
}

// Validate checks if the catalog entry is valid
func (p *DABPermission) Validate() error {
	if p.Codename == "" {
		return fmt.Errorf("codename is required")
	}
	if p.ContentTypeID <= 0 {
		return fmt.Errorf("content type is required")
	}
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}
