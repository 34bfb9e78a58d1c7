package entities

import "fmt"

// LegacyRole represents a role of the legacy model
type LegacyRole struct {
	ID          int64
	Name        string
	Description string
}

// SplitName returns the name of the clone of this role for a model
// Format: name_model
func (r *LegacyRole) SplitName(model string) string {
	return fmt.Sprintf("%s_%s", r.Name, model)
}

// Validate checks if the legacy role is valid
func (r *LegacyRole) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("role name is required")
	}
	return nil
}

// RoleDefinition is a named, reusable bundle of catalog permissions.
// A role definition without permissions is invalid.
type RoleDefinition struct {
	ID          int64
	Name        string
	Description string
	Managed     bool
}

// String returns a string representation of the role definition
func (r *RoleDefinition) String() string {
	return fmt.Sprintf("RoleDefinition(%d, %s)", r.ID, r.Name)
}

// Team is the actor a legacy group maps to
type Team struct {
	ID      int64
	Name    string
	GroupID int64
}
