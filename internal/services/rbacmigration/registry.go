package rbacmigration

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultActions are the permissions every model gets unless it overrides them
var DefaultActions = []string{"add", "change", "delete", "view"}

// CustomPermission is an extra permission declared by a model
type CustomPermission struct {
	Codename string `yaml:"codename"`
	Name     string `yaml:"name"`
}

// ModelSpec describes the permissions of one model
type ModelSpec struct {
	Name        string             `yaml:"name"`
	VerboseName string             `yaml:"verbose_name"` // Defaults to Name
	Actions     []string           `yaml:"actions"`      // Defaults to DefaultActions
	Permissions []CustomPermission `yaml:"permissions"`
}

// Registry maps app labels to their models
type Registry struct {
	Apps map[string][]ModelSpec `yaml:"apps"`
}

// DefaultRegistry returns the built-in registry
func DefaultRegistry() *Registry {
	return &Registry{
		Apps: map[string][]ModelSpec{
			"galaxy": {
				{
					Name: "organization",
					Permissions: []CustomPermission{
						{Codename: "member_organization", Name: "User is a member of this organization"},
					},
				},
				{
					Name: "team",
					Permissions: []CustomPermission{
						{Codename: "member_team", Name: "Has all permissions granted to this team"},
					},
				},
				{Name: "namespace"},
			},
		},
	}
}

// LoadRegistry reads a registry from a YAML file
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model registry: %w", err)
	}
	return ParseRegistry(data)
}

// ParseRegistry parses a YAML registry document
//
//	apps:
//	  galaxy:
//	    - name: namespace
//	      verbose_name: namespace
//	      permissions:
//	        - codename: upload_to_namespace
//	          name: Can upload to namespace
func ParseRegistry(data []byte) (*Registry, error) {
	var r Registry
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse model registry: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate checks that every model and custom permission is named
func (r *Registry) Validate() error {
	if len(r.Apps) == 0 {
		return fmt.Errorf("model registry declares no apps")
	}
	for app, models := range r.Apps {
		seen := make(map[string]bool, len(models))
		for _, m := range models {
			if m.Name == "" {
				return fmt.Errorf("app %s: model name is required", app)
			}
			if seen[m.Name] {
				return fmt.Errorf("app %s: duplicate model %s", app, m.Name)
			}
			seen[m.Name] = true
			for _, p := range m.Permissions {
				if p.Codename == "" || p.Name == "" {
					return fmt.Errorf("app %s model %s: custom permission needs codename and name", app, m.Name)
				}
			}
		}
	}
	return nil
}

// Models returns the models registered for an app label
func (r *Registry) Models(appLabel string) []ModelSpec {
	return r.Apps[appLabel]
}

// permissionSpec is a (codename, name) pair generated for a model
type permissionSpec struct {
	codename string
	name     string
}

// generate returns the default then the custom permissions of the model
func (m ModelSpec) generate() []permissionSpec {
	verbose := m.VerboseName
	if verbose == "" {
		verbose = m.Name
	}
	actions := m.Actions
	if actions == nil {
		actions = DefaultActions
	}

	specs := make([]permissionSpec, 0, len(actions)+len(m.Permissions))
	for _, action := range actions {
		specs = append(specs, permissionSpec{
			codename: fmt.Sprintf("%s_%s", action, m.Name),
			name:     fmt.Sprintf("Can %s %s", action, verbose),
		})
	}
	for _, p := range m.Permissions {
		specs = append(specs, permissionSpec{codename: p.Codename, name: p.Name})
	}
	return specs
}
