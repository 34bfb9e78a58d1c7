package entities

import "fmt"

// ContentType identifies a model of the host application
// Example: galaxy.namespace
type ContentType struct {
	ID       int64
	AppLabel string // Application namespace (e.g., "galaxy")
	Model    string // Lowercase model name (e.g., "namespace")
}

// String returns a string representation of the content type
// Format: app_label.model
func (c *ContentType) String() string {
	return fmt.Sprintf("%s.%s", c.AppLabel, c.Model)
}

// Validate checks if the content type is valid
func (c *ContentType) Validate() error {
	if c.AppLabel == "" {
		return fmt.Errorf("app label is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	return nil
}
