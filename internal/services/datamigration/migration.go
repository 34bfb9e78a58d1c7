package datamigration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asakaida/rolemigrate/internal/repositories"
)

var (
	// ErrIrreversible is returned by Down when a migration has an operation without a reverse
	ErrIrreversible = errors.New("migration is irreversible")

	// ErrInvalidMigrations is returned when the migration list is malformed
	ErrInvalidMigrations = errors.New("invalid migrations")
)

// OperationFunc is one step of a data migration, run against repositories bound
// to the migration transaction
type OperationFunc func(ctx context.Context, repos *repositories.Repositories) error

// Noop does nothing. Use it as a reverse for operations that need no undo.
func Noop(ctx context.Context, repos *repositories.Repositories) error {
	return nil
}

// Operation is a named forward function with its optional reverse
type Operation struct {
	Name    string
	Forward OperationFunc
	Reverse OperationFunc // nil makes the migration irreversible
}

// Migration is an ordered list of operations applied as one unit
type Migration struct {
	Version    int
	Name       string
	Operations []Operation
}

// Reversible reports whether every operation has a reverse
func (m *Migration) Reversible() bool {
	for _, op := range m.Operations {
		if op.Reverse == nil {
			return false
		}
	}
	return true
}

// MigrationStatus describes whether a known migration has been applied
type MigrationStatus struct {
	Version   int
	Name      string
	Applied   bool
	AppliedAt time.Time // Zero when not applied
}

// Validate checks that versions are positive and strictly increasing and that
// every operation has a name and a forward function
func Validate(migrations []Migration) error {
	prev := 0
	for _, m := range migrations {
		if m.Version <= prev {
			return fmt.Errorf("%w: version %d (%s) must be greater than %d", ErrInvalidMigrations, m.Version, m.Name, prev)
		}
		if m.Name == "" {
			return fmt.Errorf("%w: version %d has no name", ErrInvalidMigrations, m.Version)
		}
		for i, op := range m.Operations {
			if op.Name == "" || op.Forward == nil {
				return fmt.Errorf("%w: operation %d of %s needs a name and a forward function", ErrInvalidMigrations, i, m.Name)
			}
		}
		prev = m.Version
	}
	return nil
}
