package main

import (
	"errors"
	"strconv"

	"github.com/asakaida/rolemigrate/internal/infrastructure/database"
	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Manage schema migrations",
	Long:  `Manage the PostgreSQL schema migrations embedded in the binary.`,
}

var schemaUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending schema migrations",
	Run:   runSchemaUp,
}

var schemaDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Rollback schema migrations",
	Long:  `Rollback the specified number of schema migrations (default: 1).`,
	Args:  cobra.MaximumNArgs(1),
	Run:   runSchemaDown,
}

var schemaGotoCmd = &cobra.Command{
	Use:   "goto <version>",
	Short: "Migrate the schema to a specific version",
	Args:  cobra.ExactArgs(1),
	Run:   runSchemaGoto,
}

var schemaVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show current schema version",
	Run:   runSchemaVersion,
}

var schemaForceCmd = &cobra.Command{
	Use:   "force <version>",
	Short: "Force set schema version (use with caution)",
	Long:  `Force set the schema version without running migrations. Use with caution.`,
	Args:  cobra.ExactArgs(1),
	Run:   runSchemaForce,
}

func init() {
	schemaCmd.AddCommand(schemaUpCmd)
	schemaCmd.AddCommand(schemaDownCmd)
	schemaCmd.AddCommand(schemaGotoCmd)
	schemaCmd.AddCommand(schemaVersionCmd)
	schemaCmd.AddCommand(schemaForceCmd)
}

func newSchemaMigrate() *migrate.Migrate {
	m, err := database.NewSchemaMigrate(pg.DB)
	if err != nil {
		logger.Fatalf("Failed to create migrate instance: %v", err)
	}
	return m
}

func parseVersion(arg string) int {
	v, err := strconv.Atoi(arg)
	if err != nil || v < 0 {
		logger.Fatalf("Invalid version %q", arg)
	}
	return v
}

func runSchemaUp(cmd *cobra.Command, args []string) {
	m := newSchemaMigrate()

	err := m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info("No schema migrations to apply")
	case err != nil:
		logger.Fatalf("Schema migration up failed: %v", err)
	default:
		logger.Info("Schema migration up completed successfully")
	}
}

func runSchemaDown(cmd *cobra.Command, args []string) {
	steps := 1 // Default: rollback 1 migration
	if len(args) > 0 {
		steps = parseVersion(args[0])
	}

	m := newSchemaMigrate()

	err := m.Steps(-steps)
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info("No schema migrations to rollback")
	case err != nil:
		logger.Fatalf("Schema migration down failed: %v", err)
	default:
		logger.Infof("Schema migration down completed successfully (rolled back %d migration(s))", steps)
	}
}

func runSchemaGoto(cmd *cobra.Command, args []string) {
	version := uint(parseVersion(args[0]))

	m := newSchemaMigrate()

	err := m.Migrate(version)
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Infof("Already at schema version %d", version)
	case err != nil:
		logger.Fatalf("Schema migration goto failed: %v", err)
	default:
		logger.Infof("Schema migration goto %d completed successfully", version)
	}
}

func runSchemaVersion(cmd *cobra.Command, args []string) {
	m := newSchemaMigrate()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		logger.Info("Current schema version: No migrations applied yet")
		return
	}
	if err != nil {
		logger.Fatalf("Failed to get version: %v", err)
	}

	if dirty {
		logger.Warnf("Current schema version: %d (dirty - migration may have failed)", version)
	} else {
		logger.Infof("Current schema version: %d", version)
	}
}

func runSchemaForce(cmd *cobra.Command, args []string) {
	version := parseVersion(args[0])

	m := newSchemaMigrate()

	if err := m.Force(version); err != nil {
		logger.Fatalf("Schema migration force failed: %v", err)
	}

	logger.Infof("Schema migration forced to version %d", version)
}
