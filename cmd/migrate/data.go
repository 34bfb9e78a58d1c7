package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/asakaida/rolemigrate/internal/infrastructure/metrics"
	"github.com/asakaida/rolemigrate/internal/repositories/postgres"
	"github.com/asakaida/rolemigrate/internal/services/datamigration"
	"github.com/asakaida/rolemigrate/internal/services/rbacmigration"
	"github.com/spf13/cobra"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Manage data migrations",
	Long:  `Apply, revert and inspect the role data migrations.`,
}

var dataUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending data migrations",
	Run:   runDataUp,
}

var dataDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Revert data migrations",
	Long: `Revert the specified number of data migrations (default: 1).
Reverting deletes every permission catalog entry and role definition,
including ones that existed before the migration.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runDataDown,
}

var dataStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show data migration status",
	Run:   runDataStatus,
}

func init() {
	dataCmd.AddCommand(dataUpCmd)
	dataCmd.AddCommand(dataDownCmd)
	dataCmd.AddCommand(dataStatusCmd)
}

func newRunner() *datamigration.Runner {
	mode, err := rbacmigration.ParseSplitMode(cfg.Migration.SplitMode)
	if err != nil {
		logger.Fatalf("Invalid split mode: %v", err)
	}

	var registry *rbacmigration.Registry
	if cfg.Migration.ModelRegistry != "" {
		registry, err = rbacmigration.LoadRegistry(cfg.Migration.ModelRegistry)
		if err != nil {
			logger.Fatalf("Failed to load model registry: %v", err)
		}
		logger.WithField("path", cfg.Migration.ModelRegistry).Info("Using model registry file")
	}

	migrations := rbacmigration.Migrations(rbacmigration.Options{
		AppLabel:        cfg.Migration.AppLabel,
		SplitMode:       mode,
		Registry:        registry,
		LookupCacheSize: cfg.Migration.LookupCacheSize,
		Logger:          logger,
		Metrics:         collector,
	})

	runner, err := datamigration.NewRunner(pg.DB, migrations, postgres.NewRepositories, logger, collector)
	if err != nil {
		logger.Fatalf("Failed to create data migration runner: %v", err)
	}
	return runner
}

// writeMetrics exports the run metrics when a textfile path is configured
func writeMetrics() {
	if cfg.Metrics.TextfilePath == "" {
		return
	}
	if err := metrics.NewPrometheusExporter(collector).WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
		logger.WithError(err).Warn("Failed to export metrics")
		return
	}
	logger.WithField("path", cfg.Metrics.TextfilePath).Debug("Metrics exported")
}

func runDataUp(cmd *cobra.Command, args []string) {
	count, err := newRunner().Up(context.Background())
	writeMetrics()
	if err != nil {
		logger.Fatalf("Data migration up failed: %v", err)
	}

	if count == 0 {
		logger.Info("No data migrations to apply")
	} else {
		logger.Infof("Data migration up completed successfully (%d migration(s))", count)
	}
}

func runDataDown(cmd *cobra.Command, args []string) {
	steps := 1
	if len(args) > 0 {
		steps = parseVersion(args[0])
	}

	count, err := newRunner().Down(context.Background(), steps)
	writeMetrics()
	if err != nil {
		logger.Fatalf("Data migration down failed: %v", err)
	}

	if count == 0 {
		logger.Info("No data migrations to revert")
	} else {
		logger.Infof("Data migration down completed successfully (reverted %d migration(s))", count)
	}
}

func runDataStatus(cmd *cobra.Command, args []string) {
	statuses, err := newRunner().Status(context.Background())
	if err != nil {
		logger.Fatalf("Failed to get data migration status: %v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tAPPLIED AT")
	for _, s := range statuses {
		applied := "pending"
		if s.Applied {
			applied = s.AppliedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", s.Version, s.Name, applied)
	}
	w.Flush()
}
