package main

import (
	"os"

	"github.com/asakaida/rolemigrate/internal/infrastructure/config"
	"github.com/asakaida/rolemigrate/internal/infrastructure/database"
	"github.com/asakaida/rolemigrate/internal/infrastructure/logging"
	"github.com/asakaida/rolemigrate/internal/infrastructure/metrics"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	envFlag   string
	cfg       *config.Config
	pg        *database.Postgres
	logger    = logrus.New()
	collector = metrics.NewCollector()
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Role migration tool for galaxy_ng databases",
	Long: `Role migration tool for galaxy_ng databases.
Manages the PostgreSQL schema with golang-migrate and moves legacy roles,
permissions and role bindings to role definitions and assignments.`,
	PersistentPreRun:  setup,
	PersistentPostRun: teardown,
}

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Apply schema migrations, then data migrations",
	Long:  `Apply every pending schema migration, then every pending data migration.`,
	Run:   runAll,
}

func init() {
	// Add global --env flag to all commands
	rootCmd.PersistentFlags().StringVarP(&envFlag, "env", "e", "dev", "Environment to use (dev, test, prod)")

	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(dataCmd)
	rootCmd.AddCommand(allCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.WithError(err).Error("Failed to execute command")
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) {
	// Initialize configuration from .env.{env} file
	if err := config.InitConfig(envFlag); err != nil {
		logger.Fatalf("Failed to initialize config: %v", err)
	}

	var err error
	cfg, err = config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	logger, err = logging.NewLogger(&cfg.Log)
	if err != nil {
		logrus.Fatalf("Failed to create logger: %v", err)
	}
	logger.WithField("env", envFlag).Info("Using environment")

	// Connect to database
	pg, err = database.NewPostgres(&cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	logger.WithFields(logrus.Fields{
		"user":     cfg.Database.User,
		"host":     cfg.Database.Host,
		"port":     cfg.Database.Port,
		"database": cfg.Database.Database,
	}).Info("Connected to database")
}

func teardown(cmd *cobra.Command, args []string) {
	if pg != nil {
		if err := pg.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close database")
		}
	}
}

func runAll(cmd *cobra.Command, args []string) {
	runSchemaUp(cmd, args)
	runDataUp(cmd, args)
}
