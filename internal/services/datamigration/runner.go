package datamigration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/asakaida/rolemigrate/internal/infrastructure/metrics"
	"github.com/asakaida/rolemigrate/internal/repositories"
	"github.com/sirupsen/logrus"
)

// advisoryLockKey serializes concurrent runs against the same database
const advisoryLockKey int64 = 0x726f6c656d6967 // "rolemig"

// RepositoriesFactory builds repositories over a transaction
type RepositoriesFactory func(db repositories.DBTX) *repositories.Repositories

// Runner applies and reverts data migrations, recording them in
// rolemigrate_data_migrations
type Runner struct {
	db         *sql.DB
	migrations []Migration
	newRepos   RepositoriesFactory
	logger     *logrus.Logger
	metrics    *metrics.Collector
}

// NewRunner creates a runner. The migrations are validated.
func NewRunner(db *sql.DB, migrations []Migration, newRepos RepositoriesFactory, logger *logrus.Logger, collector *metrics.Collector) (*Runner, error) {
	if err := Validate(migrations); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Runner{
		db:         db,
		migrations: migrations,
		newRepos:   newRepos,
		logger:     logger,
		metrics:    collector,
	}, nil
}

func (r *Runner) ensureTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS rolemigrate_data_migrations (
			version INT PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func (r *Runner) applied(ctx context.Context) (map[int]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT version, applied_at FROM rolemigrate_data_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var at time.Time
		if err := rows.Scan(&version, &at); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = at
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}
	return applied, nil
}

// Up applies every pending migration in version order and returns how many ran.
// It stops at the first failure; the failing migration leaves no trace.
func (r *Runner) Up(ctx context.Context) (int, error) {
	if err := r.ensureTable(ctx); err != nil {
		return 0, err
	}
	applied, err := r.applied(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := range r.migrations {
		m := &r.migrations[i]
		if _, ok := applied[m.Version]; ok {
			continue
		}
		ran, err := r.apply(ctx, m)
		if err != nil {
			return count, err
		}
		if ran {
			count++
		}
	}

	r.logger.WithField("applied", count).Info("Data migrations up to date")
	return count, nil
}

// Down reverts the latest steps applied migrations, newest first.
// steps <= 0 reverts nothing.
func (r *Runner) Down(ctx context.Context, steps int) (int, error) {
	if err := r.ensureTable(ctx); err != nil {
		return 0, err
	}
	applied, err := r.applied(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := len(r.migrations) - 1; i >= 0 && count < steps; i-- {
		m := &r.migrations[i]
		if _, ok := applied[m.Version]; !ok {
			continue
		}
		if !m.Reversible() {
			return count, fmt.Errorf("%w: %d %s", ErrIrreversible, m.Version, m.Name)
		}
		if err := r.revert(ctx, m); err != nil {
			return count, err
		}
		count++
	}

	r.logger.WithField("reverted", count).Info("Data migrations reverted")
	return count, nil
}

// Status returns every known migration with its applied state
func (r *Runner) Status(ctx context.Context) ([]MigrationStatus, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := r.applied(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]MigrationStatus, 0, len(r.migrations))
	for _, m := range r.migrations {
		at, ok := applied[m.Version]
		statuses = append(statuses, MigrationStatus{
			Version:   m.Version,
			Name:      m.Name,
			Applied:   ok,
			AppliedAt: at,
		})
	}
	return statuses, nil
}

// begin starts a transaction holding the migration lock
func (r *Runner) begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryLockKey); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	return tx, nil
}

func isRecorded(ctx context.Context, tx *sql.Tx, version int) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM rolemigrate_data_migrations WHERE version = $1)", version,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check migration %d: %w", version, err)
	}
	return exists, nil
}

// apply runs one migration. It returns false when another run applied it
// while this one waited for the lock.
func (r *Runner) apply(ctx context.Context, m *Migration) (bool, error) {
	log := r.logger.WithFields(logrus.Fields{"migration": m.Name, "version": m.Version})
	log.Info("Applying data migration")

	tx, err := r.begin(ctx)
	if err != nil {
		return false, err
	}

	done, err := isRecorded(ctx, tx, m.Version)
	if err != nil {
		tx.Rollback()
		return false, err
	}
	if done {
		tx.Rollback()
		log.Info("Data migration already applied by another run")
		return false, nil
	}

	repos := r.newRepos(tx)
	for _, op := range m.Operations {
		if err := r.run(ctx, log, op.Name, op.Forward, repos); err != nil {
			tx.Rollback()
			return false, fmt.Errorf("migration %d %s: %w", m.Version, m.Name, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO rolemigrate_data_migrations (version, name) VALUES ($1, $2)",
		m.Version, m.Name,
	); err != nil {
		tx.Rollback()
		return false, fmt.Errorf("failed to record migration %d: %w", m.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
	}

	log.Info("Data migration applied")
	return true, nil
}

func (r *Runner) revert(ctx context.Context, m *Migration) error {
	log := r.logger.WithFields(logrus.Fields{"migration": m.Name, "version": m.Version})
	log.Info("Reverting data migration")

	tx, err := r.begin(ctx)
	if err != nil {
		return err
	}

	repos := r.newRepos(tx)
	for i := len(m.Operations) - 1; i >= 0; i-- {
		op := m.Operations[i]
		if err := r.run(ctx, log, op.Name, op.Reverse, repos); err != nil {
			tx.Rollback()
			return fmt.Errorf("reverting migration %d %s: %w", m.Version, m.Name, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM rolemigrate_data_migrations WHERE version = $1", m.Version,
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to unrecord migration %d: %w", m.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit revert of migration %d: %w", m.Version, err)
	}

	log.Info("Data migration reverted")
	return nil
}

func (r *Runner) run(ctx context.Context, log *logrus.Entry, name string, fn OperationFunc, repos *repositories.Repositories) error {
	start := time.Now()
	err := fn(ctx, repos)
	r.metrics.RecordDuration(name, time.Since(start).Seconds())

	if err != nil {
		r.metrics.RecordFailure(name)
		log.WithField("operation", name).WithError(err).Error("Operation failed")
		return fmt.Errorf("operation %s: %w", name, err)
	}
	log.WithField("operation", name).Debug("Operation finished")
	return nil
}
