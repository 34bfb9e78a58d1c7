package datamigration

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/asakaida/rolemigrate/internal/infrastructure/logging"
	"github.com/asakaida/rolemigrate/internal/infrastructure/metrics"
	"github.com/asakaida/rolemigrate/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	lockQuery   = regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")
	existsQuery = regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM rolemigrate_data_migrations WHERE version = $1)")
	insertQuery = regexp.QuoteMeta("INSERT INTO rolemigrate_data_migrations (version, name) VALUES ($1, $2)")
	deleteQuery = regexp.QuoteMeta("DELETE FROM rolemigrate_data_migrations WHERE version = $1")
	listQuery   = regexp.QuoteMeta("SELECT version, applied_at FROM rolemigrate_data_migrations ORDER BY version")
)

// recorder builds operations that log their invocation
type recorder struct {
	calls []string
}

func (r *recorder) op(name string, err error) OperationFunc {
	return func(ctx context.Context, repos *repositories.Repositories) error {
		r.calls = append(r.calls, name)
		return err
	}
}

func nopRepos(db repositories.DBTX) *repositories.Repositories {
	return &repositories.Repositories{}
}

func expectPrologue(mock sqlmock.Sqlmock, applied ...int) {
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS rolemigrate_data_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	rows := sqlmock.NewRows([]string{"version", "applied_at"})
	for _, v := range applied {
		rows.AddRow(v, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	}
	mock.ExpectQuery(listQuery).WillReturnRows(rows)
}

func newTestRunner(t *testing.T, migrations []Migration) (*Runner, sqlmock.Sqlmock, *metrics.Collector) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	collector := metrics.NewCollector()
	runner, err := NewRunner(db, migrations, nopRepos, logging.Discard(), collector)
	require.NoError(t, err)
	return runner, mock, collector
}

func TestRunner_Up(t *testing.T) {
	rec := &recorder{}
	migrations := []Migration{
		{Version: 1, Name: "first", Operations: []Operation{{Name: "a", Forward: rec.op("a", nil), Reverse: Noop}}},
		{Version: 2, Name: "second", Operations: []Operation{
			{Name: "b", Forward: rec.op("b", nil), Reverse: Noop},
			{Name: "c", Forward: rec.op("c", nil)},
		}},
	}
	runner, mock, collector := newTestRunner(t, migrations)

	expectPrologue(mock, 1)
	mock.ExpectBegin()
	mock.ExpectExec(lockQuery).WithArgs(advisoryLockKey).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(existsQuery).WithArgs(2).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(insertQuery).WithArgs(2, "second").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	count, err := runner.Up(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{"b", "c"}, rec.calls)
	assert.Contains(t, collector.Snapshot().TotalDurationSeconds, "b")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunner_Up_FailureRollsBack(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("boom")
	migrations := []Migration{
		{Version: 1, Name: "first", Operations: []Operation{
			{Name: "a", Forward: rec.op("a", nil), Reverse: Noop},
			{Name: "b", Forward: rec.op("b", boom), Reverse: Noop},
			{Name: "c", Forward: rec.op("c", nil), Reverse: Noop},
		}},
		{Version: 2, Name: "second", Operations: []Operation{{Name: "d", Forward: rec.op("d", nil)}}},
	}
	runner, mock, collector := newTestRunner(t, migrations)

	expectPrologue(mock)
	mock.ExpectBegin()
	mock.ExpectExec(lockQuery).WithArgs(advisoryLockKey).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(existsQuery).WithArgs(1).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	count, err := runner.Up(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, count)
	assert.Equal(t, []string{"a", "b"}, rec.calls)
	assert.Equal(t, uint64(1), collector.Snapshot().Failures["b"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunner_Up_AppliedByAnotherRun(t *testing.T) {
	rec := &recorder{}
	migrations := []Migration{
		{Version: 1, Name: "first", Operations: []Operation{{Name: "a", Forward: rec.op("a", nil)}}},
	}
	runner, mock, _ := newTestRunner(t, migrations)

	expectPrologue(mock)
	mock.ExpectBegin()
	mock.ExpectExec(lockQuery).WithArgs(advisoryLockKey).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(existsQuery).WithArgs(1).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	count, err := runner.Up(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Empty(t, rec.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunner_Up_NothingPending(t *testing.T) {
	rec := &recorder{}
	migrations := []Migration{
		{Version: 1, Name: "first", Operations: []Operation{{Name: "a", Forward: rec.op("a", nil)}}},
	}
	runner, mock, _ := newTestRunner(t, migrations)
	expectPrologue(mock, 1)

	count, err := runner.Up(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Empty(t, rec.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunner_Down(t *testing.T) {
	rec := &recorder{}
	migrations := []Migration{
		{Version: 1, Name: "first", Operations: []Operation{{Name: "a", Forward: Noop, Reverse: rec.op("undo-a", nil)}}},
		{Version: 2, Name: "second", Operations: []Operation{
			{Name: "b", Forward: Noop, Reverse: rec.op("undo-b", nil)},
			{Name: "c", Forward: Noop, Reverse: rec.op("undo-c", nil)},
		}},
	}
	runner, mock, _ := newTestRunner(t, migrations)

	expectPrologue(mock, 1, 2)
	mock.ExpectBegin()
	mock.ExpectExec(lockQuery).WithArgs(advisoryLockKey).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(deleteQuery).WithArgs(2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	count, err := runner.Down(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{"undo-c", "undo-b"}, rec.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunner_Down_Irreversible(t *testing.T) {
	migrations := []Migration{
		{Version: 1, Name: "first", Operations: []Operation{{Name: "a", Forward: Noop}}},
	}
	runner, mock, _ := newTestRunner(t, migrations)
	expectPrologue(mock, 1)

	count, err := runner.Down(context.Background(), 1)
	assert.ErrorIs(t, err, ErrIrreversible)
	assert.Equal(t, 0, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunner_Status(t *testing.T) {
	migrations := []Migration{
		{Version: 1, Name: "first", Operations: []Operation{{Name: "a", Forward: Noop}}},
		{Version: 2, Name: "second", Operations: []Operation{{Name: "b", Forward: Noop}}},
	}
	runner, mock, _ := newTestRunner(t, migrations)
	expectPrologue(mock, 1)

	statuses, err := runner.Status(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].Applied)
	assert.False(t, statuses[0].AppliedAt.IsZero())
	assert.False(t, statuses[1].Applied)
	assert.True(t, statuses[1].AppliedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		migrations []Migration
		wantErr    bool
	}{
		{
			name:       "empty list",
			migrations: nil,
		},
		{
			name: "increasing versions",
			migrations: []Migration{
				{Version: 1, Name: "a", Operations: []Operation{{Name: "x", Forward: Noop}}},
				{Version: 3, Name: "b"},
			},
		},
		{
			name: "duplicate versions",
			migrations: []Migration{
				{Version: 1, Name: "a"},
				{Version: 1, Name: "b"},
			},
			wantErr: true,
		},
		{
			name:       "zero version",
			migrations: []Migration{{Version: 0, Name: "a"}},
			wantErr:    true,
		},
		{
			name:       "missing name",
			migrations: []Migration{{Version: 1}},
			wantErr:    true,
		},
		{
			name: "operation without forward",
			migrations: []Migration{
				{Version: 1, Name: "a", Operations: []Operation{{Name: "x"}}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.migrations)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidMigrations) {
				t.Errorf("Validate() error = %v, want ErrInvalidMigrations", err)
			}
		})
	}
}
