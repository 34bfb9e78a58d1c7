package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestCollector_Record(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Record("create_dab_permissions", OutcomeCreated)
		}()
	}
	wg.Wait()

	c.RecordN("copy_roles_to_role_definitions", OutcomeDeleted, 3)
	c.RecordN("copy_roles_to_role_definitions", OutcomeSkipped, 0)

	tests := []struct {
		operation string
		outcome   Outcome
		want      uint64
	}{
		{"create_dab_permissions", OutcomeCreated, 10},
		{"copy_roles_to_role_definitions", OutcomeDeleted, 3},
		{"copy_roles_to_role_definitions", OutcomeSkipped, 0},
		{"migrate_role_assignments", OutcomeCreated, 0},
	}
	for _, tt := range tests {
		if got := c.Count(tt.operation, tt.outcome); got != tt.want {
			t.Errorf("Count(%s, %s) = %d, want %d", tt.operation, tt.outcome, got, tt.want)
		}
	}
}

func TestCollector_Snapshot(t *testing.T) {
	c := NewCollector()
	c.Record("split_legacy_roles", OutcomeUpdated)
	c.Record("split_legacy_roles", OutcomeCreated)
	c.Record("create_dab_permissions", OutcomeCreated)
	c.RecordDuration("split_legacy_roles", 0.5)
	c.RecordDuration("split_legacy_roles", 0.25)
	c.RecordFailure("migrate_role_assignments")
	c.RecordCacheHit()
	c.RecordCacheHit()
	c.RecordCacheMiss()

	s := c.Snapshot()

	want := []RecordCount{
		{Operation: "create_dab_permissions", Outcome: OutcomeCreated, Count: 1},
		{Operation: "split_legacy_roles", Outcome: OutcomeCreated, Count: 1},
		{Operation: "split_legacy_roles", Outcome: OutcomeUpdated, Count: 1},
	}
	if len(s.Records) != len(want) {
		t.Fatalf("Snapshot().Records = %v, want %v", s.Records, want)
	}
	for i := range want {
		if s.Records[i] != want[i] {
			t.Errorf("Snapshot().Records[%d] = %v, want %v", i, s.Records[i], want[i])
		}
	}
	if got := s.TotalDurationSeconds["split_legacy_roles"]; got != 0.75 {
		t.Errorf("TotalDurationSeconds = %v, want 0.75", got)
	}
	if got := s.Failures["migrate_role_assignments"]; got != 1 {
		t.Errorf("Failures = %v, want 1", got)
	}
	if s.CacheHits != 2 || s.CacheMisses != 1 {
		t.Errorf("cache hits/misses = %d/%d, want 2/1", s.CacheHits, s.CacheMisses)
	}
}

func TestCollector_Nil(t *testing.T) {
	var c *Collector
	c.Record("op", OutcomeCreated)
	c.RecordDuration("op", 1)
	c.RecordFailure("op")
	c.RecordCacheHit()
	c.RecordCacheMiss()

	if got := c.Count("op", OutcomeCreated); got != 0 {
		t.Errorf("Count() on nil collector = %d, want 0", got)
	}
	if s := c.Snapshot(); len(s.Records) != 0 {
		t.Errorf("Snapshot() on nil collector = %v, want empty", s.Records)
	}
}

func TestPrometheusExporter_WriteTextfile(t *testing.T) {
	c := NewCollector()
	c.RecordN("create_dab_permissions", OutcomeCreated, 12)
	c.RecordDuration("create_dab_permissions", 0.1)

	e := NewPrometheusExporter(c)
	path := filepath.Join(t.TempDir(), "rolemigrate.prom")
	if err := e.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	out := string(data)
	for _, want := range []string{
		`rolemigrate_records{operation="create_dab_permissions",outcome="created"} 12`,
		`rolemigrate_operation_duration_seconds{operation="create_dab_permissions"} 0.1`,
		"rolemigrate_last_run_timestamp_seconds",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("textfile missing %q\n%s", want, out)
		}
	}
}

func TestPrometheusExporter_WriteTextfile_BadPath(t *testing.T) {
	e := NewPrometheusExporter(NewCollector())
	if err := e.WriteTextfile(filepath.Join(t.TempDir(), "missing", "out.prom")); err == nil {
		t.Error("WriteTextfile() into a missing directory should return error")
	}
}
