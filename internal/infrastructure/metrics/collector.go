package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Outcome classifies what an operation did to one record
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeDeleted Outcome = "deleted"
	OutcomeSkipped Outcome = "skipped"
)

// Collector collects and aggregates metrics of a migration run.
// A nil *Collector is valid and records nothing.
type Collector struct {
	records   sync.Map // map[recordKey]*uint64
	durations sync.Map // map[string]*durationValue - operation -> total duration in seconds
	failures  sync.Map // map[string]*uint64 - operation -> failure count

	cacheHits   uint64
	cacheMisses uint64
}

type recordKey struct {
	operation string
	outcome   Outcome
}

// durationValue holds duration with mutex for thread-safe updates.
type durationValue struct {
	mu           sync.Mutex
	totalSeconds float64
}

// RecordCount is one row of a Snapshot
type RecordCount struct {
	Operation string
	Outcome   Outcome
	Count     uint64
}

// Snapshot holds the aggregated metrics of a run
type Snapshot struct {
	Records              []RecordCount // Sorted by operation then outcome
	Failures             map[string]uint64
	TotalDurationSeconds map[string]float64
	CacheHits            uint64
	CacheMisses          uint64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Record counts one record handled by an operation.
func (c *Collector) Record(operation string, outcome Outcome) {
	c.RecordN(operation, outcome, 1)
}

// RecordN counts n records handled by an operation.
func (c *Collector) RecordN(operation string, outcome Outcome, n uint64) {
	if c == nil || n == 0 {
		return
	}
	val, _ := c.records.LoadOrStore(recordKey{operation: operation, outcome: outcome}, new(uint64))
	atomic.AddUint64(val.(*uint64), n)
}

// RecordFailure counts a failed operation.
func (c *Collector) RecordFailure(operation string) {
	if c == nil {
		return
	}
	val, _ := c.failures.LoadOrStore(operation, new(uint64))
	atomic.AddUint64(val.(*uint64), 1)
}

// RecordDuration records the duration of an operation in seconds.
func (c *Collector) RecordDuration(operation string, durationSeconds float64) {
	if c == nil {
		return
	}
	val, _ := c.durations.LoadOrStore(operation, &durationValue{})
	dv := val.(*durationValue)

	dv.mu.Lock()
	dv.totalSeconds += durationSeconds
	dv.mu.Unlock()
}

// RecordCacheHit records a lookup served from cache.
func (c *Collector) RecordCacheHit() {
	if c != nil {
		atomic.AddUint64(&c.cacheHits, 1)
	}
}

// RecordCacheMiss records a lookup that went to the database.
func (c *Collector) RecordCacheMiss() {
	if c != nil {
		atomic.AddUint64(&c.cacheMisses, 1)
	}
}

// Count returns the number of records of one operation and outcome.
func (c *Collector) Count(operation string, outcome Outcome) uint64 {
	if c == nil {
		return 0
	}
	val, ok := c.records.Load(recordKey{operation: operation, outcome: outcome})
	if !ok {
		return 0
	}
	return atomic.LoadUint64(val.(*uint64))
}

// Snapshot returns the current metrics.
func (c *Collector) Snapshot() *Snapshot {
	result := &Snapshot{
		Failures:             make(map[string]uint64),
		TotalDurationSeconds: make(map[string]float64),
	}
	if c == nil {
		return result
	}

	c.records.Range(func(key, value interface{}) bool {
		k := key.(recordKey)
		result.Records = append(result.Records, RecordCount{
			Operation: k.operation,
			Outcome:   k.outcome,
			Count:     atomic.LoadUint64(value.(*uint64)),
		})
		return true
	})
	sort.Slice(result.Records, func(i, j int) bool {
		if result.Records[i].Operation != result.Records[j].Operation {
			return result.Records[i].Operation < result.Records[j].Operation
		}
		return result.Records[i].Outcome < result.Records[j].Outcome
	})

	c.failures.Range(func(key, value interface{}) bool {
		result.Failures[key.(string)] = atomic.LoadUint64(value.(*uint64))
		return true
	})

	c.durations.Range(func(key, value interface{}) bool {
		dv := value.(*durationValue)
		dv.mu.Lock()
		result.TotalDurationSeconds[key.(string)] = dv.totalSeconds
		dv.mu.Unlock()
		return true
	})

	result.CacheHits = atomic.LoadUint64(&c.cacheHits)
	result.CacheMisses = atomic.LoadUint64(&c.cacheMisses)

	return result
}
