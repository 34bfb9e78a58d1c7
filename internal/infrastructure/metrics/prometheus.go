package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusExporter exports the metrics of a run to Prometheus format.
// It uses its own registry so a run never mixes with process metrics.
type PrometheusExporter struct {
	collector *Collector
	registry  *prometheus.Registry

	records     *prometheus.GaugeVec
	failures    *prometheus.GaugeVec
	duration    *prometheus.GaugeVec
	cacheHits   prometheus.Gauge
	cacheMisses prometheus.Gauge
	lastRun     prometheus.Gauge
}

// NewPrometheusExporter creates a new Prometheus exporter.
func NewPrometheusExporter(collector *Collector) *PrometheusExporter {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &PrometheusExporter{
		collector: collector,
		registry:  registry,
		records: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rolemigrate_records",
				Help: "Records handled by a data migration operation in the last run",
			},
			[]string{"operation", "outcome"},
		),
		failures: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rolemigrate_operation_failures",
				Help: "Failed data migration operations in the last run",
			},
			[]string{"operation"},
		),
		duration: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rolemigrate_operation_duration_seconds",
				Help: "Duration of data migration operations in the last run",
			},
			[]string{"operation"},
		),
		cacheHits: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rolemigrate_lookup_cache_hits",
			Help: "Catalog lookups served from cache in the last run",
		}),
		cacheMisses: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rolemigrate_lookup_cache_misses",
			Help: "Catalog lookups that went to the database in the last run",
		}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rolemigrate_last_run_timestamp_seconds",
			Help: "Unix time at which the last run finished",
		}),
	}
}

// Registry returns the registry the exporter publishes to.
func (e *PrometheusExporter) Registry() *prometheus.Registry {
	return e.registry
}

// Update copies the collector state into the Prometheus metrics.
func (e *PrometheusExporter) Update() {
	snapshot := e.collector.Snapshot()

	for _, rc := range snapshot.Records {
		e.records.WithLabelValues(rc.Operation, string(rc.Outcome)).Set(float64(rc.Count))
	}
	for op, count := range snapshot.Failures {
		e.failures.WithLabelValues(op).Set(float64(count))
	}
	for op, seconds := range snapshot.TotalDurationSeconds {
		e.duration.WithLabelValues(op).Set(seconds)
	}
	e.cacheHits.Set(float64(snapshot.CacheHits))
	e.cacheMisses.Set(float64(snapshot.CacheMisses))
	e.lastRun.SetToCurrentTime()
}

// WriteTextfile updates the metrics and writes them for the node exporter textfile collector.
func (e *PrometheusExporter) WriteTextfile(path string) error {
	e.Update()
	if err := prometheus.WriteToTextfile(path, e.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
