// Package metrics holds the Prometheus collectors for statement imports and
// classification. Collectors live on a private registry so tests and CLI runs
// do not share global state. A nil *Metrics is valid and records nothing.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "statement_ledger"

// Metrics groups every collector the application records.
type Metrics struct {
	registry *prometheus.Registry

	imports         *prometheus.CounterVec
	rowsImported    *prometheus.CounterVec
	rowsFailed      *prometheus.CounterVec
	classifications *prometheus.CounterVec
	remapUpdates    *prometheus.CounterVec
	storeErrors     *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "Statement imports by file format, extraction strategy and outcome.",
		}, []string{"format", "strategy", "outcome"}),
		rowsImported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_imported_total",
			Help:      "Transactions stored by imports.",
		}, []string{"bank"}),
		rowsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_failed_total",
			Help:      "Statement rows skipped because they could not be parsed.",
		}, []string{"bank"}),
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Classification attempts by the source that decided them.",
		}, []string{"source"}),
		remapUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remap_updates_total",
			Help:      "Transactions changed by remap operations.",
		}, []string{"operation"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Store failures by operation.",
		}, []string{"operation"}),
	}

	m.registry.MustRegister(
		m.imports,
		m.rowsImported,
		m.rowsFailed,
		m.classifications,
		m.remapUpdates,
		m.storeErrors,
		collectors.NewGoCollector(),
	)

	return m
}

// Registry exposes the registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveImport records one import attempt.
func (m *Metrics) ObserveImport(format, strategy, outcome, bank string, rows, failed int) {
	if m == nil {
		return
	}
	m.imports.WithLabelValues(format, strategy, outcome).Inc()
	if rows > 0 {
		m.rowsImported.WithLabelValues(bank).Add(float64(rows))
	}
	if failed > 0 {
		m.rowsFailed.WithLabelValues(bank).Add(float64(failed))
	}
}

// ObserveClassification records which source decided a classification.
func (m *Metrics) ObserveClassification(source string) {
	if m == nil {
		return
	}
	m.classifications.WithLabelValues(source).Inc()
}

// ObserveRemap records how many transactions a remap operation changed.
func (m *Metrics) ObserveRemap(operation string, updated int) {
	if m == nil {
		return
	}
	m.remapUpdates.WithLabelValues(operation).Add(float64(updated))
}

// ObserveStoreError records a failed store call.
func (m *Metrics) ObserveStoreError(operation string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(operation).Inc()
}

// WriteTextfile writes the current values in the node-exporter textfile
// format. An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
