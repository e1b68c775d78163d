// Package metrics holds the Prometheus collectors for exports and imports.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "zbxport"

// Result label values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	// Labels: result (success, error)
	exportTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "export_total",
		Help:      "Total configuration exports by result",
	}, []string{"result"})

	// Labels: result, from_version (declared version of the imported document)
	importTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "import_total",
		Help:      "Total configuration imports by result and source version",
	}, []string{"result", "from_version"})

	// Labels: operation (export, import)
	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Duration of export and import operations in seconds",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"operation"})

	conversionSteps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "conversion_steps_total",
		Help:      "Total version conversion steps applied during import",
	}, []string{"from", "to"})
)

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}

// ObserveExport records one finished export.
func ObserveExport(started time.Time, err error) {
	exportTotal.WithLabelValues(result(err)).Inc()
	operationDuration.WithLabelValues("export").Observe(time.Since(started).Seconds())
}

// ObserveImport records one finished import of a document declared as
// version from. from is "unknown" when the version could not be read.
func ObserveImport(started time.Time, from string, err error) {
	if from == "" {
		from = "unknown"
	}
	importTotal.WithLabelValues(result(err), from).Inc()
	operationDuration.WithLabelValues("import").Observe(time.Since(started).Seconds())
}

// ObserveConversion records one applied conversion step.
func ObserveConversion(from, to string) {
	conversionSteps.WithLabelValues(from, to).Inc()
}
