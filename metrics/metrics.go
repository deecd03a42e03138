package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ValidationRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geomcheck",
		Name:      "validation_runs_total",
		Help:      "Validation runs by outcome (errors, written, cancelled, failed).",
	}, []string{"outcome"})
	FeaturesValidated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "geomcheck",
		Name:      "features_validated_total",
		Help:      "Total non-empty geometries passed to the validator.",
	})
	GeometryErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "geomcheck",
		Name:      "geometry_errors_total",
		Help:      "Total geometry errors found.",
	})
	ErrorPointsWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "geomcheck",
		Name:      "error_points_written_total",
		Help:      "Total error points written to output layers.",
	})
	TableRowsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "geomcheck",
		Name:      "table_rows_skipped_total",
		Help:      "Total table rows skipped because X or Y could not be parsed.",
	})
)

var initOnce sync.Once

// Init registers collectors with the default registry. Safe to call more
// than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(ValidationRuns, FeaturesValidated, GeometryErrors, ErrorPointsWritten, TableRowsSkipped)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
