package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PredictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Successful predictions by label",
		},
		[]string{"label"},
	)

	PredictionFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prediction_failures_total",
			Help: "Failed predictions by stage (validation, model)",
		},
		[]string{"stage"},
	)

	PredictionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "prediction_duration_seconds",
			Help:    "Time spent computing one prediction",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
	)

	ModelLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_loads_total",
			Help: "Model artifact loads by status",
		},
		[]string{"status"},
	)

	RemoteRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remote_requests_total",
			Help: "Remote store requests by operation and status",
		},
		[]string{"op", "status"},
	)

	DatasetRowsPublished = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dataset_rows_published",
			Help: "Rows written to each split file in the last run",
		},
		[]string{"file"},
	)
)

var registerOnce sync.Once

// Register adds every collector to reg. Only the first call has effect.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(
			PredictionsTotal,
			PredictionFailuresTotal,
			PredictionDuration,
			ModelLoadsTotal,
			RemoteRequestsTotal,
			DatasetRowsPublished,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Start serves /metrics on a side port.
func Start(port string) {
	Register(prometheus.DefaultRegisterer)
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	go http.ListenAndServe(":"+port, mux)
}
