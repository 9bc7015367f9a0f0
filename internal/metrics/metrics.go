// Package metrics registers the Prometheus collectors of the map server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DatasetLoadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "choropleth_dataset_loads_total",
		Help: "Dataset loads by outcome",
	}, []string{"outcome"})
	DatasetLoadSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "choropleth_dataset_load_seconds",
		Help:    "Time to fetch and convert the topology document",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})
	DatasetRegions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "choropleth_dataset_regions",
		Help: "Number of regions in the loaded dataset",
	})
	ViewsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "choropleth_views_created_total",
		Help: "Map views (page sessions) created",
	})
	ViewsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "choropleth_views_active",
		Help: "Map views currently held in memory",
	})
	InteractionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "choropleth_interactions_total",
		Help: "Viewer interactions by kind",
	}, []string{"kind"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "choropleth_http_request_duration_ms",
		Help:    "HTTP request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"method"})
)

// Interaction kinds.
const (
	KindSelect  = "select"
	KindOpacity = "opacity"
	KindReset   = "reset"
	KindBorders = "borders"
	KindHover   = "hover"
)

func init() {
	prometheus.MustRegister(DatasetLoadsTotal)
	prometheus.MustRegister(DatasetLoadSeconds)
	prometheus.MustRegister(DatasetRegions)
	prometheus.MustRegister(ViewsCreatedTotal)
	prometheus.MustRegister(ViewsActive)
	prometheus.MustRegister(InteractionsTotal)
	prometheus.MustRegister(RequestDurationMs)
}

// Handler serves the registered metrics.
func Handler() http.Handler { return promhttp.Handler() }
