// Package metrics exposes the pipeline's Prometheus instrumentation. Every
// collector lives on a private registry so tests and embedded use never fight
// over the global default.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harrierhub/hareline/internal/store"
)

// Metrics is the collector set for one pipeline instance. A nil *Metrics is
// valid and records nothing, which keeps the CLI path free of a registry it
// never serves.
type Metrics struct {
	registry *prometheus.Registry

	scrapesTotal    *prometheus.CounterVec
	scrapeDuration  prometheus.Histogram
	eventsCreated   prometheus.Counter
	eventsUpdated   prometheus.Counter
	eventsCancelled prometheus.Counter
	alertsTotal     *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		scrapesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hareline_scrapes_total",
			Help: "Scrape runs by terminal status.",
		}, []string{"status"}),
		scrapeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hareline_scrape_duration_seconds",
			Help:    "Wall time of one scrape run, fetch through persistence.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		eventsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "hareline_events_created_total",
			Help: "Canonical events newly created by reconciliation.",
		}),
		eventsUpdated: factory.NewCounter(prometheus.CounterOpts{
			Name: "hareline_events_updated_total",
			Help: "Canonical events refreshed by reconciliation.",
		}),
		eventsCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "hareline_events_cancelled_total",
			Help: "Canonical events cancelled after vanishing from their source.",
		}),
		alertsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hareline_alerts_total",
			Help: "Alerts raised by the health analyzer, by type.",
		}, []string{"type"}),
	}
}

// Handler serves this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveScrape(status store.ScrapeStatus, d time.Duration) {
	if m == nil {
		return
	}
	m.scrapesTotal.WithLabelValues(string(status)).Inc()
	m.scrapeDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveMerge(created, updated, cancelled int) {
	if m == nil {
		return
	}
	m.eventsCreated.Add(float64(created))
	m.eventsUpdated.Add(float64(updated))
	m.eventsCancelled.Add(float64(cancelled))
}

func (m *Metrics) CountAlert(typ store.AlertType) {
	if m == nil {
		return
	}
	m.alertsTotal.WithLabelValues(string(typ)).Inc()
}
