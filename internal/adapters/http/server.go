// Package http exposes run results over HTTP for the serve command: the
// latest result tree as JSON, plus Prometheus counters. Rendering and
// dashboards are external concerns; this surface only republishes the
// structured tree the core emits.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dverity/docdrill/pkg/domain"
)

// Collector stores the latest run and keeps the metrics up to date.
type Collector struct {
	mu     sync.RWMutex
	latest *domain.RunResult

	actions   *prometheus.CounterVec
	instances *prometheus.CounterVec
}

// NewCollector registers the docdrill metrics on the given registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docdrill_actions_total",
			Help: "Actions executed, by status.",
		}, []string{"status"}),
		instances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docdrill_instances_total",
			Help: "Procedure instances executed, by status.",
		}, []string{"status"}),
	}
	reg.MustRegister(c.actions, c.instances)
	return c
}

// Observe records one finished run.
func (c *Collector) Observe(run domain.RunResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest = &run

	for _, inst := range run.Instances {
		c.instances.WithLabelValues(inst.Status).Inc()
		for _, step := range inst.Steps {
			for _, a := range step.Actions {
				c.actions.WithLabelValues(a.Status).Inc()
			}
		}
	}
}

// Latest returns the most recent run, if any.
func (c *Collector) Latest() (*domain.RunResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest, c.latest != nil
}

// NewHandler builds the router: health, latest-run JSON and metrics.
func NewHandler(c *Collector, logger *slog.Logger, g prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/v1/runs/latest", func(w http.ResponseWriter, req *http.Request) {
		run, ok := c.Latest()
		if !ok {
			http.Error(w, `{"error":"no run recorded yet"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(run); err != nil {
			logger.Error("encoding run result", "err", err)
		}
	})

	r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return r
}
