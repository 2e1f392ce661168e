package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dverity/docdrill/internal/logging"
	"github.com/dverity/docdrill/pkg/domain"
)

func sampleRun() domain.RunResult {
	return domain.RunResult{
		ID:     "run-1",
		Status: domain.StatusFailed,
		Instances: []domain.InstanceResult{
			{
				Procedure: "Install",
				Status:    domain.StatusPassed,
				Steps: []domain.StepResult{{
					Status: domain.StatusPassed,
					Actions: []domain.ActionResult{
						{Status: domain.StatusPassed},
						{Status: domain.StatusSkippedNotExecutable},
					},
				}},
			},
			{
				Procedure: "Query",
				Status:    domain.StatusFailed,
				Steps: []domain.StepResult{{
					Status:  domain.StatusFailed,
					Actions: []domain.ActionResult{{Status: domain.StatusFailed}},
				}},
			},
		},
	}
}

func newTestHandler() (*Collector, http.Handler) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	return c, NewHandler(c, logging.NewNop(), reg)
}

func TestHandler_Healthz(t *testing.T) {
	_, h := newTestHandler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_LatestRun(t *testing.T) {
	c, h := newTestHandler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs/latest", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "404 before the first run")

	c.Observe(sampleRun())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs/latest", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var run domain.RunResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&run))
	assert.Equal(t, "run-1", run.ID)
	assert.Len(t, run.Instances, 2)
}

func TestCollector_Metrics(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	c.Observe(sampleRun())

	assert.Equal(t, 1.0, testutil.ToFloat64(c.instances.WithLabelValues(domain.StatusPassed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.instances.WithLabelValues(domain.StatusFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.actions.WithLabelValues(domain.StatusPassed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.actions.WithLabelValues(domain.StatusSkippedNotExecutable)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.actions.WithLabelValues(domain.StatusFailed)))
}

func TestHandler_MetricsEndpoint(t *testing.T) {
	c, h := newTestHandler()
	c.Observe(sampleRun())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "docdrill_instances_total")
	assert.Contains(t, rec.Body.String(), "docdrill_actions_total")
}
