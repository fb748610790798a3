package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukex/siteflow/pkg/metrics"
	"github.com/dukex/siteflow/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(registry, registry)

	m.InstanceStarted("change-order-approval")
	m.InstanceStarted("change-order-approval")
	m.InstanceFinished("change-order-approval", models.InstanceStatusCompleted, time.Minute)
	m.StepFinished(models.StepKindAction, models.StepStatusCompleted, time.Second)
	m.StepFinished(models.StepKindAction, models.StepStatusFailed, time.Second)
	m.ApprovalWaiters(3)

	count, err := testutil.GatherAndCount(registry, "siteflow_instances_started_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = testutil.GatherAndCount(registry, "siteflow_steps_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	problems, err := testutil.GatherAndLint(registry)
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var m *metrics.Metrics

	assert.NotPanics(t, func() {
		m.InstanceStarted("x")
		m.InstanceFinished("x", models.InstanceStatusFailed, time.Second)
		m.StepFinished(models.StepKindWait, models.StepStatusCompleted, time.Second)
		m.ApprovalWaiters(1)
	})
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	m.InstanceStarted("rfi-response")

	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `siteflow_instances_started_total{definition="rfi-response"} 1`)
}
