package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	alertdomain "github.com/smallbiznis/karat/internal/alert/domain"
	"github.com/smallbiznis/karat/internal/clock"
	obsmetrics "github.com/smallbiznis/karat/internal/observability/metrics"
	ratedomain "github.com/smallbiznis/karat/internal/rate/domain"
	"github.com/smallbiznis/karat/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRates struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubRates) RefreshRates(ctx context.Context) (ratedomain.RateTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return ratedomain.RateTable{"gold": 60, "silver": 1}, nil
}

type stubAlerts struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubAlerts) EvaluateAll(ctx context.Context) (alertdomain.EvaluationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return alertdomain.EvaluationResult{Checked: 3, Notified: 1}, s.err
}

func newTestScheduler(t *testing.T, cfg Config) (*Scheduler, *clock.FakeClock, *stubRates, *stubAlerts, *prometheus.Registry) {
	t.Helper()

	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	t.Cleanup(restore)
	obsmetrics.ResetSchedulerMetricsForTest()
	obsmetrics.SchedulerWithConfig(obsmetrics.Config{
		ServiceName: "karat",
		Environment: "test",
	})

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	rates := &stubRates{}
	alerts := &stubAlerts{}
	sched, err := New(Params{
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  fake,
		Rates:  rates,
		Alerts: alerts,
		Config: cfg,
	})
	require.NoError(t, err)
	return sched, fake, rates, alerts, registry
}

func TestRunJobTimeoutDoesNotReturnErrorAndIncrementsTimeout(t *testing.T) {
	s, _, _, _, registry := newTestScheduler(t, Config{})

	err := s.runJob(context.Background(), "timeout_job", 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	labels := map[string]string{
		"service": "karat",
		"env":     "test",
		"job":     "timeout_job",
	}
	if got := getCounterValue(t, registry, "karat_scheduler_job_timeouts_total", labels); got != 1 {
		t.Fatalf("expected timeout count 1, got %v", got)
	}

	errorLabels := map[string]string{
		"service": "karat",
		"env":     "test",
		"job":     "timeout_job",
		"reason":  obsmetrics.SchedulerJobReasonDeadlineExceeded,
	}
	if got := getCounterValue(t, registry, "karat_scheduler_job_errors_total", errorLabels); got != 1 {
		t.Fatalf("expected error count 1, got %v", got)
	}
}

func TestRunOnceRunsJobsWhenDue(t *testing.T) {
	s, fake, rates, alerts, registry := newTestScheduler(t, Config{})
	ctx := context.Background()

	require.NoError(t, s.RunOnce(ctx))
	assert.Equal(t, 1, rates.calls)
	assert.Equal(t, 1, alerts.calls)

	// nothing is due a minute later
	fake.Advance(time.Minute)
	require.NoError(t, s.RunOnce(ctx))
	assert.Equal(t, 1, rates.calls)
	assert.Equal(t, 1, alerts.calls)

	fake.Advance(time.Hour)
	require.NoError(t, s.RunOnce(ctx))
	assert.Equal(t, 1, rates.calls)
	assert.Equal(t, 2, alerts.calls)

	fake.Advance(24 * time.Hour)
	require.NoError(t, s.RunOnce(ctx))
	assert.Equal(t, 2, rates.calls)
	assert.Equal(t, 3, alerts.calls)

	processed := map[string]string{"service": "karat", "env": "test", "job": JobRateRefresh, "resource": "material_rate"}
	assert.Equal(t, 4.0, getCounterValue(t, registry, "karat_scheduler_items_processed_total", processed))
}

func TestRunOnceHonoursEnabledJobs(t *testing.T) {
	s, _, rates, alerts, _ := newTestScheduler(t, Config{EnabledJobs: []string{"ALERT_EVALUATION"}})

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 0, rates.calls)
	assert.Equal(t, 1, alerts.calls)
}

func TestRateRefreshEmptyTableIsNotAnError(t *testing.T) {
	s, _, rates, _, _ := newTestScheduler(t, Config{EnabledJobs: []string{JobRateRefresh}})
	rates.err = ratedomain.ErrNoRates
	assert.NoError(t, s.RunOnce(context.Background()))

	s, _, rates, _, _ = newTestScheduler(t, Config{EnabledJobs: []string{JobRateRefresh}})
	rates.err = ratedomain.ErrRefreshInProgress
	assert.NoError(t, s.RunOnce(context.Background()))
}

func TestRunOnceJoinsJobErrors(t *testing.T) {
	s, _, rates, alerts, _ := newTestScheduler(t, Config{})
	rates.err = errors.New("db down")
	alerts.err = errors.New("smtp down")

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, rates.err)
	assert.ErrorIs(t, err, alerts.err)
	assert.Contains(t, err.Error(), JobRateRefresh)
	assert.Contains(t, err.Error(), JobAlertEvaluation)
}

func TestEnsureJobRunCarriesCorrelationID(t *testing.T) {
	sched, _, _, _, _ := newTestScheduler(t, Config{})

	ctx, run, owner := sched.ensureJobRun(context.Background(), JobRateRefresh)
	require.True(t, owner)
	assert.NotEmpty(t, run.correlationID)
	assert.Equal(t, run.correlationID, correlation.ExtractCorrelationID(ctx))

	_, nested, owner := sched.ensureJobRun(ctx, JobRateRefresh)
	assert.False(t, owner)
	assert.Same(t, run, nested)
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func swapPrometheusRegistry(registry *prometheus.Registry) func() {
	oldRegisterer := prometheus.DefaultRegisterer
	oldGatherer := prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	return func() {
		prometheus.DefaultRegisterer = oldRegisterer
		prometheus.DefaultGatherer = oldGatherer
		obsmetrics.ResetSchedulerMetricsForTest()
	}
}

func getCounterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if !labelsMatch(metric, labels) {
				continue
			}
			if metric.Counter == nil {
				t.Fatalf("metric %s is not a counter", name)
			}
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}
