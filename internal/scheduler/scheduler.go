package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	alertdomain "github.com/smallbiznis/karat/internal/alert/domain"
	auditcontext "github.com/smallbiznis/karat/internal/auditcontext"
	"github.com/smallbiznis/karat/internal/clock"
	obsmetrics "github.com/smallbiznis/karat/internal/observability/metrics"
	ratedomain "github.com/smallbiznis/karat/internal/rate/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type RateRefresher interface {
	RefreshRates(ctx context.Context) (ratedomain.RateTable, error)
}

type AlertEvaluator interface {
	EvaluateAll(ctx context.Context) (alertdomain.EvaluationResult, error)
}

type Params struct {
	fx.In

	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Rates  RateRefresher
	Alerts AlertEvaluator
	Config Config `optional:"true"`
}

type Scheduler struct {
	log    *zap.Logger
	cfg    Config
	genID  *snowflake.Node
	clock  clock.Clock
	rates  RateRefresher
	alerts AlertEvaluator

	mu      sync.Mutex
	lastRun map[string]time.Time
}

type job struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	run      func(ctx context.Context) error
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.Rates == nil || p.Alerts == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:     p.Config.withDefaults(),
		genID:   p.GenID,
		clock:   p.Clock,
		rates:   p.Rates,
		alerts:  p.Alerts,
		lastRun: make(map[string]time.Time),
	}, nil
}

func (s *Scheduler) jobs() []job {
	return []job{
		{name: JobRateRefresh, interval: s.cfg.RateRefreshInterval, timeout: s.cfg.RateRefreshTimeout, run: s.RateRefreshJob},
		{name: JobAlertEvaluation, interval: s.cfg.AlertEvaluationInterval, timeout: s.cfg.AlertEvaluationTimeout, run: s.AlertEvaluationJob},
	}
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx = auditcontext.WithActor(ctx, auditcontext.ActorTypeSystem, "scheduler")
	ctx, run, owner := s.ensureJobRun(ctx, name)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	// deadline is a soft timeout
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce runs every enabled job that is due and joins their errors.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error
	for _, j := range s.jobs() {
		if !s.isJobEnabled(j.name) || !s.due(j) {
			continue
		}
		s.markRun(j.name)
		err = errors.Join(err, s.runJob(parent, j.name, j.timeout, j.run))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		runLag := time.Since(nextRun)
		if runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) due(j job) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.lastRun[j.name]
	if !ok {
		return true
	}
	return !s.clock.Now().Before(last.Add(j.interval))
}

func (s *Scheduler) markRun(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun[name] = s.clock.Now()
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// empty means every job runs in this process
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

func (s *Scheduler) RateRefreshJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)

	table, err := s.rates.RefreshRates(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ratedomain.ErrNoRates):
		s.logger(ctx).Warn("scheduler.rates.empty", zap.String("job", JobRateRefresh))
		return nil
	case errors.Is(err, ratedomain.ErrRefreshInProgress):
		s.logger(ctx).Info("scheduler.rates.skipped", zap.String("job", JobRateRefresh), zap.String("reason", "refresh in progress"))
		return nil
	default:
		s.logSchedulerError(ctx, run, "scheduler.rates.failed", JobRateRefresh, err)
		return err
	}

	run.AddProcessed(len(table))
	obsmetrics.Scheduler().AddItemsProcessed(JobRateRefresh, "material_rate", len(table))
	return nil
}

func (s *Scheduler) AlertEvaluationJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)

	result, err := s.alerts.EvaluateAll(ctx)
	run.AddProcessed(result.Checked)
	if err != nil {
		s.logSchedulerError(ctx, run, "scheduler.alerts.failed", JobAlertEvaluation, err)
		return err
	}

	obsmetrics.Scheduler().AddItemsProcessed(JobAlertEvaluation, "alert", result.Checked)
	if result.Failed > 0 {
		s.logger(ctx).Warn("scheduler.alerts.delivery_failures",
			zap.String("job", JobAlertEvaluation),
			zap.Int("failed", result.Failed),
		)
	}
	return nil
}
