package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const jobTimeout = 5 * time.Minute

// SubscriptionExpirer flips every lapsed active subscription to expired.
type SubscriptionExpirer interface {
	ExpireDue(ctx context.Context) (int64, error)
}

// TokenPurger removes refresh tokens that can no longer be used.
type TokenPurger interface {
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

type Jobs struct {
	subscriptions SubscriptionExpirer
	tokens        TokenPurger
	logger        *slog.Logger
}

func NewJobs(subscriptions SubscriptionExpirer, tokens TokenPurger, logger *slog.Logger) *Jobs {
	return &Jobs{subscriptions: subscriptions, tokens: tokens, logger: logger}
}

// ExpireSubscriptions runs one expiry sweep.
func (j *Jobs) ExpireSubscriptions() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	n, err := j.subscriptions.ExpireDue(ctx)
	if err != nil {
		j.logger.Error("subscription expiry sweep failed", "error", err)
		return
	}
	j.logger.Info("subscription expiry sweep finished",
		"expired", n,
		"duration_ms", time.Since(start).Milliseconds())
}

func (j *Jobs) PurgeRefreshTokens() {
	if j.tokens == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := j.tokens.PurgeExpiredTokens(ctx); err != nil {
		j.logger.Error("refresh token purge failed", "error", err)
	}
}

// RunOnce runs every job immediately, in order.
func (j *Jobs) RunOnce() {
	j.ExpireSubscriptions()
	j.PurgeRefreshTokens()
}

type Config struct {
	ExpirySchedule string
}

// Scheduler runs the maintenance jobs on cron schedules.
type Scheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	logger *slog.Logger
	config Config
}

func NewScheduler(jobs *Jobs, cfg Config, logger *slog.Logger) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))

	return &Scheduler{
		cron:   c,
		jobs:   jobs,
		logger: logger,
		config: cfg,
	}
}

// Start registers the jobs and starts the cron loop. An invalid schedule is
// returned before anything runs.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.config.ExpirySchedule, s.jobs.RunOnce); err != nil {
		return err
	}
	s.logger.Info("scheduled subscription expiry job", "schedule", s.config.ExpirySchedule)

	s.cron.Start()
	return nil
}

// Stop stops scheduling and returns a context that is done once running
// jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
