package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"MarketBrief/internal/ports"
)

// CronScheduler runs named jobs on cron expressions in a fixed timezone.
// Overlapping runs of the same job are skipped and panics are recovered.
type CronScheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler evaluating specs in loc.
func NewCronScheduler(loc *time.Location, logger *slog.Logger) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	return &CronScheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
		ctx:    context.Background(),
	}
}

// Schedule registers job under a standard five-field cron spec.
func (c *CronScheduler) Schedule(name, spec string, job func(ctx context.Context)) error {
	if job == nil {
		return fmt.Errorf("schedule %s: nil job", name)
	}
	_, err := c.cron.AddFunc(spec, func() {
		ctx := c.jobContext()
		started := time.Now()
		c.logger.InfoContext(ctx, "scheduled job started", "job", name)
		job(ctx)
		c.logger.InfoContext(ctx, "scheduled job finished", "job", name, "elapsed", time.Since(started).Round(time.Millisecond))
	})
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	c.logger.Debug("job scheduled", "job", name, "spec", spec)
	return nil
}

// Start begins dispatching. Jobs receive a context cancelled on Stop or
// when ctx is done.
func (c *CronScheduler) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.started = true
	c.cron.Start()

	for _, entry := range c.cron.Entries() {
		c.logger.Info("next run", "entry", int(entry.ID), "at", entry.Next)
	}
	return nil
}

// Stop halts dispatching and waits for running jobs until ctx expires.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = false
	cancel := c.cancel
	c.mu.Unlock()

	done := c.cron.Stop()
	cancel()

	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop scheduler: %w", ctx.Err())
	}
}

func (c *CronScheduler) jobContext() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctx
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
