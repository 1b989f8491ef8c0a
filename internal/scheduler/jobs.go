package scheduler

import (
	"context"
	"time"

	"lead_broker_backend/internal/leads/transport"
	"lead_broker_backend/platform/config"
	"lead_broker_backend/platform/logger"

	"github.com/robfig/cron/v3"
)

// Job is a periodic maintenance task.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// LeadMaintainer is the slice of the leads service the periodic jobs drive.
type LeadMaintainer interface {
	RetryUnmatched(ctx context.Context, limit int) (transport.RetryUnmatchedResponse, error)
	ExpireStale(ctx context.Context, maxAge time.Duration) (int, error)
}

// Cron runs maintenance jobs on cron schedules. A job still running when its
// next tick fires is skipped for that tick.
type Cron struct {
	cron *cron.Cron
	ctx  context.Context
	log  *logger.Logger
}

func NewCron(log *logger.Logger) *Cron {
	cl := cronLogger{log: log}
	return &Cron{
		cron: cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		ctx:  context.Background(),
		log:  log,
	}
}

// AddJob registers job under schedule ("@hourly", "@every 15m", "0 3 * * *").
func (c *Cron) AddJob(schedule string, job Job) error {
	_, err := c.cron.AddFunc(schedule, func() { c.RunNow(c.ctx, job) })
	if err != nil {
		return err
	}
	c.log.Info("job registered", "job", job.Name(), "schedule", schedule)
	return nil
}

// RunNow executes job immediately and logs the outcome.
func (c *Cron) RunNow(ctx context.Context, job Job) {
	start := time.Now()
	if err := job.Run(ctx); err != nil {
		c.log.Error("job failed", "job", job.Name(), "error", err)
		return
	}
	c.log.Debug("job completed", "job", job.Name(), "duration_ms", time.Since(start).Milliseconds())
}

// Run starts the schedule and blocks until ctx is cancelled and every running
// job has returned.
func (c *Cron) Run(ctx context.Context) {
	c.ctx = ctx
	c.cron.Start()
	c.log.Info("cron started")
	<-ctx.Done()
	<-c.cron.Stop().Done()
	c.log.Info("cron stopped")
}

// RegisterLeadJobs adds the unmatched-retry and expiry jobs.
func RegisterLeadJobs(c *Cron, cfg config.MaintenanceConfig, leads LeadMaintainer, log *logger.Logger) error {
	if err := c.AddJob(cfg.GetUnmatchedRetrySchedule(), &RetryUnmatchedJob{
		leads: leads,
		batch: cfg.GetUnmatchedRetryBatch(),
		log:   log,
	}); err != nil {
		return err
	}
	return c.AddJob(cfg.GetLeadExpirySchedule(), &ExpireLeadsJob{
		leads:  leads,
		maxAge: cfg.GetLeadExpiryAfter(),
		log:    log,
	})
}

// RetryUnmatchedJob re-runs allocation for leads nobody could take.
type RetryUnmatchedJob struct {
	leads LeadMaintainer
	batch int
	log   *logger.Logger
}

func (j *RetryUnmatchedJob) Name() string { return "retry_unmatched_leads" }

func (j *RetryUnmatchedJob) Run(ctx context.Context) error {
	res, err := j.leads.RetryUnmatched(ctx, j.batch)
	if err != nil {
		return err
	}
	if res.Attempted > 0 {
		j.log.Info("unmatched leads retried", "attempted", res.Attempted, "distributed", res.Distributed)
	}
	return nil
}

// ExpireLeadsJob expires leads that were never sold within maxAge.
type ExpireLeadsJob struct {
	leads  LeadMaintainer
	maxAge time.Duration
	log    *logger.Logger
}

func (j *ExpireLeadsJob) Name() string { return "expire_stale_leads" }

func (j *ExpireLeadsJob) Run(ctx context.Context) error {
	if j.maxAge <= 0 {
		return nil
	}
	n, err := j.leads.ExpireStale(ctx, j.maxAge)
	if err != nil {
		return err
	}
	if n > 0 {
		j.log.Info("stale leads expired", "count", n)
	}
	return nil
}

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
