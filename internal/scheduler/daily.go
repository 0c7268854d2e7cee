// internal/scheduler/daily.go
package scheduler

import (
	"context"
	"time"

	apperrors "coachme-notifier/internal/common/errors"
	"coachme-notifier/internal/common/logger"
)

// Job is one scheduled run. scheduledAt is the wall-clock slot the run
// belongs to, not the moment it actually started.
type Job func(ctx context.Context, scheduledAt time.Time) error

type Config struct {
	Name        string
	Hour        int
	Minute      int
	Location    *time.Location
	LockTTL     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
	Timeout     time.Duration
}

// Daily runs a job once per calendar day at a fixed local time.
type Daily struct {
	cfg    Config
	job    Job
	locker Locker
	logger logger.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// NewDaily builds a scheduler; locker may be nil for single-replica setups.
func NewDaily(cfg Config, job Job, locker Locker, log logger.Logger) *Daily {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &Daily{
		cfg:    cfg,
		job:    job,
		locker: locker,
		logger: log.WithFields(map[string]interface{}{"schedule": cfg.Name}),
		now:    time.Now,
		after:  time.After,
	}
}

// NextRun returns the first hour:minute in loc strictly after now.
func NextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	n := now.In(loc)
	next := time.Date(n.Year(), n.Month(), n.Day(), hour, minute, 0, 0, loc)
	if !next.After(n) {
		next = time.Date(n.Year(), n.Month(), n.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}

// Run fires the job every day until ctx is cancelled. Failed runs are
// logged; the loop keeps going.
func (d *Daily) Run(ctx context.Context) error {
	for {
		next := NextRun(d.now(), d.cfg.Hour, d.cfg.Minute, d.cfg.Location)
		d.logger.Info("next run scheduled", map[string]interface{}{"at": next.Format(time.RFC3339)})

		select {
		case <-ctx.Done():
			return nil
		case <-d.after(next.Sub(d.now())):
		}

		if err := d.Fire(ctx, next); err != nil {
			d.logger.Error("scheduled run failed", map[string]interface{}{
				"scheduledAt": next.Format(time.RFC3339),
				"error":       err,
			})
		}
	}
}

// Fire executes the run for scheduledAt, taking the day lock first and
// retrying failed attempts up to MaxAttempts.
func (d *Daily) Fire(ctx context.Context, scheduledAt time.Time) error {
	if d.locker != nil {
		key := d.cfg.Name + ":" + scheduledAt.In(d.cfg.Location).Format("2006-01-02")
		ok, err := d.locker.TryLock(ctx, key, d.cfg.LockTTL)
		switch {
		case err != nil:
			// lock errors never block the run
			d.logger.Warn("run lock unavailable, running anyway", map[string]interface{}{
				"error": apperrors.NewScheduleLockFailedError(err),
			})
		case !ok:
			d.logger.Info("run already taken by another replica", map[string]interface{}{"lock": key})
			return nil
		}
	}

	var err error
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		err = d.attempt(ctx, scheduledAt)
		if err == nil {
			return nil
		}
		if attempt == d.cfg.MaxAttempts {
			break
		}

		d.logger.Warn("scheduled run attempt failed, retrying", map[string]interface{}{
			"attempt":     attempt,
			"maxAttempts": d.cfg.MaxAttempts,
			"nextRetryIn": d.cfg.RetryDelay.String(),
			"error":       err,
		})
		select {
		case <-ctx.Done():
			return err
		case <-d.after(d.cfg.RetryDelay):
		}
	}
	return err
}

func (d *Daily) attempt(ctx context.Context, scheduledAt time.Time) error {
	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}
	return d.job(ctx, scheduledAt)
}
