package service

import (
	"context"
	"sync"
	"time"

	"github.com/localboost/localboost/pkg/distlock"
	"github.com/localboost/localboost/pkg/logger"
	"github.com/localboost/localboost/pkg/metrics"
	"github.com/localboost/localboost/pkg/tracing"
)

// JobFunc runs one batch pass and returns how many records it handled
type JobFunc func(ctx context.Context) (int, error)

// Job is a named batch pass run on a fixed interval
type Job struct {
	Name     string
	Interval time.Duration
	Run      JobFunc
}

// JobRunner executes batch jobs periodically inside the API process
type JobRunner struct {
	jobs     []Job
	locker   distlock.Locker
	logger   logger.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

// NewJobRunner creates a runner. A nil locker runs every job unguarded.
func NewJobRunner(jobs []Job, locker distlock.Locker, logger logger.Logger) *JobRunner {
	if locker == nil {
		locker = distlock.Noop{}
	}
	return &JobRunner{
		jobs:     jobs,
		locker:   locker,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start launches one loop per job
func (r *JobRunner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		r.logger.Warn("Job runner already running")
		return
	}
	r.running = true
	r.mu.Unlock()

	for _, job := range r.jobs {
		if job.Interval <= 0 {
			r.logger.WithField("job", job.Name).Warn("Job has no interval, not scheduling it")
			continue
		}
		r.logger.WithField("job", job.Name).
			WithField("interval", job.Interval.String()).
			Info("Starting in-process job")

		r.wg.Add(1)
		go r.loop(ctx, job)
	}
}

// Stop signals every loop and waits for in-flight passes to finish
func (r *JobRunner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	r.logger.Info("Stopping job runner...")
	close(r.stopChan)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("Job runner stopped successfully")
	case <-time.After(30 * time.Second):
		r.logger.Warn("Job runner stop timeout exceeded")
	}
}

// IsRunning returns whether the runner is currently running
func (r *JobRunner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *JobRunner) loop(ctx context.Context, job Job) {
	defer r.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	// Execute immediately on start
	r.RunOnce(ctx, job)

	for {
		select {
		case <-ctx.Done():
			r.logger.WithField("job", job.Name).Info("Job loop context cancelled")
			return
		case <-r.stopChan:
			return
		case <-ticker.C:
			r.RunOnce(ctx, job)
		}
	}
}

// RunOnce runs a single pass of job when its lock is free
func (r *JobRunner) RunOnce(ctx context.Context, job Job) {
	// codecov:ignore:start
	execCtx, span := tracing.StartServiceSpan(ctx, "JobRunner", job.Name)
	defer span.End()
	// codecov:ignore:end

	log := r.logger.WithField("job", job.Name)

	ttl := job.Interval
	if ttl < time.Minute {
		ttl = time.Minute
	}
	release, acquired, err := r.locker.TryLock(execCtx, job.Name, ttl)
	if err != nil {
		log.WithField("error", err.Error()).Error("Failed to acquire job lock")
		return
	}
	if !acquired {
		log.Debug("Job is running on another instance, skipping")
		return
	}
	defer func() {
		if err := release(context.WithoutCancel(execCtx)); err != nil {
			log.WithField("error", err.Error()).Warn("Failed to release job lock")
		}
	}()

	startTime := time.Now()
	items, err := job.Run(execCtx)
	elapsed := time.Since(startTime)
	metrics.RecordJobRun(execCtx, job.Name, startTime, items, err)

	if err != nil {
		// codecov:ignore:start
		tracing.MarkSpanError(execCtx, err)
		// codecov:ignore:end
		log.WithField("error", err.Error()).
			WithField("elapsed", elapsed.String()).
			Error("Job pass failed")
		return
	}
	log.WithField("items", items).
		WithField("elapsed", elapsed.String()).
		Debug("Job pass completed")
}
