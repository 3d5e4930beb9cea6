// Package scheduler runs the bot's periodic maintenance jobs (backups and
// idle session eviction) on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/filestash/internal/logging"
	"github.com/robfig/cron/v3"
)

// Job is a named unit of periodic work. Schedule takes the standard five
// field cron syntax or descriptors such as "@daily" and "@every 10m".
type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) error
}

// Result is the outcome of a job's latest run.
type Result struct {
	Started  time.Time
	Duration time.Duration
	Err      error
	Runs     int
}

type Scheduler struct {
	cron   *cron.Cron
	logger logging.Logger

	mu      sync.Mutex
	ctx     context.Context
	running map[string]bool
	history map[string]Result
	jobs    int
}

func New(logger logging.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		logger:  logger.With("module", "scheduler"),
		ctx:     context.Background(),
		running: make(map[string]bool),
		history: make(map[string]Result),
	}
}

// Add registers a job. An empty schedule disables the job.
func (s *Scheduler) Add(job Job) error {
	if job.Schedule == "" {
		s.logger.Debug(context.Background(), "Job disabled", "job", job.Name)
		return nil
	}
	if _, err := s.cron.AddFunc(job.Schedule, func() { s.execute(job) }); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", job.Name, job.Schedule, err)
	}
	s.jobs++
	s.logger.Info(context.Background(), "Job scheduled", "job", job.Name, "schedule", job.Schedule)
	return nil
}

// Run starts the cron loop and blocks until ctx is done, then waits for
// running jobs to finish. Jobs receive a context canceled at shutdown.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	if s.jobs == 0 {
		s.logger.Warn(ctx, "No jobs to schedule")
		<-ctx.Done()
		return nil
	}

	s.cron.Start()
	s.logger.Info(ctx, "Scheduler running", "jobs", s.jobs)

	<-ctx.Done()

	s.logger.Info(ctx, "Scheduler stopping...")
	<-s.cron.Stop().Done()
	return nil
}

// execute runs job unless a previous run of it is still in progress.
func (s *Scheduler) execute(job Job) {
	s.mu.Lock()
	if s.running[job.Name] {
		s.mu.Unlock()
		s.logger.Warn(context.Background(), "Job skipped: already running", "job", job.Name)
		return
	}
	s.running[job.Name] = true
	ctx := s.ctx
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.running, job.Name)
		s.mu.Unlock()
	}()

	started := time.Now()
	err := job.Run(ctx)
	elapsed := time.Since(started)

	if err != nil {
		s.logger.Error(ctx, "Job failed", "job", job.Name, "duration", elapsed, "error", err)
	} else {
		s.logger.Debug(ctx, "Job finished", "job", job.Name, "duration", elapsed)
	}

	s.mu.Lock()
	runs := s.history[job.Name].Runs + 1
	s.history[job.Name] = Result{Started: started, Duration: elapsed, Err: err, Runs: runs}
	s.mu.Unlock()
}

// Last returns the latest result of the named job.
func (s *Scheduler) Last(name string) (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.history[name]
	return r, ok
}
