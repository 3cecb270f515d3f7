package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// SchedulerConfig holds configuration for a Scheduler.
type SchedulerConfig struct {
	Name string

	// Interval is how often the job runs.
	Interval time.Duration

	// InitialDelay is the wait before the first run. Negative skips the
	// initial run; the first run then happens after one Interval.
	InitialDelay time.Duration

	// Timeout bounds a single run. Default: 5 minutes
	Timeout time.Duration
}

// Scheduler runs a job periodically. Runs never overlap.
type Scheduler struct {
	config SchedulerConfig
	job    Job

	ctx       context.Context
	cancel    context.CancelFunc
	runMu     sync.Mutex
	mu        sync.Mutex
	stopOnce  sync.Once
	isRunning bool
	wg        sync.WaitGroup
}

// NewScheduler creates a scheduler for job.
func NewScheduler(config SchedulerConfig, job Job) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{config: config, job: job, ctx: ctx, cancel: cancel}
}

// Start begins the schedule. Calling Start twice has no effect.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.isRunning || s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"component": "scheduler",
		"job":       s.config.Name,
		"interval":  s.config.Interval.String(),
	}).Info("Scheduler started")

	s.wg.Add(1)
	go s.run()
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	if s.config.InitialDelay >= 0 {
		select {
		case <-time.After(s.config.InitialDelay):
			s.runOnce()
		case <-s.ctx.Done():
			return
		}
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce()
		case <-s.ctx.Done():
			logrus.WithFields(logrus.Fields{"component": "scheduler", "job": s.config.Name}).Info("Scheduler stopped")
			return
		}
	}
}

func (s *Scheduler) runOnce() {
	if err := s.RunNow(); err != nil && s.ctx.Err() == nil {
		logrus.WithFields(logrus.Fields{"component": "scheduler", "job": s.config.Name}).
			WithError(err).Error("Scheduled job failed")
	}
}

// RunNow runs the job immediately, waiting for any run in progress.
func (s *Scheduler) RunNow() error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	ctx, cancel := context.WithTimeout(s.ctx, s.config.Timeout)
	defer cancel()

	return s.job(ctx)
}

// Stop cancels the schedule and any run in progress, and waits for the
// loop to exit.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.wg.Wait()

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
	})
}
