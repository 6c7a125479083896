// Package scheduler runs recurring jobs on cron schedules.
package scheduler

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a named unit of recurring work.
type Job interface {
	Run(ctx context.Context) error
}

// Scheduler manages cron-based job execution.
type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// New creates a scheduler. Schedules use standard 5-field cron syntax.
func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		logger:  logger.Named("scheduler"),
		entries: make(map[string]cron.EntryID),
	}
}

// Register adds a job under the given schedule. Registering an existing
// name replaces its schedule.
func (s *Scheduler) Register(name, schedule string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.entries[name]; ok {
		s.cron.Remove(entryID)
	}

	entryID, err := s.cron.AddFunc(schedule, func() {
		if err := job.Run(context.Background()); err != nil {
			s.logger.Warn("scheduled job failed",
				zap.String("job", name),
				zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	s.entries[name] = entryID
	s.logger.Info("scheduled job",
		zap.String("job", name),
		zap.String("schedule", schedule))
	return nil
}

// Start begins running registered jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}
