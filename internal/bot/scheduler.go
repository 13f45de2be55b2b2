package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/wtfconf/workflowybot/internal/config"
)

// AnnounceFunc posts the daily schedule announcement.
type AnnounceFunc func(ctx context.Context) error

// Scheduler runs the optional daily schedule announcement using gocron.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	cfg       *config.SchedulerConfig
	announce  AnnounceFunc
	mu        sync.Mutex
	running   bool
}

// NewScheduler creates a scheduler for the daily announcement job. Returns
// nil when announcements are disabled in the configuration.
func NewScheduler(logger *slog.Logger, cfg *config.SchedulerConfig, announce AnnounceFunc) (*Scheduler, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: s,
		logger:    logger.With("component", "scheduler"),
		cfg:       cfg,
		announce:  announce,
	}, nil
}

// Start registers the announcement job and starts the scheduler's internal
// ticking.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	_, err := s.scheduler.NewJob(
		gocron.CronJob(s.cfg.DailyCron, true), // true = cron expression includes a seconds field
		gocron.NewTask(func(ctx context.Context) {
			s.logger.Info("Running daily schedule announcement")
			startTime := time.Now()
			if err := s.announce(ctx); err != nil {
				s.logger.Error("Daily announcement failed", "error", err)
			}
			s.logger.Info("Finished daily schedule announcement", "duration", time.Since(startTime))
		}, context.Background()),
		gocron.WithName("daily_schedule"),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule daily announcement: %w", err)
	}

	s.scheduler.Start()
	s.running = true
	s.logger.Info("Scheduler started", "schedule", s.cfg.DailyCron)
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs to complete.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	err := s.scheduler.Shutdown()
	if err != nil {
		s.logger.Error("Error during scheduler shutdown", "error", err)
	} else {
		s.logger.Info("Scheduler stopped gracefully.")
	}

	s.running = false
	return err
}
