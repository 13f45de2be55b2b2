// Package bot implements lifecycle management and component orchestration
// for the Workflowy Slack bot.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/wtfconf/workflowybot/internal/config"
	"github.com/wtfconf/workflowybot/internal/slack"
)

// Bot wires the Slack session and the optional announcement scheduler into
// one run loop.
type Bot struct {
	logger    *slog.Logger
	cfg       *config.Config
	session   *slack.Session
	scheduler *Scheduler
}

// NewBot creates the orchestrator around an already-constructed session and
// scheduler. The scheduler may be nil when announcements are disabled.
func NewBot(logger *slog.Logger, cfg *config.Config, session *slack.Session, scheduler *Scheduler) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		cfg:       cfg,
		session:   session,
		scheduler: scheduler,
	}
}

// Run starts all components and blocks until the context is cancelled or a
// component fails. Shutdown is graceful: the scheduler waits for running
// jobs, and the session waits for in-flight reply pipelines.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting Slack session...")
		if err := b.session.Run(gCtx); err != nil {
			b.logger.Error("Slack session stopped with error", "error", err)
			return fmt.Errorf("slack session: %w", err)
		}
		b.logger.Info("Slack session stopped.")
		return nil
	})

	if b.scheduler != nil {
		g.Go(func() error {
			b.logger.Info("Starting scheduler...")
			if err := b.scheduler.Start(); err != nil {
				return fmt.Errorf("failed to start scheduler: %w", err)
			}

			<-gCtx.Done()
			b.logger.Info("Shutdown signal received, stopping scheduler...")
			if err := b.scheduler.Stop(); err != nil {
				b.logger.Error("Error stopping scheduler", "error", err)
			}
			return nil
		})
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}
