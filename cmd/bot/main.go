// Package main contains the entrypoint for the Workflowy Slack bot.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	slackapi "github.com/slack-go/slack"

	"github.com/wtfconf/workflowybot/internal/bot"
	"github.com/wtfconf/workflowybot/internal/config"
	"github.com/wtfconf/workflowybot/internal/database"
	"github.com/wtfconf/workflowybot/internal/logger"
	"github.com/wtfconf/workflowybot/internal/schedule"
	"github.com/wtfconf/workflowybot/internal/slack"
	"github.com/wtfconf/workflowybot/internal/workflowy"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes and starts all application components and returns the
// process exit code: 0 on a clean shutdown, 1 on any fatal startup or
// runtime failure (including a missing store file).
func run(ctx context.Context) int {
	// .env is optional and only a convenience for local runs.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		if errors.Is(err, database.ErrStoreMissing) {
			log.Error("Store file does not exist; run createdb first", "path", cfg.Database.Path)
		} else {
			log.Error("Failed to open database", "path", cfg.Database.Path, "error", err)
		}
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)
	if err := store.Ping(ctx); err != nil {
		log.Error("Failed to ping database", "path", cfg.Database.Path, "error", err)
		return 1
	}

	docClient := workflowy.NewClient(cfg.Workflowy, log)

	var extractor schedule.Extractor
	switch cfg.Workflowy.Extractor {
	case "title":
		extractor = schedule.NewTitleExtractor(docClient, log)
	default:
		extractor = schedule.NewOutlineExtractor(docClient, log)
	}
	log.Info("Extractor selected", "variant", cfg.Workflowy.Extractor)

	client := slackapi.New(cfg.Slack.Token)
	rtm := client.NewRTM()
	session := slack.NewSession(cfg, client, rtm, store, extractor, log)

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, func(ctx context.Context) error {
		return session.AnnounceSchedule(ctx, cfg.Scheduler.DailyQuery)
	})
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	app := bot.NewBot(log, cfg, session, sched)

	log.Info("Starting bot...", "bot_name", cfg.Slack.BotName)
	if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Bot stopped due to error", "error", err)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}
