package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"lenslingua/internal/app"
	"lenslingua/internal/config"
	"lenslingua/internal/logging"
	"lenslingua/internal/scheduler"
	"lenslingua/internal/telegram"
)

func main() {
	ctx := context.Background()
	log := logging.NewLogger(ctx)

	if err := godotenv.Load(".env"); err != nil {
		log.Warnf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if cfg.TelegramBotToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is required")
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}
	defer a.Close()

	bot, err := telegram.New(cfg.TelegramBotToken, a)
	if err != nil {
		log.Fatalf("failed to create bot: %v", err)
	}

	sched := scheduler.New()
	if err := a.ScheduleJobs(sched, bot.SendReport); err != nil {
		log.Fatalf("failed to schedule jobs: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithField("provider", string(cfg.LLMProvider)).WithField("model", cfg.ModelName()).Info("🚀 LensLingua bot started")
	bot.Start(ctx)
	log.Info("bot stopped")
}
