package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"lenslingua/internal/app"
	"lenslingua/internal/config"
	"lenslingua/internal/httpapi"
	"lenslingua/internal/logging"
	"lenslingua/internal/scheduler"
)

func main() {
	log := logging.NewLogger(context.Background())

	if err := godotenv.Load(".env"); err != nil {
		log.Warnf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}
	defer a.Close()

	sched := scheduler.New()
	if err := a.ScheduleJobs(sched, nil); err != nil {
		log.Fatalf("failed to schedule jobs: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	if err := httpapi.Serve(ctx, a); err != nil {
		log.Errorf("HTTP API stopped: %v", err)
	}
}
