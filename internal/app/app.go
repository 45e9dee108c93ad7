// Package app wires the stores, the extraction client and the controller
// into one bundle shared by every front-end.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lenslingua/internal/analytics"
	"lenslingua/internal/auth"
	"lenslingua/internal/config"
	"lenslingua/internal/extract"
	"lenslingua/internal/history"
	"lenslingua/internal/kv"
	"lenslingua/internal/llm"
	"lenslingua/internal/logging"
	"lenslingua/internal/scheduler"
	"lenslingua/internal/storage"
)

type App struct {
	Config     *config.Config
	Store      kv.Store
	Auth       *auth.Service
	History    *history.Store
	LLM        llm.Client
	Extractor  *extract.Client
	Recorder   storage.Recorder
	Controller *Controller
}

// New builds the App from configuration, opening the configured KV backend
// and provider client.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	client, err := llm.NewFactory(cfg).CreateClient(ctx, string(cfg.LLMProvider), cfg.ModelName())
	if err != nil {
		store.Close()
		return nil, err
	}
	var rec storage.Recorder
	if cfg.AuditLogPath != "" {
		fr, err := storage.NewFileRecorder(cfg.AuditLogPath)
		if err != nil {
			logging.NewLogger(ctx).Warnf("failed to init audit log, audit disabled: %v", err)
		} else {
			rec = fr
		}
	}
	return NewWith(cfg, store, client, rec)
}

// NewWith builds the App around already constructed dependencies.
func NewWith(cfg *config.Config, store kv.Store, client llm.Client, rec storage.Recorder) (*App, error) {
	extractor, err := extract.NewClient(client, extract.Options{
		DefaultTargetLanguage: cfg.DefaultTargetLanguage,
		MaxImageBytes:         cfg.MaxImageBytes,
		MaxAudioBytes:         cfg.MaxAudioBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("init extractor: %w", err)
	}
	hist := history.NewStore(store)
	a := &App{
		Config:    cfg,
		Store:     store,
		Auth:      auth.NewService(auth.NewKVRepository(store), cfg.PasswordHashCost, cfg.MinPasswordLength),
		History:   hist,
		LLM:       client,
		Extractor: extractor,
		Recorder:  rec,
	}
	a.Controller = NewController(extractor, hist, rec, ControllerOptions{
		Provider:              client.Provider(),
		Model:                 client.Model(),
		DefaultTargetLanguage: cfg.DefaultTargetLanguage,
		RequestTimeout:        cfg.LLMRequestTimeout,
		MaxImageBytes:         cfg.MaxImageBytes,
		MaxAudioBytes:         cfg.MaxAudioBytes,
	})
	return a, nil
}

func OpenStore(cfg *config.Config) (kv.Store, error) {
	switch cfg.StorageBackend {
	case config.BackendSQLite:
		return kv.NewSQLiteStore(cfg.SQLitePath)
	case config.BackendMemory:
		return kv.NewMemoryStore(), nil
	default:
		return kv.NewFileStore(cfg.DataDir)
	}
}

func (a *App) Close() error {
	return a.Store.Close()
}

// Authenticate returns ErrUnauthorized unless the credentials match.
func (a *App) Authenticate(ctx context.Context, email, password string) error {
	if !a.Auth.Verify(ctx, email, password) {
		return ErrUnauthorized
	}
	return nil
}

// RunRetention applies the configured history limits.
func (a *App) RunRetention(ctx context.Context) (int, error) {
	var olderThan time.Time
	if a.Config.HistoryMaxAge > 0 {
		olderThan = time.Now().Add(-a.Config.HistoryMaxAge)
	}
	removed, err := a.History.Prune(ctx, a.Config.HistoryMaxPerUser, olderThan)
	if err != nil {
		return 0, err
	}
	logging.NewLogger(ctx).Infof("retention removed %d history records", removed)
	return removed, nil
}

// DailyStats aggregates the audit log for day.
func (a *App) DailyStats(day time.Time) (*analytics.DailyStats, error) {
	if a.Recorder == nil {
		return nil, errors.New("audit log is disabled")
	}
	events, err := a.Recorder.LoadEvents()
	if err != nil {
		return nil, fmt.Errorf("load audit events: %w", err)
	}
	return analytics.AnalyzeDailyLogs(events, day), nil
}

// ScheduleJobs registers retention and the daily report. deliver, when not
// nil, receives the report text in addition to the log.
func (a *App) ScheduleJobs(s *scheduler.Scheduler, deliver func(ctx context.Context, report string) error) error {
	if err := s.AddJob("retention", a.Config.RetentionSchedule, func(ctx context.Context) error {
		_, err := a.RunRetention(ctx)
		return err
	}); err != nil {
		return err
	}
	if a.Recorder == nil {
		return nil
	}
	return s.AddJob("daily-report", a.Config.ReportSchedule, func(ctx context.Context) error {
		stats, err := a.DailyStats(time.Now().UTC())
		if err != nil {
			return err
		}
		report := stats.GenerateReportSummary()
		logging.NewLogger(ctx).Info(report)
		if deliver != nil {
			return deliver(ctx, report)
		}
		return nil
	})
}
