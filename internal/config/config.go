package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"

	"lenslingua/internal/logging"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderGemini LLMProvider = "gemini"
)

type StorageBackend string

const (
	BackendFile   StorageBackend = "file"
	BackendSQLite StorageBackend = "sqlite"
	BackendMemory StorageBackend = "memory"
)

type Config struct {
	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// Storage
	StorageBackend StorageBackend `env:"STORAGE_BACKEND" envDefault:"file"`
	DataDir        string         `env:"DATA_DIR" envDefault:"data"`
	SQLitePath     string         `env:"SQLITE_PATH" envDefault:"data/lenslingua.db"`
	AuditLogPath   string         `env:"AUDIT_LOG_PATH" envDefault:"logs/extractions.jsonl"`

	// LLM settings
	LLMProvider              LLMProvider   `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey             string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL            string        `env:"OPENAI_BASE_URL"`
	OpenAIModel              string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAITranscriptionModel string        `env:"OPENAI_TRANSCRIPTION_MODEL" envDefault:"whisper-1"`
	GeminiAPIKey             string        `env:"GEMINI_API_KEY"`
	GeminiBaseURL            string        `env:"GEMINI_BASE_URL"`
	GeminiModel              string        `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	LLMRequestTimeout        time.Duration `env:"LLM_REQUEST_TIMEOUT" envDefault:"90s"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Extraction
	DefaultTargetLanguage string `env:"DEFAULT_TARGET_LANGUAGE" envDefault:"English"`
	MaxImageBytes         int64  `env:"MAX_IMAGE_BYTES" envDefault:"10485760"`
	MaxAudioBytes         int64  `env:"MAX_AUDIO_BYTES" envDefault:"20971520"`

	// Auth
	PasswordHashCost  int `env:"AUTH_PASSWORD_HASH_COST" envDefault:"10"`
	MinPasswordLength int `env:"AUTH_MIN_PASSWORD_LENGTH" envDefault:"1"`

	// History retention
	HistoryMaxPerUser int           `env:"HISTORY_MAX_PER_USER" envDefault:"200"`
	HistoryMaxAge     time.Duration `env:"HISTORY_MAX_AGE" envDefault:"0s"`
	RetentionSchedule string        `env:"RETENTION_SCHEDULE" envDefault:"0 3 * * *"`
	ReportSchedule    string        `env:"REPORT_SCHEDULE" envDefault:"0 21 * * *"`

	// HTTP
	HTTPAddr         string        `env:"HTTP_ADDR" envDefault:":8080"`
	HTTPReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	HTTPWriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout  time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Telegram
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	AdminUserID      int64  `env:"ADMIN_USER"`
	MessageParseMode string `env:"MESSAGE_PARSE_MODE" envDefault:"HTML"`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return LoadFrom(nil)
}

// LoadFrom reads the configuration from vars, or from the process environment
// when vars is nil.
func LoadFrom(vars map[string]string) (*Config, error) {
	cfg := &Config{}
	var opts []env.Options
	if vars != nil {
		opts = append(opts, env.Options{Environment: vars})
	}
	if err := env.Parse(cfg, opts...); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.LLMProvider = LLMProvider(strings.ToLower(strings.TrimSpace(string(cfg.LLMProvider))))
	cfg.StorageBackend = StorageBackend(strings.ToLower(strings.TrimSpace(string(cfg.StorageBackend))))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func New() *Config {
	cfg, err := Load()
	if err != nil {
		logging.NewLogger(context.Background()).Fatalf("failed to parse config: %v", err)
	}
	return cfg
}

func (c *Config) Validate() error {
	var errs []error
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderGemini:
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider))
	}
	switch c.StorageBackend {
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend))
	}
	if c.MaxImageBytes <= 0 || c.MaxAudioBytes <= 0 {
		errs = append(errs, errors.New("MAX_IMAGE_BYTES and MAX_AUDIO_BYTES must be positive"))
	}
	if c.MinPasswordLength < 1 {
		errs = append(errs, errors.New("AUTH_MIN_PASSWORD_LENGTH must be at least 1"))
	}
	if c.HistoryMaxPerUser < 0 || c.HistoryMaxAge < 0 {
		errs = append(errs, errors.New("history retention limits must not be negative"))
	}
	return errors.Join(errs...)
}

// ModelName returns the model configured for the active provider.
func (c *Config) ModelName() string {
	if c.LLMProvider == ProviderGemini {
		return c.GeminiModel
	}
	return c.OpenAIModel
}
