package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.LLMProvider)
	assert.Equal(t, BackendFile, cfg.StorageBackend)
	assert.Equal(t, "English", cfg.DefaultTargetLanguage)
	assert.Equal(t, int64(10<<20), cfg.MaxImageBytes)
	assert.Equal(t, 90*time.Second, cfg.LLMRequestTimeout)
	assert.Equal(t, 200, cfg.HistoryMaxPerUser)
	assert.Equal(t, "gpt-4o-mini", cfg.ModelName())
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"LLM_PROVIDER":    " Gemini ",
		"GEMINI_MODEL":    "gemini-2.0-flash",
		"STORAGE_BACKEND": "SQLITE",
		"HISTORY_MAX_AGE": "720h",
		"ADMIN_USER":      "42",
		"MAX_AUDIO_BYTES": "1024",
		"LOG_FORMAT":      "json",
	})
	require.NoError(t, err)

	assert.Equal(t, ProviderGemini, cfg.LLMProvider)
	assert.Equal(t, BackendSQLite, cfg.StorageBackend)
	assert.Equal(t, "gemini-2.0-flash", cfg.ModelName())
	assert.Equal(t, 720*time.Hour, cfg.HistoryMaxAge)
	assert.Equal(t, int64(42), cfg.AdminUserID)
	assert.Equal(t, int64(1024), cfg.MaxAudioBytes)
}

func TestLoadFrom_RejectsUnknownNames(t *testing.T) {
	_, err := LoadFrom(map[string]string{"LLM_PROVIDER": "yandex"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM_PROVIDER")

	_, err = LoadFrom(map[string]string{"STORAGE_BACKEND": "redis"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE_BACKEND")
}

func TestLoadFrom_RejectsBadNumbers(t *testing.T) {
	_, err := LoadFrom(map[string]string{"MAX_IMAGE_BYTES": "0"})
	require.Error(t, err)

	_, err = LoadFrom(map[string]string{"HISTORY_MAX_PER_USER": "not-a-number"})
	require.Error(t, err)
}
