package app

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lenslingua/internal/capture"
	"lenslingua/internal/config"
	"lenslingua/internal/kv"
	"lenslingua/internal/llm"
	"lenslingua/internal/model"
	"lenslingua/internal/scheduler"
	"lenslingua/internal/storage"
)

type scriptedLLM struct{ reply string }

func (s scriptedLLM) Generate(context.Context, llm.Request) (llm.Response, error) {
	return llm.Response{Content: s.reply}, nil
}
func (scriptedLLM) Provider() string { return "scripted" }
func (scriptedLLM) Model() string    { return "scripted-1" }

func newTestApp(t *testing.T, reply string) *App {
	t.Helper()
	cfg, err := config.LoadFrom(map[string]string{
		"STORAGE_BACKEND":         "memory",
		"AUTH_PASSWORD_HASH_COST": "4",
		"HISTORY_MAX_PER_USER":    "1",
	})
	require.NoError(t, err)
	a, err := NewWith(cfg, kv.NewMemoryStore(), scriptedLLM{reply: reply}, &storage.MemoryRecorder{})
	require.NoError(t, err)
	return a
}

func TestApp_EndToEnd(t *testing.T) {
	a := newTestApp(t, "```json\n{\"items\":[{\"originalText\":\"Tapas\",\"translatedText\":\"Small plates\",\"context\":\"Shared snacks\"}]}\n```")
	ctx := context.Background()

	require.NoError(t, a.Auth.Register(ctx, "a@x.com", "p1"))
	require.NoError(t, a.Authenticate(ctx, "A@X.com", "p1"))
	assert.ErrorIs(t, a.Authenticate(ctx, "a@x.com", "wrong"), ErrUnauthorized)

	for i := 0; i < 2; i++ {
		state, err := a.Controller.Translate(ctx, Request{
			Email:  "a@x.com",
			Kind:   model.KindScan,
			Source: capture.ReaderSource{Reader: bytes.NewBufferString("jpeg"), MIMEType: "image/jpeg"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Small plates", state.Result.Items[0].TranslatedText)
		a.Controller.Reset("a@x.com")
	}
	assert.Len(t, a.History.ListForUser(ctx, "a@x.com"), 2)

	removed, err := a.RunRetention(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	stats, err := a.DailyStats(time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalExtractions)
	assert.Equal(t, 2, stats.ItemsExtracted)
}

func TestApp_ScheduleJobs(t *testing.T) {
	a := newTestApp(t, `{"items":[]}`)
	s := scheduler.New()
	defer s.Stop()

	require.NoError(t, a.ScheduleJobs(s, nil))
	_, ok := s.Next("retention")
	assert.True(t, ok)
	_, ok = s.Next("daily-report")
	assert.True(t, ok)
}

func TestOpenStore(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{"STORAGE_BACKEND": "sqlite", "SQLITE_PATH": t.TempDir() + "/kv.db"})
	require.NoError(t, err)
	store, err := OpenStore(cfg)
	require.NoError(t, err)
	defer store.Close()
	_, ok := store.(*kv.SQLiteStore)
	assert.True(t, ok)
}
