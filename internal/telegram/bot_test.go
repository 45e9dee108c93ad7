package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lenslingua/internal/app"
	"lenslingua/internal/config"
	"lenslingua/internal/history"
	"lenslingua/internal/kv"
	"lenslingua/internal/llm"
	"lenslingua/internal/model"
	"lenslingua/internal/storage"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeSender) last() string {
	t := f.texts()
	if len(t) == 0 {
		return ""
	}
	return t[len(t)-1]
}

type fakeFiles struct{ url string }

func (f fakeFiles) GetFileDirectURL(string) (string, error) { return f.url, nil }

type scriptedLLM struct{ reply string }

func (s scriptedLLM) Generate(context.Context, llm.Request) (llm.Response, error) {
	return llm.Response{Content: s.reply}, nil
}
func (scriptedLLM) Provider() string { return "scripted" }
func (scriptedLLM) Model() string    { return "scripted-1" }

const adminID = int64(999)

func newTestBot(t *testing.T, reply string) (*Bot, *fakeSender) {
	t.Helper()
	cfg, err := config.LoadFrom(map[string]string{
		"STORAGE_BACKEND":         "memory",
		"AUTH_PASSWORD_HASH_COST": "4",
		"ADMIN_USER":              "999",
	})
	require.NoError(t, err)
	a, err := app.NewWith(cfg, kv.NewMemoryStore(), scriptedLLM{reply: reply}, &storage.MemoryRecorder{})
	require.NoError(t, err)

	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	t.Cleanup(files.Close)

	fs := &fakeSender{}
	return newBot(fs, fakeFiles{url: files.URL}, a), fs
}

func command(userID int64, text string) *tgbotapi.Message {
	name := strings.Fields(text)[0]
	return &tgbotapi.Message{
		MessageID: 10,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}
}

func photo(userID int64) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 11,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: userID},
		Photo:     []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}},
	}
}

const menuReply = `{"items":[{"originalText":"Paella","translatedText":"Rice <pan>","context":"Valencian dish","allergens":"shellfish"}]}`

func TestRegisterLoginLogout(t *testing.T) {
	b, fs := newTestBot(t, menuReply)
	ctx := context.Background()

	b.handleIncomingMessage(ctx, command(1, "/register A@x.com secret"))
	assert.Contains(t, fs.last(), "Logged in as <b>a@x.com</b>")
	require.Len(t, fs.requests, 1)
	_, isDelete := fs.requests[0].(tgbotapi.DeleteMessageConfig)
	assert.True(t, isDelete, "credentials message must be deleted")

	sess, ok := b.sessions.get(ctx, 1)
	require.True(t, ok)
	assert.Equal(t, "a@x.com", sess.Email)

	b.handleIncomingMessage(ctx, command(2, "/register a@x.com other"))
	assert.Contains(t, fs.last(), "❌")

	b.handleIncomingMessage(ctx, command(2, "/login a@x.com wrong"))
	_, ok = b.sessions.get(ctx, 2)
	assert.False(t, ok)

	b.handleIncomingMessage(ctx, command(2, "/login a@x.com secret"))
	_, ok = b.sessions.get(ctx, 2)
	assert.True(t, ok)

	b.handleIncomingMessage(ctx, command(1, "/logout"))
	_, ok = b.sessions.get(ctx, 1)
	assert.False(t, ok)
}

func TestLogin_RecoversCorruptSessions(t *testing.T) {
	b, fs := newTestBot(t, menuReply)
	ctx := context.Background()
	require.NoError(t, b.app.Auth.Register(ctx, "a@x.com", "secret"))

	for _, raw := range []string{"null", "{not json", "[]"} {
		require.NoError(t, b.app.Store.Put(ctx, sessionsKey, []byte(raw)))
		_, ok := b.sessions.get(ctx, 1)
		assert.False(t, ok, raw)

		b.handleIncomingMessage(ctx, command(1, "/login a@x.com secret"))
		assert.Contains(t, fs.last(), "Logged in as", raw)
		sess, ok := b.sessions.get(ctx, 1)
		require.True(t, ok, raw)
		assert.Equal(t, "a@x.com", sess.Email)
	}
}

func TestLanguage(t *testing.T) {
	b, fs := newTestBot(t, menuReply)
	ctx := context.Background()
	b.handleIncomingMessage(ctx, command(1, "/register a@x.com secret"))

	b.handleIncomingMessage(ctx, command(1, "/lang"))
	assert.Contains(t, fs.last(), "English")

	b.handleIncomingMessage(ctx, command(1, "/lang Brazilian Portuguese"))
	sess, _ := b.sessions.get(ctx, 1)
	assert.Equal(t, "Brazilian Portuguese", sess.Language)
}

func TestPhotoRequiresLogin(t *testing.T) {
	b, fs := newTestBot(t, menuReply)
	b.handleIncomingMessage(context.Background(), photo(5))
	b.wg.Wait()
	assert.Contains(t, fs.last(), "/login")
}

func TestPhoto_TranslatesAndSaves(t *testing.T) {
	b, fs := newTestBot(t, menuReply)
	ctx := context.Background()
	b.handleIncomingMessage(ctx, command(1, "/register a@x.com secret"))
	b.handleIncomingMessage(ctx, command(1, "/lang German"))

	b.handleIncomingMessage(ctx, photo(1))
	b.wg.Wait()

	out := fs.last()
	assert.Contains(t, out, "<b>Paella</b>")
	assert.Contains(t, out, "Rice &lt;pan&gt;")
	assert.Contains(t, out, "Translated to German")

	records := b.app.History.ListForUser(ctx, "a@x.com")
	require.Len(t, records, 1)
	assert.Equal(t, model.KindScan, records[0].Kind)
	assert.Equal(t, "German", records[0].TargetLanguage)

	fs.mu.Lock()
	edit, ok := fs.sent[len(fs.sent)-1].(tgbotapi.EditMessageTextConfig)
	fs.mu.Unlock()
	require.True(t, ok, "progress message is edited with the result")
	require.NotNil(t, edit.ReplyMarkup)
	assert.Equal(t, deletePrefix+records[0].ID, *edit.ReplyMarkup.InlineKeyboard[0][0].CallbackData)
}

func TestCallbacks(t *testing.T) {
	b, fs := newTestBot(t, menuReply)
	ctx := context.Background()
	b.handleIncomingMessage(ctx, command(1, "/register a@x.com secret"))
	b.handleIncomingMessage(ctx, photo(1))
	b.wg.Wait()

	records := b.app.History.ListForUser(ctx, "a@x.com")
	require.Len(t, records, 1)

	cb := &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: 1},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}},
		Data:    showPrefix + records[0].ID,
	}
	b.handleCallback(ctx, cb)
	assert.Contains(t, fs.last(), "Paella")

	cb.Data = deletePrefix + records[0].ID
	b.handleCallback(ctx, cb)
	assert.Empty(t, b.app.History.ListForUser(ctx, "a@x.com"))

	cb.Data = resetCmd
	b.handleCallback(ctx, cb)
	assert.Equal(t, app.PhaseIdle, b.app.Controller.Status("a@x.com").Phase)

	var answered int
	for _, r := range fs.requests {
		if _, ok := r.(tgbotapi.CallbackConfig); ok {
			answered++
		}
	}
	assert.Equal(t, 3, answered)
}

func TestHistoryCommands(t *testing.T) {
	b, fs := newTestBot(t, menuReply)
	ctx := context.Background()
	b.handleIncomingMessage(ctx, command(1, "/register a@x.com secret"))

	b.handleIncomingMessage(ctx, command(1, "/history"))
	assert.Contains(t, fs.last(), "empty")

	b.handleIncomingMessage(ctx, photo(1))
	b.wg.Wait()
	b.handleIncomingMessage(ctx, command(1, "/history"))
	assert.Contains(t, fs.last(), "History (1)")

	id := b.app.History.ListForUser(ctx, "a@x.com")[0].ID
	b.handleIncomingMessage(ctx, command(1, "/show "+id))
	assert.Contains(t, fs.last(), "Paella")
	b.handleIncomingMessage(ctx, command(1, "/show missing"))
	assert.Contains(t, fs.last(), "No such record")
	b.handleIncomingMessage(ctx, command(1, "/delete"))
	assert.Contains(t, fs.last(), "Usage")

	b.handleIncomingMessage(ctx, command(1, "/clear"))
	assert.Empty(t, b.app.History.ListForUser(ctx, "a@x.com"))
}

func TestMalformedReplyShowsFailure(t *testing.T) {
	b, fs := newTestBot(t, "sorry, no JSON today")
	ctx := context.Background()
	b.handleIncomingMessage(ctx, command(1, "/register a@x.com secret"))
	b.handleIncomingMessage(ctx, photo(1))
	b.wg.Wait()

	assert.True(t, strings.HasPrefix(fs.last(), "❌"))
	assert.Empty(t, b.app.History.ListForUser(ctx, "a@x.com"))
}

func TestReportCommand(t *testing.T) {
	b, fs := newTestBot(t, menuReply)
	ctx := context.Background()

	b.handleIncomingMessage(ctx, command(1, "/report"))
	assert.Contains(t, fs.last(), "administrator only")

	b.handleIncomingMessage(ctx, command(adminID, "/report"))
	fs.mu.Lock()
	msg := fs.sent[len(fs.sent)-1].(tgbotapi.MessageConfig)
	fs.mu.Unlock()
	assert.Equal(t, adminID, msg.ChatID)
	assert.True(t, strings.HasPrefix(msg.Text, "📊"))
}

func TestMediaOf(t *testing.T) {
	tests := []struct {
		name     string
		msg      *tgbotapi.Message
		wantOK   bool
		wantKind model.Kind
		wantMIME string
	}{
		{"photo", &tgbotapi.Message{Photo: []tgbotapi.PhotoSize{{FileID: "a"}}}, true, model.KindScan, "image/jpeg"},
		{"voice without mime", &tgbotapi.Message{Voice: &tgbotapi.Voice{FileID: "v"}}, true, model.KindAudio, "audio/ogg"},
		{"audio by extension", &tgbotapi.Message{Audio: &tgbotapi.Audio{FileID: "a", FileName: "talk.mp3"}}, true, model.KindAudio, "audio/mpeg"},
		{"image document", &tgbotapi.Message{Document: &tgbotapi.Document{FileID: "d", MimeType: "image/png"}}, true, model.KindScan, "image/png"},
		{"audio document", &tgbotapi.Message{Document: &tgbotapi.Document{FileID: "d", FileName: "memo.m4a"}}, true, model.KindAudio, "audio/mp4"},
		{"pdf document", &tgbotapi.Message{Document: &tgbotapi.Document{FileID: "d", MimeType: "application/pdf"}}, false, "", ""},
		{"text", &tgbotapi.Message{Text: "hi"}, false, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, ok := mediaOf(tt.msg)
			require.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantKind, in.kind)
			assert.Equal(t, tt.wantMIME, in.mimeType)
		})
	}
}

func TestMarkup(t *testing.T) {
	html := markup{mode: tgbotapi.ModeHTML}
	assert.Equal(t, "<b>a &lt; b</b>", html.bold("a < b"))

	plain := markup{}
	assert.Equal(t, "a < b", plain.bold("a < b"))

	md := markup{mode: tgbotapi.ModeMarkdown}
	assert.Equal(t, "*snake\\_case*", md.bold("snake_case"))

	assert.Contains(t, html.historyList([]history.Item{{ID: "id1", Kind: model.KindAudio, TargetLanguage: "French"}}), "<code>id1</code>")
	assert.Equal(t, maxMessageRunes+2, len([]rune(truncate(strings.Repeat("я", maxMessageRunes+10)))))
}
