package telegram

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"lenslingua/internal/app"
	"lenslingua/internal/capture"
	"lenslingua/internal/logging"
	"lenslingua/internal/media"
	"lenslingua/internal/model"
)

const historyPageSize = 10

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	if in, ok := mediaOf(msg); ok {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.handleMedia(ctx, msg, in)
		}()
		return
	}
	b.sendMessage(msg.Chat.ID, "📸 Send a photo of a menu or sign, or a voice message. /help lists commands.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID, userID := msg.Chat.ID, msg.From.ID
	args := strings.Fields(msg.CommandArguments())
	log := logging.NewLogger(ctx).WithField("user_id", userID).WithField("command", msg.Command())

	switch msg.Command() {
	case "start", "help":
		b.sendMessage(chatID, b.helpText())
	case "register":
		b.forgetSecret(chatID, msg.MessageID)
		if len(args) != 2 {
			b.sendMessage(chatID, "Usage: /register email password")
			return
		}
		if err := b.app.Auth.Register(ctx, args[0], args[1]); err != nil {
			b.sendMessage(chatID, b.markup().failure(app.Classify(err)))
			return
		}
		b.login(ctx, chatID, userID, args[0])
		log.Info("registered new account")
	case "login":
		b.forgetSecret(chatID, msg.MessageID)
		if len(args) != 2 {
			b.sendMessage(chatID, "Usage: /login email password")
			return
		}
		if err := b.app.Authenticate(ctx, args[0], args[1]); err != nil {
			log.Warn("login rejected")
			b.sendMessage(chatID, b.markup().failure(app.Classify(err)))
			return
		}
		b.login(ctx, chatID, userID, args[0])
	case "logout":
		if err := b.sessions.remove(ctx, userID); err != nil {
			log.Errorf("logout: %v", err)
		}
		b.sendMessage(chatID, "👋 Logged out.")
	case "report":
		b.handleReportCommand(ctx, msg)
	default:
		sess, ok := b.requireSession(ctx, msg)
		if !ok {
			return
		}
		b.handleAccountCommand(ctx, msg, sess, args)
	}
}

func (b *Bot) handleAccountCommand(ctx context.Context, msg *tgbotapi.Message, sess session, args []string) {
	chatID, userID := msg.Chat.ID, msg.From.ID
	m := b.markup()

	switch msg.Command() {
	case "lang":
		if len(args) == 0 {
			b.sendMessage(chatID, "🌐 Target language: "+m.bold(b.languageOf(sess)))
			return
		}
		sess.Language = strings.Join(args, " ")
		if err := b.sessions.set(ctx, userID, sess); err != nil {
			b.sendMessage(chatID, m.failure(app.Classify(err)))
			return
		}
		b.sendMessage(chatID, "🌐 Target language set to "+m.bold(sess.Language))
	case "history":
		b.sendHistory(ctx, chatID, sess.Email)
	case "show":
		if len(args) != 1 {
			b.sendMessage(chatID, "Usage: /show id")
			return
		}
		b.showRecord(ctx, chatID, sess.Email, args[0])
	case "delete":
		if len(args) != 1 {
			b.sendMessage(chatID, "Usage: /delete id")
			return
		}
		b.deleteRecord(ctx, chatID, sess.Email, args[0])
	case "clear":
		if err := b.app.History.ClearForUser(ctx, sess.Email); err != nil {
			b.sendMessage(chatID, m.failure(app.Classify(err)))
			return
		}
		b.sendMessage(chatID, "🧹 History cleared.")
	case "status":
		state := b.app.Controller.Status(sess.Email)
		b.sendWithKeyboard(chatID, m.status(state), resultKeyboard(state.RecordID))
	case "reset":
		b.app.Controller.Reset(sess.Email)
		b.sendMessage(chatID, "🔄 Ready for a new capture.")
	default:
		b.sendMessage(chatID, "Unknown command. /help lists what I can do.")
	}
}

// handleReportCommand sends today's statistics (admin only).
func (b *Bot) handleReportCommand(ctx context.Context, msg *tgbotapi.Message) {
	if b.adminUserID == 0 || msg.From.ID != b.adminUserID {
		b.sendMessage(msg.Chat.ID, "❌ This command is available to the administrator only.")
		return
	}
	stats, err := b.app.DailyStats(time.Now().UTC())
	if err != nil {
		logging.NewLogger(ctx).Errorf("❌ Report generation failed: %v", err)
		b.sendMessage(msg.Chat.ID, b.markup().failure(app.Classify(err)))
		return
	}
	if err := b.SendReport(ctx, stats.GenerateReportSummary()); err != nil {
		logging.NewLogger(ctx).Errorf("❌ Report delivery failed: %v", err)
	}
}

type mediaInput struct {
	kind     model.Kind
	fileID   string
	mimeType string
}

// mediaOf picks the capture carried by msg: photos and image documents are
// scans, voice notes, audio files and audio documents are recordings.
func mediaOf(msg *tgbotapi.Message) (mediaInput, bool) {
	switch {
	case len(msg.Photo) > 0:
		largest := msg.Photo[len(msg.Photo)-1]
		return mediaInput{kind: model.KindScan, fileID: largest.FileID, mimeType: "image/jpeg"}, true
	case msg.Voice != nil:
		return mediaInput{kind: model.KindAudio, fileID: msg.Voice.FileID, mimeType: orDefault(msg.Voice.MimeType, "audio/ogg")}, true
	case msg.Audio != nil:
		mt := msg.Audio.MimeType
		if mt == "" {
			mt = media.TypeByExtension(filepath.Ext(msg.Audio.FileName))
		}
		return mediaInput{kind: model.KindAudio, fileID: msg.Audio.FileID, mimeType: mt}, true
	case msg.Document != nil:
		mt := msg.Document.MimeType
		if mt == "" || mt == "application/octet-stream" {
			mt = media.TypeByExtension(filepath.Ext(msg.Document.FileName))
		}
		if _, ok := media.ImageFormat(mt); ok {
			return mediaInput{kind: model.KindScan, fileID: msg.Document.FileID, mimeType: mt}, true
		}
		if _, ok := media.AudioFormat(mt); ok {
			return mediaInput{kind: model.KindAudio, fileID: msg.Document.FileID, mimeType: mt}, true
		}
	}
	return mediaInput{}, false
}

func (b *Bot) handleMedia(ctx context.Context, msg *tgbotapi.Message, in mediaInput) {
	sess, ok := b.requireSession(ctx, msg)
	if !ok {
		return
	}
	chatID := msg.Chat.ID
	m := b.markup()
	log := logging.NewLogger(ctx).WithField("email", sess.Email).WithField("kind", string(in.kind))

	url, err := b.files.GetFileDirectURL(in.fileID)
	if err != nil {
		log.Errorf("resolve telegram file: %v", err)
		b.sendMessage(chatID, m.failure(app.Classify(fmt.Errorf("%w: %v", capture.ErrPermissionDenied, err))))
		return
	}

	progress, err := b.s.Send(tgbotapi.NewMessage(chatID, "⏳ Reading and translating…"))
	if err != nil {
		log.Warnf("failed to send progress message: %v", err)
	}

	state, err := b.app.Controller.Translate(ctx, app.Request{
		Email:          sess.Email,
		Kind:           in.kind,
		Source:         capture.URLSource{URL: url, MIMEType: in.mimeType, HTTPClient: b.httpClient},
		TargetLanguage: sess.Language,
	})

	var text string
	var kb *tgbotapi.InlineKeyboardMarkup
	switch {
	case errors.Is(err, app.ErrBusy):
		text = m.failure(app.Classify(err))
	case err != nil:
		text = m.failure(app.Classify(err))
		kb = resultKeyboard("")
	default:
		text = m.result(state)
		kb = resultKeyboard(state.RecordID)
	}

	if progress.MessageID != 0 {
		b.editMessage(chatID, progress.MessageID, text, kb)
		return
	}
	b.sendWithKeyboard(chatID, text, kb)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.From == nil || cb.Message == nil {
		return
	}
	if _, err := b.s.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		logging.NewLogger(ctx).Warnf("failed to answer callback: %v", err)
	}
	sess, ok := b.sessions.get(ctx, cb.From.ID)
	if !ok {
		b.sendMessage(cb.Message.Chat.ID, "🔐 Please /login first.")
		return
	}
	chatID := cb.Message.Chat.ID

	switch {
	case cb.Data == resetCmd:
		b.app.Controller.Reset(sess.Email)
		b.sendMessage(chatID, "🔄 Ready for a new capture.")
	case strings.HasPrefix(cb.Data, deletePrefix):
		b.deleteRecord(ctx, chatID, sess.Email, strings.TrimPrefix(cb.Data, deletePrefix))
	case strings.HasPrefix(cb.Data, showPrefix):
		b.showRecord(ctx, chatID, sess.Email, strings.TrimPrefix(cb.Data, showPrefix))
	}
}

func (b *Bot) sendHistory(ctx context.Context, chatID int64, email string) {
	records := b.app.History.ListForUser(ctx, email)
	if len(records) > historyPageSize {
		records = records[:historyPageSize]
	}
	if len(records) == 0 {
		b.sendMessage(chatID, b.markup().historyList(nil))
		return
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(records))
	for i, rec := range records {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("👁 %d", i+1), showPrefix+rec.ID),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🗑 %d", i+1), deletePrefix+rec.ID),
		))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	b.sendWithKeyboard(chatID, b.markup().historyList(records), &kb)
}

func (b *Bot) showRecord(ctx context.Context, chatID int64, email, id string) {
	rec, ok := b.app.History.Get(ctx, email, id)
	if !ok {
		b.sendMessage(chatID, "🔎 No such record.")
		return
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", deletePrefix+rec.ID),
	))
	b.sendWithKeyboard(chatID, b.markup().record(rec), &kb)
}

func (b *Bot) deleteRecord(ctx context.Context, chatID int64, email, id string) {
	if err := b.app.History.DeleteOne(ctx, email, id); err != nil {
		b.sendMessage(chatID, b.markup().failure(app.Classify(err)))
		return
	}
	b.sendMessage(chatID, "🗑 Deleted.")
}

func (b *Bot) login(ctx context.Context, chatID, userID int64, email string) {
	sess, _ := b.sessions.get(ctx, userID)
	sess.Email = model.NormalizeEmail(email)
	if err := b.sessions.set(ctx, userID, sess); err != nil {
		b.sendMessage(chatID, b.markup().failure(app.Classify(err)))
		return
	}
	b.sendMessage(chatID, "✅ Logged in as "+b.markup().bold(sess.Email)+". Send a photo or a voice message.")
}

func (b *Bot) requireSession(ctx context.Context, msg *tgbotapi.Message) (session, bool) {
	sess, ok := b.sessions.get(ctx, msg.From.ID)
	if !ok {
		b.sendMessage(msg.Chat.ID, "🔐 Please /login email password or /register email password first.")
	}
	return sess, ok
}

// forgetSecret removes a message carrying a password from the chat.
func (b *Bot) forgetSecret(chatID int64, messageID int) {
	if _, err := b.s.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		logging.NewLogger(context.Background()).Warnf("failed to delete credentials message: %v", err)
	}
}

func (b *Bot) languageOf(sess session) string {
	return orDefault(sess.Language, b.app.Config.DefaultTargetLanguage)
}

func (b *Bot) helpText() string {
	m := b.markup()
	lines := []string{
		m.bold("LensLingua") + " reads menus, signs and speech and translates them.",
		"",
		"/register email password - create an account",
		"/login email password - sign in",
		"/logout - sign out",
		"/lang language - set the target language",
		"/history - recent translations",
		"/show id - show one translation",
		"/delete id - delete one translation",
		"/clear - delete all translations",
		"/status - current state",
		"/reset - cancel and start over",
		"",
		"Send a photo to scan it, or a voice message to translate speech.",
	}
	for i := 2; i < len(lines); i++ {
		lines[i] = m.esc(lines[i])
	}
	return strings.Join(lines, "\n")
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
