// Package telegram is the chat front-end: users log in with their LensLingua
// account and send photos or voice messages for translation.
package telegram

import (
	"context"
	"net/http"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"lenslingua/internal/app"
	"lenslingua/internal/logging"
)

const (
	resetCmd     = "reset"
	deletePrefix = "del:"
	showPrefix   = "show:"
)

type Bot struct {
	api         *tgbotapi.BotAPI
	s           sender
	files       fileResolver
	app         *app.App
	sessions    *sessionStore
	adminUserID int64
	parseMode   string
	httpClient  *http.Client
	wg          sync.WaitGroup
}

func New(botToken string, a *app.App) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	s := botAPISender{api: api}
	b := newBot(s, s, a)
	b.api = api
	return b, nil
}

func newBot(s sender, files fileResolver, a *app.App) *Bot {
	return &Bot{
		s:           s,
		files:       files,
		app:         a,
		sessions:    &sessionStore{kv: a.Store},
		adminUserID: a.Config.AdminUserID,
		parseMode:   a.Config.MessageParseMode,
		httpClient:  &http.Client{Timeout: a.Config.LLMRequestTimeout},
	}
}

// Start polls for updates until ctx is canceled. Media updates run in their own
// goroutines; Start waits for them before returning.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	logging.NewLogger(ctx).Infof("🤖 Authorized on account @%s", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			return
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		b.handleIncomingMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

// SendReport delivers the daily report to the admin.
func (b *Bot) SendReport(_ context.Context, report string) error {
	if b.adminUserID == 0 {
		return nil
	}
	msg := tgbotapi.NewMessage(b.adminUserID, "📊 "+report)
	_, err := b.s.Send(msg)
	return err
}

func (b *Bot) markup() markup { return markup{mode: b.parseMode} }

func (b *Bot) sendMessage(chatID int64, text string) {
	b.sendWithKeyboard(chatID, text, nil)
}

func (b *Bot) sendWithKeyboard(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = b.parseMode
	if kb != nil {
		msg.ReplyMarkup = *kb
	}
	if _, err := b.s.Send(msg); err != nil {
		logging.NewLogger(context.Background()).Warnf("failed to send message: %v", err)
	}
}

func (b *Bot) editMessage(chatID int64, messageID int, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = b.parseMode
	edit.ReplyMarkup = kb
	if _, err := b.s.Send(edit); err != nil {
		logging.NewLogger(context.Background()).Warnf("failed to edit message: %v", err)
	}
}

func resultKeyboard(recordID string) *tgbotapi.InlineKeyboardMarkup {
	row := []tgbotapi.InlineKeyboardButton{}
	if recordID != "" {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", deletePrefix+recordID))
	}
	row = append(row, tgbotapi.NewInlineKeyboardButtonData("🔄 Reset", resetCmd))
	kb := tgbotapi.NewInlineKeyboardMarkup(row)
	return &kb
}
