package telegram

import (
	"fmt"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"lenslingua/internal/app"
	"lenslingua/internal/history"
	"lenslingua/internal/model"
)

// Telegram rejects messages longer than 4096 characters.
const maxMessageRunes = 4000

// markup renders text for one Telegram parse mode. An empty mode means plain text.
type markup struct{ mode string }

func (m markup) esc(s string) string {
	if m.mode == "" {
		return s
	}
	if out := tgbotapi.EscapeText(m.mode, s); out != "" || s == "" {
		return out
	}
	return s
}

func (m markup) bold(s string) string {
	switch m.mode {
	case tgbotapi.ModeHTML:
		return "<b>" + m.esc(s) + "</b>"
	case tgbotapi.ModeMarkdown, tgbotapi.ModeMarkdownV2:
		return "*" + m.esc(s) + "*"
	default:
		return s
	}
}

func (m markup) italic(s string) string {
	switch m.mode {
	case tgbotapi.ModeHTML:
		return "<i>" + m.esc(s) + "</i>"
	case tgbotapi.ModeMarkdown, tgbotapi.ModeMarkdownV2:
		return "_" + m.esc(s) + "_"
	default:
		return s
	}
}

func (m markup) code(s string) string {
	switch m.mode {
	case tgbotapi.ModeHTML:
		return "<code>" + m.esc(s) + "</code>"
	case tgbotapi.ModeMarkdown, tgbotapi.ModeMarkdownV2:
		return "`" + s + "`"
	default:
		return s
	}
}

func kindIcon(k model.Kind) string {
	if k == model.KindAudio {
		return "🎙"
	}
	return "📷"
}

func (m markup) items(items []model.ExtractedItem) string {
	var sb strings.Builder
	for i, it := range items {
		fmt.Fprintf(&sb, "%d. %s", i+1, m.bold(it.OriginalText))
		if it.TranslatedText != "" {
			sb.WriteString(" → " + m.esc(it.TranslatedText))
		}
		sb.WriteString("\n")
		if it.Context != "" {
			sb.WriteString("   " + m.italic(it.Context) + "\n")
		}
		if it.Allergens != "" {
			sb.WriteString("   ⚠️ " + m.esc(it.Allergens) + "\n")
		}
	}
	return sb.String()
}

func (m markup) result(state app.State) string {
	if state.Result == nil || len(state.Result.Items) == 0 {
		return "🤷 Nothing readable was found. Try another photo or recording."
	}
	var sb strings.Builder
	sb.WriteString(kindIcon(state.Kind) + " " + m.bold("Translated to "+state.TargetLanguage) + "\n\n")
	sb.WriteString(m.items(state.Result.Items))
	return truncate(sb.String())
}

func (m markup) failure(f app.Failure) string {
	return "❌ " + m.esc(f.Message)
}

func (m markup) status(state app.State) string {
	switch state.Phase {
	case app.PhaseProcessing:
		return "⏳ Working on your " + string(state.Kind) + "…"
	case app.PhaseSuccess:
		return m.result(state)
	case app.PhaseError:
		if state.Failure != nil {
			return m.failure(*state.Failure)
		}
	}
	return "💤 Idle. Send a photo or a voice message."
}

func (m markup) historyList(records []history.Item) string {
	if len(records) == 0 {
		return "📭 History is empty."
	}
	var sb strings.Builder
	sb.WriteString(m.bold(fmt.Sprintf("History (%d)", len(records))) + "\n\n")
	for i, rec := range records {
		first := ""
		if len(rec.Items) > 0 {
			first = rec.Items[0].OriginalText
		}
		fmt.Fprintf(&sb, "%d. %s %s · %s · %d items\n   %s %s\n",
			i+1, kindIcon(rec.Kind), rec.CreatedAt.Format("02 Jan 15:04"),
			m.esc(rec.TargetLanguage), len(rec.Items), m.esc(first), m.code(rec.ID))
	}
	return truncate(sb.String())
}

func (m markup) record(rec history.Item) string {
	head := fmt.Sprintf("%s %s · %s", kindIcon(rec.Kind), rec.CreatedAt.Format("02 Jan 2006 15:04"), rec.TargetLanguage)
	return truncate(m.bold(head) + "\n\n" + m.items(rec.Items))
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxMessageRunes {
		return s
	}
	r := []rune(s)
	return string(r[:maxMessageRunes]) + "\n…"
}
