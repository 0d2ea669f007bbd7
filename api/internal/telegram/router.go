package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"cf-hints/api/internal/hints"
	"cf-hints/api/internal/store"
)

// Sender is the part of *tgbotapi.BotAPI the router uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Router answers chat commands from the hint cache. It never triggers generation.
type Router struct {
	Bot   Sender
	Hints store.HintStore
	Log   *zap.Logger
}

// Reply is one outgoing message.
type Reply struct {
	Text     string
	Keyboard *tgbotapi.InlineKeyboardMarkup
}

func (r *Router) log() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(ctx, *upd.CallbackQuery)
		return
	}
	if upd.Message == nil || !upd.Message.IsCommand() {
		return
	}
	m := upd.Message
	r.send(m.Chat.ID, r.Command(ctx, m.Command(), m.CommandArguments()))
}

// Command builds the reply for a slash command.
func (r *Router) Command(ctx context.Context, cmd, args string) Reply {
	switch cmd {
	case "start", "help":
		return Reply{Text: "Send /hints <problemCode> (for example /hints 1900A) to get hints for a Codeforces problem.\n" +
			"Hints appear after the problem and its editorial were captured by the browser extension.\n" +
			"Commands: /hints, /status"}
	case "status":
		return Reply{Text: "✅ Codeforces Hint Helper bot is running"}
	case "hints":
		code := strings.TrimSpace(args)
		if code == "" {
			return Reply{Text: "Usage: /hints <problemCode>"}
		}
		return r.hint(ctx, code, 0)
	default:
		return Reply{Text: "Unknown command. Try /start"}
	}
}

// hint renders hint number idx for code, with a button for the next one.
func (r *Router) hint(ctx context.Context, code string, idx int) Reply {
	if !store.ValidID(code) {
		return Reply{Text: "Invalid problem code: " + code}
	}
	hs, err := r.Hints.Read(ctx, code)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return Reply{Text: "No hints yet for " + code + "."}
	case err != nil:
		r.log().Error("read hints failed", zap.String("problem_code", code), zap.Error(err))
		return Reply{Text: "Could not read hints for " + code + ", try again later."}
	}
	if len(hs) == 0 {
		return Reply{Text: "No hints yet for " + code + "."}
	}
	if idx < 0 || idx >= len(hs) {
		return Reply{Text: "That was the last hint for " + code + "."}
	}
	rep := Reply{Text: formatHint(code, idx, hs)}
	if idx+1 < len(hs) {
		kb := nextHintKeyboard(code, idx+1)
		rep.Keyboard = &kb
	}
	return rep
}

func formatHint(code string, idx int, hs hints.HintSet) string {
	return fmt.Sprintf("💡 *%s, hint %d/%d*\n%s", esc(code), idx+1, len(hs), esc(strings.TrimSpace(hs[idx])))
}

const nextPrefix = "hint_next:"

func nextHintKeyboard(code string, idx int) tgbotapi.InlineKeyboardMarkup {
	btn := tgbotapi.NewInlineKeyboardButtonData("Next hint", nextPrefix+code+":"+strconv.Itoa(idx))
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(btn))
}

// parseNext decodes "hint_next:<code>:<idx>".
func parseNext(data string) (string, int, bool) {
	rest, ok := strings.CutPrefix(data, nextPrefix)
	if !ok {
		return "", 0, false
	}
	i := strings.LastIndexByte(rest, ':')
	if i <= 0 {
		return "", 0, false
	}
	idx, err := strconv.Atoi(rest[i+1:])
	if err != nil {
		return "", 0, false
	}
	return rest[:i], idx, true
}

func (r *Router) handleCallback(ctx context.Context, cq tgbotapi.CallbackQuery) {
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cq.ID, ""))
	if cq.Message == nil {
		return
	}
	code, idx, ok := parseNext(cq.Data)
	if !ok {
		return
	}
	r.send(cq.Message.Chat.ID, r.hint(ctx, code, idx))
}

func (r *Router) send(chatID int64, rep Reply) {
	msg := tgbotapi.NewMessage(chatID, rep.Text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if rep.Keyboard != nil {
		msg.ReplyMarkup = *rep.Keyboard
	}
	if _, err := r.Bot.Send(msg); err != nil {
		r.log().Warn("telegram send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// esc guards against Markdown injection from hint text.
func esc(s string) string {
	s = strings.ReplaceAll(s, "`", "'")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "[", "\\[")
	return s
}
