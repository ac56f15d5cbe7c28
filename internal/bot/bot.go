// Package bot interprets inbound chat commands and mutates subscription
// and delivery state.
package bot

import (
	"context"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nodeseek_bot/internal/storage"
)

// Sender is the interface for sending replies back to the chat.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// command is the closed set of recognized chat commands.
type command string

const (
	cmdStart  command = "start"
	cmdBind   command = "bind"
	cmdStop   command = "stop"
	cmdResume command = "resume"
	cmdList   command = "list"
	cmdAdd    command = "add"
	cmdDelete command = "delete"
	cmdPost   command = "post"
	cmdStats  command = "stats"
	cmdHelp   command = "help"
)

type handlerFunc func(ctx context.Context, msg *tgbotapi.Message, args string)

// Bot handles one inbound webhook update per invocation. It keeps no
// conversation state of its own; binding state lives in the stored
// configuration.
type Bot struct {
	store    storage.Storage
	sender   Sender
	log      *slog.Logger
	handlers map[command]handlerFunc
}

// New creates a Bot.
func New(store storage.Storage, sender Sender, log *slog.Logger) *Bot {
	b := &Bot{store: store, sender: sender, log: log}
	b.handlers = map[command]handlerFunc{
		cmdStart:  b.handleStart,
		cmdBind:   b.handleBind,
		cmdStop:   b.handleStop,
		cmdResume: b.handleResume,
		cmdList:   b.handleList,
		cmdAdd:    b.handleAdd,
		cmdDelete: b.handleDelete,
		cmdPost:   b.handlePost,
		cmdStats:  b.handleStats,
		cmdHelp:   b.handleHelp,
	}
	return b
}

// HandleUpdate interprets one webhook update. Unknown or malformed input
// always resolves to a reply; nothing here returns an error to the caller.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Text == "" {
		return
	}

	token, args := splitCommand(msg.Text)
	if token == "" {
		return
	}

	b.log.Debug("command", "cmd", token, "chat_id", msg.Chat.ID)

	h, ok := b.handlers[command(token)]
	if !ok {
		b.reply(ctx, msg.Chat.ID, "Unknown command. Use /help for the command reference.")
		return
	}
	h(ctx, msg, args)
}

// splitCommand extracts the command token (the first whitespace-delimited
// word, without the leading slash and any @botname suffix) and the
// remaining argument string. Plain text without a slash still yields a
// token, so it falls through to the unknown-command reply.
func splitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ""
	}
	token := text
	args := ""
	if i := strings.IndexAny(text, " \t\n"); i >= 0 {
		token, args = text[:i], strings.TrimSpace(text[i+1:])
	}
	token = strings.TrimPrefix(token, "/")
	if i := strings.Index(token, "@"); i >= 0 {
		token = token[:i]
	}
	return token, args
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.sender.SendText(ctx, chatID, text); err != nil {
		b.log.Error("send reply", "chat_id", chatID, "error", err)
	}
}
