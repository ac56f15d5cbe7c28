package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nodeseek_bot/internal/matcher"
	"nodeseek_bot/internal/model"
	"nodeseek_bot/internal/storage"
)

const notInitializedReply = "System is not initialized yet. Complete the initial setup on the web side first."

const recentPostLimit = 10

// statsWindow bounds how many recent posts feed the /stats aggregation.
const statsWindow = 100

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message, _ string) {
	chatID := msg.Chat.ID

	cfg, err := b.store.GetConfig(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.reply(ctx, chatID, notInitializedReply)
		} else {
			b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		}
		return
	}

	if _, err := b.store.UpdateConfig(ctx, model.ConfigUpdate{ChatID: &chatID}); err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		return
	}

	status := "pushing"
	if cfg.StopPush {
		status = "push stopped"
	}
	b.reply(ctx, chatID, helpText+"\n\nCurrent status: "+status)
}

func (b *Bot) handleBind(ctx context.Context, msg *tgbotapi.Message, _ string) {
	chatID := msg.Chat.ID

	if _, err := b.store.GetConfig(ctx); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.reply(ctx, chatID, notInitializedReply)
		} else {
			b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		}
		return
	}

	boundUser := ""
	if msg.From != nil {
		blob, err := json.Marshal(map[string]any{
			"id":         msg.From.ID,
			"first_name": msg.From.FirstName,
			"last_name":  msg.From.LastName,
			"username":   msg.From.UserName,
		})
		if err == nil {
			boundUser = string(blob)
		}
	}

	upd := model.ConfigUpdate{ChatID: &chatID, BoundUser: &boundUser}
	if _, err := b.store.UpdateConfig(ctx, upd); err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("This chat (%d) is now bound and will receive notifications.", chatID))
}

func (b *Bot) handleStop(ctx context.Context, msg *tgbotapi.Message, _ string) {
	b.setStopPush(ctx, msg.Chat.ID, true, "Pushing stopped. Use /resume to turn it back on.")
}

func (b *Bot) handleResume(ctx context.Context, msg *tgbotapi.Message, _ string) {
	b.setStopPush(ctx, msg.Chat.ID, false, "Pushing resumed.")
}

func (b *Bot) setStopPush(ctx context.Context, chatID int64, stop bool, confirmation string) {
	if _, err := b.store.UpdateConfig(ctx, model.ConfigUpdate{StopPush: &stop}); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.reply(ctx, chatID, notInitializedReply)
		} else {
			b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		}
		return
	}
	b.reply(ctx, chatID, confirmation)
}

func (b *Bot) handleList(ctx context.Context, msg *tgbotapi.Message, _ string) {
	subs, err := b.store.ListSubscriptions(ctx)
	if err != nil {
		b.reply(ctx, msg.Chat.ID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(ctx, msg.Chat.ID, FormatSubscriptionList(subs))
}

func (b *Bot) handleAdd(ctx context.Context, msg *tgbotapi.Message, args string) {
	if strings.TrimSpace(args) == "" {
		b.reply(ctx, msg.Chat.ID, "Usage: /add <keyword1> [keyword2] [keyword3] [creator:name] [category:name]")
		return
	}

	sub, err := ParseAddArgs(args)
	if err != nil {
		b.reply(ctx, msg.Chat.ID, err.Error())
		return
	}

	if violations := matcher.Validate(sub); len(violations) > 0 {
		b.reply(ctx, msg.Chat.ID, "Subscription rejected:\n- "+strings.Join(violations, "\n- "))
		return
	}

	if err := b.store.CreateSubscription(ctx, &sub); err != nil {
		b.reply(ctx, msg.Chat.ID, fmt.Sprintf("Failed to save subscription: %v", err))
		return
	}
	b.reply(ctx, msg.Chat.ID, FormatSubscriptionAdded(sub))
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(ctx, msg.Chat.ID, "Usage: /delete <subscription_id>")
		return
	}

	if err := b.store.DeleteSubscription(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.reply(ctx, msg.Chat.ID, fmt.Sprintf("Subscription #%d not found.", id))
		} else {
			b.reply(ctx, msg.Chat.ID, fmt.Sprintf("Error: %v", err))
		}
		return
	}
	b.reply(ctx, msg.Chat.ID, fmt.Sprintf("Subscription #%d deleted.", id))
}

func (b *Bot) handlePost(ctx context.Context, msg *tgbotapi.Message, _ string) {
	posts, err := b.store.ListRecentPosts(ctx, recentPostLimit)
	if err != nil {
		b.reply(ctx, msg.Chat.ID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(ctx, msg.Chat.ID, FormatRecentPosts(posts))
}

func (b *Bot) handleStats(ctx context.Context, msg *tgbotapi.Message, _ string) {
	chatID := msg.Chat.ID

	cfg, err := b.store.GetConfig(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.reply(ctx, chatID, notInitializedReply)
		} else {
			b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		}
		return
	}

	posts, err := b.store.ListRecentPosts(ctx, statsWindow)
	if err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	subs, err := b.store.ListSubscriptions(ctx)
	if err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		return
	}

	midnight := time.Now().UTC().Truncate(24 * time.Hour)
	pushedToday, err := b.store.CountPushedSince(ctx, midnight)
	if err != nil {
		b.reply(ctx, chatID, fmt.Sprintf("Error: %v", err))
		return
	}

	summary := matcher.Stats(posts, subs, *cfg, pushedToday)
	b.reply(ctx, chatID, FormatStats(summary))
}

func (b *Bot) handleHelp(ctx context.Context, msg *tgbotapi.Message, _ string) {
	b.reply(ctx, msg.Chat.ID, helpText)
}
