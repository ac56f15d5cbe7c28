// Package telegram dispatches notifications and replies through the
// Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nodeseek_bot/internal/model"
	"nodeseek_bot/internal/storage"
)

// ErrPushDisabled is returned when a notification is requested but no chat
// is bound or pushing is stopped. The dispatcher checks this itself, so it
// is safe to call unconditionally.
var ErrPushDisabled = errors.New("push disabled or no chat bound")

// ErrNoToken is returned when the stored configuration has no bot token.
var ErrNoToken = errors.New("no bot token configured")

type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Client sends messages with the bot token held in the stored
// configuration. The token lives in the database and may be set or changed
// after startup, so the underlying API client is built lazily and rebuilt
// when the token changes.
type Client struct {
	store  storage.Storage
	newAPI func(token string) (botAPI, error)

	mu    sync.Mutex
	token string
	api   botAPI
}

// New creates a Client backed by the real Bot API.
func New(store storage.Storage) *Client {
	return &Client{
		store: store,
		newAPI: func(token string) (botAPI, error) {
			return tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint,
				&http.Client{Timeout: 15 * time.Second})
		},
	}
}

func (c *Client) apiForToken(token string) (botAPI, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.api != nil && c.token == token {
		return c.api, nil
	}
	api, err := c.newAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	c.token = token
	c.api = api
	return api, nil
}

// SendText sends a plain HTML-mode message to the given chat. A transport
// error or an ok:false API response surfaces as an error; nothing panics.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	cfg, err := c.store.GetConfig(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	api, err := c.apiForToken(cfg.BotToken)
	if err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SetWebhook registers the inbound webhook URL with the Bot API.
func (c *Client) SetWebhook(ctx context.Context, url string) error {
	cfg, err := c.store.GetConfig(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	api, err := c.apiForToken(cfg.BotToken)
	if err != nil {
		return err
	}

	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("webhook config: %w", err)
	}
	if _, err := api.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	return nil
}

// ValidateToken checks a bot token against the getMe endpoint. It needs no
// stored state and can be used before any configuration exists.
func ValidateToken(token string) error {
	_, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint,
		&http.Client{Timeout: 15 * time.Second})
	if err != nil {
		return fmt.Errorf("validate token: %w", err)
	}
	return nil
}

// SendPostNotification delivers a matched-post notification to the bound
// chat. It re-reads the configuration and refuses when no chat is bound or
// pushing is stopped, independent of any check the caller already made.
func (c *Client) SendPostNotification(ctx context.Context, post model.Post, keywords []string) error {
	cfg, err := c.store.GetConfig(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.ChatID == 0 || cfg.StopPush {
		return ErrPushDisabled
	}
	return c.SendText(ctx, cfg.ChatID, FormatNotification(post, keywords))
}

// FormatNotification renders the HTML notification message for a matched post.
func FormatNotification(post model.Post, keywords []string) string {
	memo := post.Memo
	if runes := []rune(memo); len(runes) > 200 {
		memo = string(runes[:200]) + "..."
	}

	return fmt.Sprintf(`🔔 <b>New matching post</b>

<b>Title:</b> %s
<b>Author:</b> %s
<b>Category:</b> %s
<b>Keywords:</b> %s

<b>Summary:</b> %s

<b>Published:</b> %s`,
		html.EscapeString(post.Title),
		html.EscapeString(post.Creator),
		html.EscapeString(post.Category),
		html.EscapeString(strings.Join(keywords, ", ")),
		html.EscapeString(memo),
		post.PubDate.Format("2006-01-02 15:04 UTC"),
	)
}
