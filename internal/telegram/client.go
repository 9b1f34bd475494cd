// Package telegram adapts the Telegram Bot API to the bridge's gateway
// interfaces: long polling for inbound channel posts and edits, rate-limited
// sends into the destination group, and chat locator resolution.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mymmrac/telego"
	"golang.org/x/time/rate"

	"github.com/nextlevelbuilder/lingorelay/internal/bridge"
	"github.com/nextlevelbuilder/lingorelay/internal/config"
)

// Client connects to Telegram via the Bot API using long polling.
type Client struct {
	bot        *telego.Bot
	limiter    *rate.Limiter
	pollCancel context.CancelFunc
	pollDone   chan struct{}
}

// New creates a Telegram client from config.
func New(cfg config.TelegramConfig) (*Client, error) {
	var opts []telego.BotOption

	if cfg.APIURL != "" {
		if _, err := url.Parse(cfg.APIURL); err != nil {
			return nil, fmt.Errorf("invalid api url %q: %w", cfg.APIURL, err)
		}
		opts = append(opts, telego.WithAPIServer(cfg.APIURL))
	}
	opts = append(opts, telego.WithHTTPClient(&http.Client{Timeout: 90 * time.Second}))

	bot, err := telego.NewBot(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &Client{
		bot: bot,
		// Bot API allows roughly 20 messages per minute into one group.
		limiter:  rate.NewLimiter(rate.Every(3*time.Second), 5),
		pollDone: make(chan struct{}),
	}, nil
}

// Start begins long polling and feeds normalized events to handler until
// the context is canceled. Channel posts and plain group messages both
// count as inbound; everything else is skipped.
func (c *Client) Start(ctx context.Context, handler func(bridge.Event)) error {
	slog.Info("starting telegram client (polling mode)")

	pollCtx, cancel := context.WithCancel(ctx)
	c.pollCancel = cancel

	updates, err := c.bot.UpdatesViaLongPolling(pollCtx, &telego.GetUpdatesParams{
		Timeout: 30,
		AllowedUpdates: []string{
			"message",
			"edited_message",
			"channel_post",
			"edited_channel_post",
		},
	})
	if err != nil {
		cancel()
		return fmt.Errorf("start long polling: %w", err)
	}

	slog.Info("telegram client connected")

	go func() {
		defer close(c.pollDone)
		for {
			select {
			case <-pollCtx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					slog.Warn("telegram updates channel closed")
					return
				}
				ev, ok := eventFromUpdate(update)
				if !ok {
					slog.Debug("telegram update skipped", "update_id", update.UpdateID)
					continue
				}
				handler(ev)
			}
		}
	}()

	return nil
}

// Stop cancels long polling and waits for the polling goroutine to exit so
// Telegram releases the getUpdates lock before a new instance starts.
func (c *Client) Stop() {
	slog.Info("stopping telegram client")
	if c.pollCancel == nil {
		return
	}
	c.pollCancel()
	select {
	case <-c.pollDone:
	case <-time.After(10 * time.Second):
		slog.Warn("telegram polling goroutine did not exit within timeout")
	}
}

// Done is closed when the polling goroutine exits, whether through Stop or
// an unexpected close of the updates stream. Callers supervising the
// process can watch it to avoid idling deaf after a silent poll death.
func (c *Client) Done() <-chan struct{} { return c.pollDone }

// ResolveLocator resolves an @username locator to its numeric chat ID.
func (c *Client) ResolveLocator(ctx context.Context, locator string) (int64, error) {
	chat, err := c.bot.GetChat(ctx, &telego.GetChatParams{
		ChatID: telego.ChatID{Username: locator},
	})
	if err != nil {
		return 0, fmt.Errorf("get chat %q: %w", locator, err)
	}
	return chat.ID, nil
}
