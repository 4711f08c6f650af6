package telegram

import (
	"context"
	"errors"
	"fmt"
	"golang-jobrunner/config"
	"golang-jobrunner/pkg/logger"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"
)

var ErrNotConfigured = errors.New("telegram bot token is not configured")

// Notifier sends plain messages through the Bot API, throttled globally.
type Notifier struct {
	cfg           *config.TelegramConfig
	log           *logger.Logger
	bot           *telebot.Bot
	globalLimiter *rate.Limiter
}

// NewNotifier builds an offline bot (no polling); a missing token yields a
// disabled notifier rather than an error.
func NewNotifier(cfg *config.TelegramConfig, log *logger.Logger, apiURL string) (*Notifier, error) {
	n := &Notifier{
		cfg:           cfg,
		log:           log,
		globalLimiter: rate.NewLimiter(rate.Limit(max(cfg.MaxGlobalRequestPerSecond, 1)), max(cfg.MaxGlobalRequestPerSecond, 1)),
	}
	if cfg.BotToken == "" {
		return n, nil
	}

	timeout := cfg.TimeoutDuration
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	bot, err := telebot.NewBot(telebot.Settings{
		URL:     apiURL,
		Token:   cfg.BotToken,
		Offline: true,
		Client:  &http.Client{Timeout: timeout},
		OnError: func(err error, c telebot.Context) {
			log.Error("Telegram bot error", logger.ErrorField(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	n.bot = bot
	return n, nil
}

// Enabled reports whether a bot token was configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.bot != nil
}

// Send delivers text to chatID; chatID 0 falls back to the configured chat.
func (n *Notifier) Send(ctx context.Context, chatID int64, text string) error {
	if !n.Enabled() {
		return ErrNotConfigured
	}
	if chatID == 0 {
		chatID = n.cfg.ChatID
	}
	if chatID == 0 {
		return errors.New("telegram chat id is not configured")
	}
	if err := n.globalLimiter.Wait(ctx); err != nil {
		n.log.ErrorContext(ctx, "Failed to wait for global rate limit", logger.ErrorField(err))
		return err
	}
	if _, err := n.bot.Send(&telebot.Chat{ID: chatID}, text); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

// Alert implements logger.Alerter.
func (n *Notifier) Alert(ctx context.Context, text string) error {
	return n.Send(ctx, 0, text)
}
