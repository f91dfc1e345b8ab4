// Package telegram adapts the go-telegram/bot client to the chat port: it
// turns polled updates into the bot's inbound message stream and sends
// replies.
package telegram

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
	"go.uber.org/zap"

	"github.com/edgard/attendancebot/internal/config"
	"github.com/edgard/attendancebot/internal/logger"
)

// requestSlack is added to the long-poll timeout for the HTTP client deadline.
const requestSlack = 10 * time.Second

// newTelegramBot creates a new Telegram bot instance using the go-telegram/bot library.
func newTelegramBot(cfg config.TelegramConfig, log *zap.Logger, opts ...bot.Option) (*bot.Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}

	base := []bot.Option{
		bot.WithMiddlewares(logger.Middleware(log)),
		bot.WithErrorsHandler(func(err error) {
			log.Warn("telegram polling error", zap.Error(err))
		}),
		bot.WithHTTPClient(cfg.PollTimeout, &http.Client{Timeout: cfg.PollTimeout + requestSlack}),
		// Handlers only forward into the message stream; running them on the
		// polling goroutine gives the stream natural backpressure.
		bot.WithNotAsyncHandlers(),
	}

	b, err := bot.New(cfg.Token, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	log.Info("telegram bot instance created", zap.String("token_prefix", tokenPrefix(cfg.Token)))
	return b, nil
}

func tokenPrefix(token string) string {
	if len(token) <= 8 {
		return "..."
	}
	return token[:8] + "..."
}
