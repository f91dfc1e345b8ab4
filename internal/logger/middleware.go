package logger

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Middleware creates a logging middleware for the Telegram bot.
// It logs information about incoming updates at debug level.
func Middleware(log *zap.Logger) bot.Middleware {
	log = log.Named("updates")

	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			startTime := time.Now()

			fields := []zap.Field{zap.Int64("update_id", update.ID)}
			switch {
			case update.Message != nil:
				fields = append(fields,
					zap.String("update_type", "message"),
					zap.Int("message_id", update.Message.ID),
					zap.Int64("chat_id", update.Message.Chat.ID),
					zap.String("text_preview", truncateString(update.Message.Text, 50)),
				)
				if update.Message.From != nil {
					fields = append(fields, zap.Int64("user_id", update.Message.From.ID))
				}
			case update.CallbackQuery != nil:
				fields = append(fields,
					zap.String("update_type", "callback_query"),
					zap.Int64("user_id", update.CallbackQuery.From.ID),
				)
			default:
				fields = append(fields, zap.String("update_type", "other"))
			}

			entry := log.With(fields...)
			entry.Debug("received update")

			next(ctx, b, update)

			entry.Debug("forwarded update", zap.Duration("duration", time.Since(startTime)))
		}
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}
