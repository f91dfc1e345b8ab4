// Package handlers contains the bot command handlers, along with their
// registration logic and middleware.
package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/edgard/attendancebot/internal/port/chat"
)

// AdminOnly creates a middleware that checks if the message sender is the
// configured admin user. Anyone else gets the "not authorized" reply.
func AdminOnly(deps HandlerDeps) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, msg chat.Message, args string) error {
			adminID := deps.Config.Telegram.AdminID
			if adminID == 0 || msg.UserID != adminID {
				deps.Logger.Named("admin_only").Warn("unauthorized access attempt",
					zap.Int64("user_id", msg.UserID),
					zap.Int64("chat_id", msg.ChatID))
				return reply(ctx, deps, msg.ChatID, deps.Config.Messages.NotAuthorized)
			}

			return next(ctx, msg, args)
		}
	}
}
