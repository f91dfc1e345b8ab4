package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/edgard/attendancebot/internal/port/chat"
)

// NewStartHandler returns a handler for the /start command.
func NewStartHandler(deps HandlerDeps) HandlerFunc {
	return startHandler{deps}.Handle
}

type startHandler struct {
	deps HandlerDeps
}

func (h startHandler) Handle(ctx context.Context, msg chat.Message, _ string) error {
	h.deps.Logger.Named("start").Info("handling /start command",
		zap.Int64("chat_id", msg.ChatID), zap.Int64("user_id", msg.UserID))

	return reply(ctx, h.deps, msg.ChatID, h.deps.Config.Messages.Welcome)
}
