package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/edgard/attendancebot/internal/port/chat"
)

const adminHelp = "\n/students - list registered students"

// NewHelpHandler returns a handler for the /help command.
func NewHelpHandler(deps HandlerDeps) HandlerFunc {
	return helpHandler{deps}.Handle
}

type helpHandler struct {
	deps HandlerDeps
}

func (h helpHandler) Handle(ctx context.Context, msg chat.Message, _ string) error {
	h.deps.Logger.Named("help").Debug("handling /help command",
		zap.Int64("chat_id", msg.ChatID), zap.Int64("user_id", msg.UserID))

	text := h.deps.Config.Messages.Help
	if admin := h.deps.Config.Telegram.AdminID; admin != 0 && admin == msg.UserID {
		text += adminHelp
	}
	return reply(ctx, h.deps, msg.ChatID, text)
}
