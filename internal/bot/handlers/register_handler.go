package handlers

import (
	"context"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/edgard/attendancebot/internal/database"
	"github.com/edgard/attendancebot/internal/port/chat"
	"github.com/edgard/attendancebot/internal/sanitize"
)

const (
	minNameLength = 2
	maxNameLength = 128
)

var namePolicy = sanitize.NewPolicy()

// NewRegisterHandler returns a handler for the /register command.
func NewRegisterHandler(deps HandlerDeps) HandlerFunc {
	return registerHandler{deps}.Handle
}

type registerHandler struct {
	deps HandlerDeps
}

func (h registerHandler) Handle(ctx context.Context, msg chat.Message, args string) error {
	log := h.deps.Logger.Named("register")
	messages := h.deps.Config.Messages

	name := namePolicy.Line(args)
	if name == "" {
		return reply(ctx, h.deps, msg.ChatID, messages.ProvideName)
	}
	if n := utf8.RuneCountInString(name); n < minNameLength || n > maxNameLength {
		return reply(ctx, h.deps, msg.ChatID, messages.RegistrationName)
	}

	student := &database.Student{
		TelegramID: msg.UserID,
		ChatID:     msg.ChatID,
		FullName:   name,
		Username:   msg.Username,
	}
	if err := h.deps.Store.RegisterStudent(ctx, student); err != nil {
		return replyError(ctx, h.deps, msg.ChatID, fmt.Errorf("failed to register student: %w", err))
	}

	log.Info("student registered",
		zap.Int64("student_id", student.ID),
		zap.Int64("user_id", msg.UserID),
		zap.String("telegram_name", msg.DisplayName()))
	return reply(ctx, h.deps, msg.ChatID, fmt.Sprintf(messages.Registered, student.FullName))
}
