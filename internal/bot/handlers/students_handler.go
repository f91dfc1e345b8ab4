package handlers

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/edgard/attendancebot/internal/port/chat"
)

// NewStudentsHandler returns a handler for the admin /students command.
func NewStudentsHandler(deps HandlerDeps) HandlerFunc {
	return studentsHandler{deps}.Handle
}

type studentsHandler struct {
	deps HandlerDeps
}

func (h studentsHandler) Handle(ctx context.Context, msg chat.Message, _ string) error {
	messages := h.deps.Config.Messages
	h.deps.Logger.Named("students").Info("admin requested student list", zap.Int64("chat_id", msg.ChatID))

	students, err := h.deps.Store.ListStudents(ctx)
	if err != nil {
		return replyError(ctx, h.deps, msg.ChatID, fmt.Errorf("failed to list students: %w", err))
	}
	if len(students) == 0 {
		return reply(ctx, h.deps, msg.ChatID, messages.NoStudents)
	}

	visited, err := h.deps.Store.CountVisitsOn(ctx, h.deps.now())
	if err != nil {
		return replyError(ctx, h.deps, msg.ChatID, fmt.Errorf("failed to count visits: %w", err))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, messages.StudentsHeader, len(students), visited)
	for i, s := range students {
		fmt.Fprintf(&sb, "%d. %s", i+1, s.FullName)
		if s.Username != "" {
			fmt.Fprintf(&sb, " (@%s)", s.Username)
		}
		sb.WriteString("\n")
	}
	return reply(ctx, h.deps, msg.ChatID, strings.TrimRight(sb.String(), "\n"))
}
