package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/edgard/attendancebot/internal/database"
	"github.com/edgard/attendancebot/internal/port/chat"
)

// NewVisitHandler returns a handler for the /visit command.
func NewVisitHandler(deps HandlerDeps) HandlerFunc {
	return visitHandler{deps}.Handle
}

type visitHandler struct {
	deps HandlerDeps
}

func (h visitHandler) Handle(ctx context.Context, msg chat.Message, _ string) error {
	messages := h.deps.Config.Messages

	student, err := lookupStudent(ctx, h.deps, msg)
	if err != nil || student == nil {
		return err
	}

	now := h.deps.now()
	day := now.Format(database.DateLayout)
	created, err := h.deps.Store.RecordVisit(ctx, student.ID, now)
	if err != nil {
		return replyError(ctx, h.deps, msg.ChatID, fmt.Errorf("failed to record visit: %w", err))
	}

	if !created {
		return reply(ctx, h.deps, msg.ChatID, fmt.Sprintf(messages.VisitAlready, day))
	}

	h.deps.Logger.Named("visit").Info("visit recorded",
		zap.Int64("student_id", student.ID), zap.String("day", day))
	return reply(ctx, h.deps, msg.ChatID, fmt.Sprintf(messages.VisitRecorded, day))
}

// NewVisitsHandler returns a handler for the /visits command.
func NewVisitsHandler(deps HandlerDeps) HandlerFunc {
	return visitsHandler{deps}.Handle
}

type visitsHandler struct {
	deps HandlerDeps
}

func (h visitsHandler) Handle(ctx context.Context, msg chat.Message, _ string) error {
	messages := h.deps.Config.Messages

	student, err := lookupStudent(ctx, h.deps, msg)
	if err != nil || student == nil {
		return err
	}

	visits, err := h.deps.Store.ListVisits(ctx, student.ID, h.deps.Config.Bot.VisitsLimit)
	if err != nil {
		return replyError(ctx, h.deps, msg.ChatID, fmt.Errorf("failed to list visits: %w", err))
	}
	if len(visits) == 0 {
		return reply(ctx, h.deps, msg.ChatID, messages.NoVisits)
	}

	var sb strings.Builder
	sb.WriteString(messages.VisitsHeader)
	for _, v := range visits {
		sb.WriteString("• ")
		sb.WriteString(v.VisitDate)
		sb.WriteString("\n")
	}
	return reply(ctx, h.deps, msg.ChatID, strings.TrimRight(sb.String(), "\n"))
}

// lookupStudent returns the sender's student record. A nil student with a
// nil error means the sender is not registered and has already been told.
func lookupStudent(ctx context.Context, deps HandlerDeps, msg chat.Message) (*database.Student, error) {
	student, err := deps.Store.GetStudentByTelegramID(ctx, msg.UserID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, reply(ctx, deps, msg.ChatID, deps.Config.Messages.NotRegistered)
	}
	if err != nil {
		return nil, replyError(ctx, deps, msg.ChatID, fmt.Errorf("failed to get student: %w", err))
	}
	return student, nil
}
