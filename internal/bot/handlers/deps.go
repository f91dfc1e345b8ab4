package handlers

import (
	"time"

	"go.uber.org/zap"

	"github.com/edgard/attendancebot/internal/config"
	"github.com/edgard/attendancebot/internal/database"
	"github.com/edgard/attendancebot/internal/port/chat"
)

// HandlerDeps provides dependencies for command handlers.
type HandlerDeps struct {
	Logger *zap.Logger
	Config *config.Config
	Store  database.Store
	Sender chat.Sender

	// BotUsername is the bot's own username. When set, commands addressed to
	// another bot ("/visit@otherbot") are ignored.
	BotUsername string

	// Now returns the current time; defaults to time.Now.
	Now func() time.Time
}

func (d HandlerDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
