// Package tasks implements the bot's scheduled tasks and their registration.
package tasks

import (
	"time"

	"go.uber.org/zap"

	"github.com/edgard/attendancebot/internal/config"
	"github.com/edgard/attendancebot/internal/database"
	"github.com/edgard/attendancebot/internal/port/chat"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *zap.Logger
	Store  database.Store
	Sender chat.Sender
	Config *config.Config

	// Now returns the current time; defaults to time.Now.
	Now func() time.Time
}

func (d TaskDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
