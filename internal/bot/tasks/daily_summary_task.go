package tasks

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/edgard/attendancebot/internal/database"
)

// newDailySummaryTask reports the day's attendance to the admin.
func newDailySummaryTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.Named(DailySummary)

	return func(ctx context.Context) error {
		adminID := deps.Config.Telegram.AdminID
		if adminID == 0 {
			log.Warn("no admin configured, skipping daily summary")
			return nil
		}

		now := deps.now()
		students, err := deps.Store.ListStudents(ctx)
		if err != nil {
			return fmt.Errorf("daily summary: %w", err)
		}
		visited, err := deps.Store.CountVisitsOn(ctx, now)
		if err != nil {
			return fmt.Errorf("daily summary: %w", err)
		}

		day := now.Format(database.DateLayout)
		text := fmt.Sprintf(deps.Config.Messages.DailySummary, visited, len(students), day)
		if err := deps.Sender.SendText(ctx, adminID, text); err != nil {
			return fmt.Errorf("failed to send daily summary: %w", err)
		}

		log.Info("daily summary sent",
			zap.String("day", day), zap.Int("visited", visited), zap.Int("students", len(students)))
		return nil
	}
}
