package tasks

import (
	"context"

	"go.uber.org/zap"
)

// Task names as used under scheduler.tasks in the configuration.
const (
	SQLMaintenance = "sql_maintenance"
	DailySummary   = "daily_summary"
)

// ScheduledTaskFunc defines the standard signature for all scheduled tasks.
// The context should be respected for cancellation.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterAllTasks returns every scheduled task keyed by its configuration
// name.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := map[string]ScheduledTaskFunc{
		SQLMaintenance: newSQLMaintenanceTask(deps),
		DailySummary:   newDailySummaryTask(deps),
	}

	deps.Logger.Info("initialized scheduled tasks", zap.Int("count", len(tasks)))
	return tasks
}
