package tasks

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// newSQLMaintenanceTask creates the scheduled task function for running database maintenance.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.Named(SQLMaintenance)

	return func(ctx context.Context) error {
		log.Info("starting scheduled SQL maintenance")
		startTime := time.Now()

		err := deps.Store.RunSQLMaintenance(ctx)
		duration := time.Since(startTime)

		if err != nil {
			log.Error("SQL maintenance failed", zap.Error(err), zap.Duration("duration", duration))
			return fmt.Errorf("sql maintenance failed: %w", err)
		}

		log.Info("SQL maintenance completed", zap.Duration("duration", duration))
		return nil
	}
}
