// Package main contains the entrypoint for the attendance bot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/edgard/attendancebot/internal/app"
	"github.com/edgard/attendancebot/internal/config"
	"github.com/edgard/attendancebot/internal/database"
	"github.com/edgard/attendancebot/internal/errs"
	"github.com/edgard/attendancebot/internal/logger"
	"github.com/edgard/attendancebot/internal/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run performs the startup sequence (environment, logging, storage,
// dependency graph), then blocks until ctx is cancelled. It returns the
// process exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", *configPath, err)
		return 1
	}

	rc, err := config.Resolve(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to resolve runtime context: %v\n", err)
		return 1
	}

	log, closeLog, err := logger.New(logger.SinkConfigFor(rc, cfg.Log))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logging in %s: %v\n", rc.VolumePath, err)
		return 1
	}
	defer closeLog()

	logger.Info(log, "startup", func() string { return fmt.Sprintf("selected context %s", rc) })

	db, err := database.Open(ctx, rc, log)
	if err != nil {
		return fail(log, "failed to initialize storage", err, zap.String("path", rc.DBPath))
	}
	defer database.Close(db, log)

	components, err := app.Build(app.Base{
		Config:  cfg,
		Runtime: rc,
		Logger:  log,
		DB:      db,
		Metrics: metrics.New(),
	}, app.RemoteModule())
	if err != nil {
		return fail(log, "failed to assemble dependencies", err)
	}

	log.Info("starting bot")
	runErr := components.Lifecycle().Run(ctx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fail(log, "bot stopped due to error", runErr)
	}

	log.Info("bot stopped gracefully")
	return 0
}

// fail logs err with its taxonomy code and returns the failure exit code.
func fail(log *zap.Logger, msg string, err error, fields ...zap.Field) int {
	fields = append(fields,
		zap.String("code", errs.Code(err)),
		zap.Bool("startup", errs.IsFatal(err)),
		zap.Error(err))
	log.Error(msg, fields...)
	return 1
}
