package bot

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/edgard/attendancebot/internal/bot/tasks"
	"github.com/edgard/attendancebot/internal/config"
	"github.com/edgard/attendancebot/internal/errs"
	"github.com/edgard/attendancebot/internal/logger"
	"github.com/edgard/attendancebot/internal/metrics"
)

// Scheduler manages scheduled tasks using the gocron library. The gocron
// scheduler owns a goroutine, so it is only created by Start.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *zap.Logger
	cfg       config.SchedulerConfig
	taskMap   map[string]tasks.ScheduledTaskFunc
	metrics   *metrics.Metrics

	// ctx is handed to every task run and cancelled by Stop.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool
}

// NewScheduler creates a scheduler for the tasks in taskMap. Only tasks
// enabled in cfg are scheduled.
func NewScheduler(log *zap.Logger, cfg config.SchedulerConfig, taskMap map[string]tasks.ScheduledTaskFunc, m *metrics.Metrics) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		logger:  log.Named("scheduler"),
		cfg:     cfg,
		taskMap: taskMap,
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Run starts the scheduler and stops it, waiting for running jobs, when ctx
// is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	s.logger.Info("shutdown signal received, stopping scheduler")
	return s.Stop()
}

// Start schedules every enabled task and starts ticking. A scheduler starts
// at most once, even after Stop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.ctx.Err() != nil {
		return errs.ErrAlreadyStarted
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLogger(logger.NewGocronLogger(s.logger)))
	if err != nil {
		return fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	s.scheduler = scheduler

	// Map order is random; sort so the startup log is stable.
	names := make([]string, 0, len(s.cfg.Tasks))
	for name := range s.cfg.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)

	scheduled := 0
	for _, name := range names {
		taskConfig := s.cfg.Tasks[name]
		if !taskConfig.Enabled {
			s.logger.Info("skipping disabled task", zap.String("task_name", name))
			continue
		}

		taskFunc, exists := s.taskMap[name]
		if !exists {
			s.logger.Warn("scheduled task configured but not found in registry, skipping", zap.String("task_name", name))
			continue
		}

		_, err := s.scheduler.NewJob(
			gocron.CronJob(taskConfig.Schedule, true),
			gocron.NewTask(s.wrap(name, taskFunc)),
			gocron.WithName(name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			s.logger.Error("failed to schedule task",
				zap.String("task_name", name), zap.String("schedule", taskConfig.Schedule), zap.Error(err))
			continue
		}

		s.logger.Info("scheduled task", zap.String("task_name", name), zap.String("schedule", taskConfig.Schedule))
		scheduled++
	}

	s.scheduler.Start()
	s.started = true
	s.logger.Info("scheduler started", zap.Int("tasks_scheduled", scheduled))
	return nil
}

func (s *Scheduler) wrap(name string, taskFunc tasks.ScheduledTaskFunc) func() {
	return func() {
		s.logger.Info("running scheduled task", zap.String("task_name", name))
		startTime := time.Now()

		err := taskFunc(s.ctx)
		s.metrics.ObserveTask(name, err)
		if err != nil {
			s.logger.Error("scheduled task failed", zap.String("task_name", name), zap.Error(err))
		}
		s.logger.Info("finished scheduled task",
			zap.String("task_name", name), zap.Duration("duration", time.Since(startTime)))
	}
}

// Stop cancels the context of running tasks and waits for them to return.
// It is safe to call on a scheduler that was never started, and more than
// once.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancel()
	if s.scheduler == nil {
		return nil
	}

	err := s.scheduler.Shutdown()
	if err != nil {
		s.logger.Error("error during scheduler shutdown", zap.Error(err))
	} else {
		s.logger.Info("scheduler stopped")
	}

	s.scheduler = nil
	return err
}

// JobNames lists the scheduled jobs, sorted.
func (s *Scheduler) JobNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scheduler == nil {
		return nil
	}
	jobs := s.scheduler.Jobs()
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name())
	}
	sort.Strings(names)
	return names
}
