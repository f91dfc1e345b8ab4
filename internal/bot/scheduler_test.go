package bot

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/edgard/attendancebot/internal/bot/tasks"
	"github.com/edgard/attendancebot/internal/config"
	"github.com/edgard/attendancebot/internal/errs"
	"github.com/edgard/attendancebot/internal/metrics"
)

func TestSchedulerSchedulesEnabledTasks(t *testing.T) {
	t.Parallel()

	noop := func(context.Context) error { return nil }
	cfg := config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"enabled":      {Enabled: true, Schedule: "0 0 3 * * *"},
		"disabled":     {Enabled: false, Schedule: "0 0 3 * * *"},
		"unregistered": {Enabled: true, Schedule: "0 0 3 * * *"},
		"bad_cron":     {Enabled: true, Schedule: "not a cron"},
	}}
	taskMap := map[string]tasks.ScheduledTaskFunc{"enabled": noop, "disabled": noop, "bad_cron": noop}

	s := NewScheduler(zaptest.NewLogger(t), cfg, taskMap, nil)
	require.NoError(t, s.Start())
	defer func() { assert.NoError(t, s.Stop()) }()

	assert.Equal(t, []string{"enabled"}, s.JobNames())
	assert.ErrorIs(t, s.Start(), errs.ErrAlreadyStarted)
}

func TestSchedulerRunsTasksUntilCancelled(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	m := metrics.New()
	cfg := config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"tick": {Enabled: true, Schedule: "* * * * * *"},
	}}
	taskMap := map[string]tasks.ScheduledTaskFunc{"tick": func(context.Context) error {
		runs.Add(1)
		return errors.New("tick failed")
	}}

	s := NewScheduler(zaptest.NewLogger(t), cfg, taskMap, m)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.TaskRuns.WithLabelValues("tick", metrics.ResultError)), 1.0)
}

func TestSchedulerStopWithoutStart(t *testing.T) {
	t.Parallel()

	s := NewScheduler(zaptest.NewLogger(t), config.SchedulerConfig{}, nil, nil)
	assert.NoError(t, s.Stop())
	assert.NoError(t, s.Stop())
	assert.Nil(t, s.JobNames())
	assert.ErrorIs(t, s.Start(), errs.ErrAlreadyStarted)
}

// Not parallel: compares the process goroutine count.
func TestSchedulerReleasesGoroutines(t *testing.T) {
	cfg := config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"nightly": {Enabled: true, Schedule: "0 0 3 * * *"},
	}}
	taskMap := map[string]tasks.ScheduledTaskFunc{"nightly": func(context.Context) error { return nil }}

	before := runtime.NumGoroutine()

	for i := 0; i < 20; i++ {
		unstarted := NewScheduler(zaptest.NewLogger(t), cfg, taskMap, nil)
		require.NoError(t, unstarted.Stop())

		started := NewScheduler(zaptest.NewLogger(t), cfg, taskMap, nil)
		require.NoError(t, started.Start())
		require.NoError(t, started.Stop())
	}

	require.Eventually(t, func() bool { return runtime.NumGoroutine() <= before }, 3*time.Second, 20*time.Millisecond,
		"goroutines before=%d after=%d", before, runtime.NumGoroutine())
}

func TestSchedulerStopCancelsRunningTask(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	var once sync.Once
	cfg := config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"slow": {Enabled: true, Schedule: "* * * * * *"},
	}}
	taskMap := map[string]tasks.ScheduledTaskFunc{"slow": func(ctx context.Context) error {
		once.Do(func() { close(entered) })
		<-ctx.Done()
		return ctx.Err()
	}}

	s := NewScheduler(zaptest.NewLogger(t), cfg, taskMap, nil)
	require.NoError(t, s.Start())

	select {
	case <-entered:
	case <-time.After(3 * time.Second):
		t.Fatal("task did not run")
	}

	stopped := make(chan error, 1)
	go func() { stopped <- s.Stop() }()

	select {
	case err := <-stopped:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not cancel the running task")
	}
}
