package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/edgard/attendancebot/internal/config"
	"github.com/edgard/attendancebot/internal/errs"
)

func testSink(dir string) LogSinkConfig {
	return LogSinkConfig{
		Name:             "test",
		FileName:         "bot.log",
		Dir:              dir,
		MaxFileSizeBytes: config.DefaultLogMaxFileSizeBytes,
		MaxFileCount:     config.DefaultLogMaxFileCount,
		Append:           true,
		Level:            "info",
		Console:          true,
	}
}

func TestSinkConfigFor(t *testing.T) {
	t.Parallel()

	rc := config.RuntimeContext{Variant: config.VariantLocal, VolumePath: "./data", DBPath: "./data/bot.db"}
	sink := SinkConfigFor(rc, config.LogConfig{
		Level:            "info",
		FileName:         config.DefaultLogFileName,
		MaxFileSizeBytes: config.DefaultLogMaxFileSizeBytes,
		MaxFileCount:     config.DefaultLogMaxFileCount,
		Append:           true,
	})

	assert.Equal(t, "./data", sink.Dir)
	assert.Equal(t, filepath.Join("data", config.DefaultLogFileName), sink.Path())
	assert.Equal(t, 6, sink.maxSizeMB())
	assert.Equal(t, 4, sink.maxBackups())
}

func TestMaxSizeRoundsUp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		bytes int64
		want  int
	}{
		{1024, 1},
		{megabyte, 1},
		{megabyte + 1, 2},
		{6 * megabyte, 6},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LogSinkConfig{MaxFileSizeBytes: tt.bytes}.maxSizeMB())
	}
}

func TestNewWritesToConsoleAndFile(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	log, cleanup, err := New(testSink(dir), WithConsoleOutput(&console))
	require.NoError(t, err)

	log.Info("hello sinks", zap.String("k", "v"))
	log.Debug("hidden at info level")
	cleanup()

	data, err := os.ReadFile(filepath.Join(dir, "bot.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello sinks")
	assert.NotContains(t, string(data), "hidden at info level")
	assert.Contains(t, console.String(), "hello sinks")
}

func TestNewAppendAndTruncate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bot.log")
	require.NoError(t, os.WriteFile(path, []byte("previous run\n"), 0o600))

	sink := testSink(dir)
	sink.Console = false

	log, cleanup, err := New(sink)
	require.NoError(t, err)
	log.Info("second run")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "previous run"))

	sink.Append = false
	log, cleanup, err = New(sink)
	require.NoError(t, err)
	log.Info("third run")
	cleanup()

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "previous run")
	assert.Contains(t, string(data), "third run")
}

func TestNewUnwritableDirectory(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for this user")
	}

	parent := t.TempDir()
	require.NoError(t, os.Chmod(parent, 0o500))
	t.Cleanup(func() { _ = os.Chmod(parent, 0o700) })

	_, _, err := New(testSink(filepath.Join(parent, "logs")))

	var ioErr *errs.IOError
	assert.ErrorAs(t, err, &ioErr)
}

func TestNewRejectsEmptySink(t *testing.T) {
	t.Parallel()

	_, _, err := New(LogSinkConfig{})
	var ioErr *errs.IOError
	assert.ErrorAs(t, err, &ioErr)
}

func TestLazy(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core)

	calls := 0
	Lazy(log, zapcore.DebugLevel, "BotApp", func() string {
		calls++
		return "debug"
	})
	assert.Zero(t, calls, "closure must not run for disabled levels")

	Info(log, "BotApp", func() string {
		calls++
		return "selected context: local"
	})
	assert.Equal(t, 1, calls)

	Info(log, "BotApp", func() string { panic("boom") })
	Info(nil, "BotApp", func() string { return "nil logger" })
	Info(log, "BotApp", nil)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "selected context: local", entries[0].Message)
	assert.Equal(t, "BotApp", entries[0].LoggerName)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcd...", truncateString("abcdefghij", 7))
	assert.Equal(t, "...", truncateString("abcdef", 2))
}

func TestGocronLogger(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	l := NewGocronLogger(zap.New(core))

	l.Debug("gocron: job scheduled", "name", "sql_maintenance")
	l.Error("gocron: job failed", "name", "daily_summary", "error", errors.New("boom"))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "sql_maintenance", entries[0].ContextMap()["name"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
}
