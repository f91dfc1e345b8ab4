// Package logger builds the process-wide zap logger: a console sink plus a
// size- and count-bounded rotating file sink inside the runtime volume.
package logger

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/edgard/attendancebot/internal/config"
	"github.com/edgard/attendancebot/internal/errs"
)

const megabyte = 1024 * 1024

// LogSinkConfig describes the logger identity and its rotating file policy.
type LogSinkConfig struct {
	Name             string
	FileName         string
	Dir              string
	MaxFileSizeBytes int64
	MaxFileCount     int
	Append           bool
	Level            string
	Console          bool
	ConsoleJSON      bool
}

// SinkConfigFor derives the sink configuration for a runtime context.
func SinkConfigFor(rc config.RuntimeContext, cfg config.LogConfig) LogSinkConfig {
	return LogSinkConfig{
		Name:             "bot",
		FileName:         cfg.FileName,
		Dir:              rc.VolumePath,
		MaxFileSizeBytes: cfg.MaxFileSizeBytes,
		MaxFileCount:     cfg.MaxFileCount,
		Append:           cfg.Append,
		Level:            cfg.Level,
		Console:          cfg.Console,
		ConsoleJSON:      cfg.ConsoleJSON,
	}
}

// Path returns the live log file path.
func (s LogSinkConfig) Path() string {
	return filepath.Join(s.Dir, s.FileName)
}

// maxSizeMB converts the byte limit to lumberjack's megabyte unit, rounding up.
func (s LogSinkConfig) maxSizeMB() int {
	mb := int((s.MaxFileSizeBytes + megabyte - 1) / megabyte)
	if mb < 1 {
		return 1
	}
	return mb
}

// maxBackups is the number of rotated files kept next to the live one.
func (s LogSinkConfig) maxBackups() int {
	if s.MaxFileCount < 2 {
		return 1
	}
	return s.MaxFileCount - 1
}

// Option customizes New.
type Option func(*options)

type options struct {
	console io.Writer
}

// WithConsoleOutput redirects the console sink, os.Stdout by default.
func WithConsoleOutput(w io.Writer) Option {
	return func(o *options) {
		o.console = w
	}
}

// New builds the logger described by sink. The returned cleanup flushes and
// closes the file sink and must be called once at exit.
//
// The log directory is created if needed and probed for writability; a
// directory that cannot be written fails with errs.IOError.
func New(sink LogSinkConfig, opts ...Option) (*zap.Logger, func(), error) {
	o := options{console: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	if sink.Dir == "" || sink.FileName == "" {
		return nil, nil, errs.NewIOError("log directory and file name are required", nil)
	}
	if err := ensureWritable(sink.Dir); err != nil {
		return nil, nil, err
	}
	if !sink.Append {
		if err := os.Truncate(sink.Path(), 0); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, errs.NewIOError(fmt.Sprintf("failed to truncate log file %s", sink.Path()), err)
		}
	}

	level, err := zapcore.ParseLevel(sink.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	atomicLevel := zap.NewAtomicLevelAt(level)

	file := &lumberjack.Logger{
		Filename:   sink.Path(),
		MaxSize:    sink.maxSizeMB(),
		MaxBackups: sink.maxBackups(),
		LocalTime:  true,
	}

	fileEncoderConfig := zap.NewProductionEncoderConfig()
	fileEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoderConfig), zapcore.AddSync(file), atomicLevel),
	}

	if sink.Console {
		var encoder zapcore.Encoder
		if sink.ConsoleJSON {
			encoder = zapcore.NewJSONEncoder(fileEncoderConfig)
		} else {
			consoleConfig := zap.NewDevelopmentEncoderConfig()
			consoleConfig.EncodeTime = zapcore.ISO8601TimeEncoder
			consoleConfig.EncodeCaller = zapcore.ShortCallerEncoder
			encoder = zapcore.NewConsoleEncoder(consoleConfig)
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(o.console)), atomicLevel))
	}

	log := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).Named(sink.Name)

	// Third-party code that only knows zap.L() ends up in the same sinks.
	restore := zap.ReplaceGlobals(log)

	cleanup := func() {
		_ = log.Sync()
		restore()
		_ = file.Close()
	}
	return log, cleanup, nil
}

func ensureWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.NewIOError(fmt.Sprintf("failed to create log directory %s", dir), err)
	}
	probe, err := os.CreateTemp(dir, ".write-probe-*")
	if err != nil {
		return errs.NewIOError(fmt.Sprintf("log directory %s is not writable", dir), err)
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return nil
}

// Lazy logs the message produced by msg under tag. msg is only evaluated when
// level is enabled, and a panicking msg is reported instead of propagated.
func Lazy(log *zap.Logger, level zapcore.Level, tag string, msg func() string) {
	if log == nil || msg == nil || !log.Core().Enabled(level) {
		return
	}
	tagged := log.Named(tag)

	defer func() {
		if r := recover(); r != nil {
			tagged.Error("log message producer panicked", zap.Any("panic", r))
		}
	}()
	tagged.Log(level, msg())
}

// Info is Lazy at info level.
func Info(log *zap.Logger, tag string, msg func() string) {
	Lazy(log, zapcore.InfoLevel, tag, msg)
}
