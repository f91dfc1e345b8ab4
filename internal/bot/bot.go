// Package bot consumes the inbound message stream and dispatches each message
// to its command handler, and runs the bot's scheduled tasks.
package bot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/edgard/attendancebot/internal/bot/handlers"
	"github.com/edgard/attendancebot/internal/config"
	"github.com/edgard/attendancebot/internal/errs"
	"github.com/edgard/attendancebot/internal/metrics"
	"github.com/edgard/attendancebot/internal/port/chat"
)

// Controller reads the message stream and runs handlers concurrently, at most
// MaxConcurrency at a time.
type Controller struct {
	cfg     config.BotConfig
	source  chat.Source
	router  *handlers.Router
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewController creates a controller. m may be nil.
func NewController(cfg config.BotConfig, source chat.Source, router *handlers.Router, m *metrics.Metrics, log *zap.Logger) *Controller {
	return &Controller{
		cfg:     cfg,
		source:  source,
		router:  router,
		metrics: m,
		logger:  log.Named("controller"),
	}
}

// Consume listens on the source and dispatches messages until ctx is
// cancelled. Handler failures are logged and never stop consumption. After
// cancellation no new message is dispatched and Consume returns once
// in-flight handlers have finished; those run on a context that shutdown
// does not cancel, bounded by HandlerTimeout.
func (c *Controller) Consume(ctx context.Context) error {
	listenErr := make(chan error, 1)
	go func() { listenErr <- c.source.Listen(ctx) }()

	var inflight errgroup.Group
	slots := semaphore.NewWeighted(int64(max(c.cfg.MaxConcurrency, 1)))
	messages := c.source.Messages()

	c.logger.Info("consuming messages", zap.Int("max_concurrency", c.cfg.MaxConcurrency))

	for {
		select {
		case <-ctx.Done():
			return c.drain(&inflight, nil)

		case err := <-listenErr:
			if err == nil && ctx.Err() != nil {
				return c.drain(&inflight, nil)
			}
			if err == nil {
				err = errs.NewRuntimeError("message source stopped unexpectedly", nil)
			} else {
				err = errs.NewRuntimeError("message source failed", err)
			}
			return c.drain(&inflight, err)

		case msg := <-messages:
			if ctx.Err() != nil {
				return c.drain(&inflight, nil)
			}
			if c.metrics != nil {
				c.metrics.MessagesReceived.Inc()
			}
			if err := slots.Acquire(ctx, 1); err != nil {
				c.logger.Debug("dropping message received during shutdown", zap.Int64("update_id", msg.UpdateID))
				return c.drain(&inflight, nil)
			}
			inflight.Go(func() error {
				defer slots.Release(1)
				c.handle(ctx, msg)
				return nil
			})
		}
	}
}

func (c *Controller) drain(inflight *errgroup.Group, cause error) error {
	c.logger.Info("stopping message consumption, waiting for in-flight handlers")
	_ = inflight.Wait()
	c.logger.Info("message consumption stopped")
	return cause
}

// handle runs one message through its handler and records the outcome.
func (c *Controller) handle(parent context.Context, msg chat.Message) {
	command, args, h, ok := c.router.Route(msg.Text)
	if !ok {
		c.logger.Debug("ignoring message without a known command",
			zap.Int64("update_id", msg.UpdateID), zap.Int64("chat_id", msg.ChatID))
		c.metrics.ObserveHandled("none", metrics.ResultIgnored, 0)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), c.cfg.HandlerTimeout)
	defer cancel()

	start := time.Now()
	err := invoke(ctx, h, msg, args)
	elapsed := time.Since(start)

	if err != nil {
		c.logger.Error("handler failed",
			zap.String("command", command),
			zap.Int64("update_id", msg.UpdateID),
			zap.Int64("chat_id", msg.ChatID),
			zap.Int64("user_id", msg.UserID),
			zap.Duration("duration", elapsed),
			zap.Error(err))
		c.metrics.ObserveHandled(command, metrics.ResultError, elapsed)
		return
	}

	c.logger.Debug("handled message",
		zap.String("command", command), zap.Int64("update_id", msg.UpdateID), zap.Duration("duration", elapsed))
	c.metrics.ObserveHandled(command, metrics.ResultOK, elapsed)
}

// invoke calls h, turning errors and panics into a RuntimeError.
func invoke(ctx context.Context, h handlers.HandlerFunc, msg chat.Message, args string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.NewRuntimeError(fmt.Sprintf("handler panicked: %v", r), nil)
		}
	}()

	if err := h(ctx, msg, args); err != nil {
		return errs.NewRuntimeError("handler failed", err)
	}
	return nil
}
