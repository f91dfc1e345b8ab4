// Package lifecycle runs the bot's background work for the life of the
// process: the message consumer plus any auxiliary services, started together
// and stopped together when the process is asked to exit.
package lifecycle

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/attendancebot/internal/errs"
)

// DefaultShutdownTimeout bounds how long Run waits for background work after
// cancellation.
const DefaultShutdownTimeout = 10 * time.Second

// State is the controller's position in its lifecycle.
type State int32

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateShuttingDown
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Consumer drains the inbound message stream until ctx is cancelled.
type Consumer interface {
	Consume(ctx context.Context) error
}

// Service is auxiliary background work such as the scheduler.
type Service interface {
	Run(ctx context.Context) error
}

// ServiceFunc adapts a function to Service.
type ServiceFunc func(ctx context.Context) error

func (f ServiceFunc) Run(ctx context.Context) error { return f(ctx) }

type namedService struct {
	name    string
	service Service
}

// Controller owns the background execution context.
type Controller struct {
	log             *zap.Logger
	consumer        Consumer
	services        []namedService
	shutdownTimeout time.Duration
	state           atomic.Int32
}

// Option configures a Controller.
type Option func(*Controller)

// WithService adds a named auxiliary service.
func WithService(name string, s Service) Option {
	return func(c *Controller) {
		c.services = append(c.services, namedService{name: name, service: s})
	}
}

// WithShutdownTimeout overrides DefaultShutdownTimeout.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.shutdownTimeout = d
		}
	}
}

// New creates a controller for consumer.
func New(log *zap.Logger, consumer Consumer, opts ...Option) *Controller {
	c := &Controller{
		log:             log.Named("lifecycle"),
		consumer:        consumer,
		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State reports the current lifecycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Run starts the consumer and services in the background and blocks until
// ctx is cancelled or one of them fails. On cancellation it waits up to the
// shutdown timeout for them to return; it returns nil after a graceful stop,
// errs.ErrShutdownTimeout if they did not stop in time, or the first
// background failure. Run may only be called once.
func (c *Controller) Run(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateStarting)) {
		return errs.ErrAlreadyStarted
	}
	defer c.state.Store(int32(StateStopped))

	c.log.Info("starting background work", zap.Int("services", len(c.services)))

	bgCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gCtx := errgroup.WithContext(bgCtx)

	g.Go(func() error {
		if err := c.consumer.Consume(gCtx); err != nil {
			return errs.NewRuntimeError("message consumer failed", err)
		}
		if gCtx.Err() == nil {
			return errs.NewRuntimeError("message consumer stopped unexpectedly", nil)
		}
		return nil
	})
	for _, s := range c.services {
		g.Go(func() error {
			if err := s.service.Run(gCtx); err != nil && !errors.Is(err, context.Canceled) {
				return errs.NewRuntimeError("service "+s.name+" failed", err)
			}
			return nil
		})
	}

	finished := make(chan error, 1)
	go func() { finished <- g.Wait() }()

	c.state.Store(int32(StateRunning))
	c.log.Info("running, waiting for shutdown signal")

	select {
	case err := <-finished:
		// Background work failed, or stopped on its own, before cancellation.
		c.state.Store(int32(StateShuttingDown))
		if err == nil && ctx.Err() != nil {
			c.log.Info("stopped gracefully")
			return nil
		}
		if err == nil {
			err = errs.NewRuntimeError("background work stopped unexpectedly", nil)
		}
		c.log.Error("background work failed", zap.Error(err))
		return err
	case <-ctx.Done():
	}

	c.state.Store(int32(StateShuttingDown))
	c.log.Info("shutdown signal received, stopping background work",
		zap.Duration("timeout", c.shutdownTimeout))

	timer := time.NewTimer(c.shutdownTimeout)
	defer timer.Stop()

	select {
	case err := <-finished:
		if err != nil {
			c.log.Error("background work failed during shutdown", zap.Error(err))
			return err
		}
		c.log.Info("stopped gracefully")
		return nil
	case <-timer.C:
		c.log.Error("background work did not stop in time", zap.Duration("timeout", c.shutdownTimeout))
		return errs.ErrShutdownTimeout
	}
}
