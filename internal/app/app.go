// Package app is the composition root: it assembles the bot's components
// from capability modules and wires them into the lifecycle controller.
package app

import (
	"go.uber.org/zap"

	"github.com/edgard/attendancebot/internal/bot"
	"github.com/edgard/attendancebot/internal/database"
	"github.com/edgard/attendancebot/internal/di"
	"github.com/edgard/attendancebot/internal/lifecycle"
	"github.com/edgard/attendancebot/internal/metrics"
)

// Components are the assembled, ready to run parts of the bot.
type Components struct {
	Graph      *di.Graph
	Store      database.Store
	Controller *bot.Controller
	Scheduler  *bot.Scheduler

	// MetricsServer is nil when metrics.listen_addr is empty.
	MetricsServer *metrics.Server

	logger *zap.Logger
	base   Base
}

// Build assembles the graph from the base values, the domain module and the
// given modules, which must provide the chat source and sender (normally
// RemoteModule).
func Build(base Base, modules ...di.Module) (*Components, error) {
	all := append([]di.Module{BaseModule(base), DomainModule()}, modules...)
	metricsEnabled := base.Config != nil && base.Config.Metrics.ListenAddr != ""
	if metricsEnabled {
		all = append(all, MetricsModule())
	}

	graph, err := di.Assemble(all...)
	if err != nil {
		return nil, err
	}

	c := &Components{Graph: graph, logger: base.Logger, base: base}
	if c.Store, err = di.Resolve[database.Store](graph, CapStore); err != nil {
		return nil, err
	}
	if c.Controller, err = di.Resolve[*bot.Controller](graph, CapController); err != nil {
		return nil, err
	}
	if c.Scheduler, err = di.Resolve[*bot.Scheduler](graph, CapScheduler); err != nil {
		return nil, err
	}
	if metricsEnabled {
		if c.MetricsServer, err = di.Resolve[*metrics.Server](graph, CapMetricsServer); err != nil {
			return nil, err
		}
	}

	order := make([]string, 0, len(graph.Order()))
	for _, capability := range graph.Order() {
		order = append(order, string(capability))
	}
	base.Logger.Debug("dependency graph assembled", zap.Strings("order", order))
	return c, nil
}

// Lifecycle returns the controller that runs the consumer and the auxiliary
// services.
func (c *Components) Lifecycle() *lifecycle.Controller {
	opts := []lifecycle.Option{
		lifecycle.WithShutdownTimeout(c.base.Config.Bot.ShutdownTimeout),
		lifecycle.WithService("scheduler", c.Scheduler),
	}
	if c.MetricsServer != nil {
		opts = append(opts, lifecycle.WithService("metrics", c.MetricsServer))
	}
	return lifecycle.New(c.logger, c.Controller, opts...)
}
