package app

import (
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/edgard/attendancebot/internal/bot"
	"github.com/edgard/attendancebot/internal/bot/handlers"
	"github.com/edgard/attendancebot/internal/bot/tasks"
	"github.com/edgard/attendancebot/internal/config"
	"github.com/edgard/attendancebot/internal/database"
	"github.com/edgard/attendancebot/internal/di"
	"github.com/edgard/attendancebot/internal/metrics"
	"github.com/edgard/attendancebot/internal/port/chat"
	"github.com/edgard/attendancebot/internal/resilience"
	"github.com/edgard/attendancebot/internal/telegram"
)

// Base carries the values produced by the sequential startup steps.
type Base struct {
	Config  *config.Config
	Runtime config.RuntimeContext
	Logger  *zap.Logger
	DB      *sqlx.DB
	Metrics *metrics.Metrics
}

// BaseModule supplies the startup values to the graph.
func BaseModule(b Base) di.Module {
	m := b.Metrics
	if m == nil {
		m = metrics.New()
	}
	return di.NewModule("base",
		di.Supply(CapConfig, b.Config),
		di.Supply(CapRuntimeContext, b.Runtime),
		di.Supply(CapLogger, b.Logger),
		di.Supply(CapDB, b.DB),
		di.Supply(CapMetrics, m),
	)
}

// RemoteModule provides the Telegram client as the message source and, behind
// retries and a circuit breaker, as the sender. Creating it contacts the Bot
// API.
func RemoteModule() di.Module {
	return di.NewModule("remote",
		di.Provide(CapChatSource, func(r di.Resolver) (any, error) {
			cfg, err := di.Resolve[*config.Config](r, CapConfig)
			if err != nil {
				return nil, err
			}
			log, err := di.Resolve[*zap.Logger](r, CapLogger)
			if err != nil {
				return nil, err
			}
			return telegram.NewClient(cfg.Telegram, log)
		}, CapConfig, CapLogger),
		di.Provide(CapChatSender, func(r di.Resolver) (any, error) {
			client, err := di.Resolve[chat.Sender](r, CapChatSource)
			if err != nil {
				return nil, err
			}
			log, err := di.Resolve[*zap.Logger](r, CapLogger)
			if err != nil {
				return nil, err
			}
			return resilience.NewSender(client, resilience.DefaultConfig("telegram.send"), log), nil
		}, CapChatSource, CapLogger),
	)
}

// DomainModule provides the store, command routing, scheduled tasks and the
// message consumer.
func DomainModule() di.Module {
	return di.NewModule("domain",
		di.Provide(CapStore, func(r di.Resolver) (any, error) {
			db, err := di.Resolve[*sqlx.DB](r, CapDB)
			if err != nil {
				return nil, err
			}
			log, err := di.Resolve[*zap.Logger](r, CapLogger)
			if err != nil {
				return nil, err
			}
			return database.NewStore(db, log), nil
		}, CapDB, CapLogger),

		di.Provide(CapRouter, func(r di.Resolver) (any, error) {
			deps, err := resolveHandlerDeps(r)
			if err != nil {
				return nil, err
			}
			return handlers.NewRouter(deps), nil
		}, CapConfig, CapLogger, CapStore, CapChatSender, CapChatSource),

		di.Provide(CapTasks, func(r di.Resolver) (any, error) {
			deps, err := resolveHandlerDeps(r)
			if err != nil {
				return nil, err
			}
			return tasks.RegisterAllTasks(tasks.TaskDeps{
				Logger: deps.Logger,
				Store:  deps.Store,
				Sender: deps.Sender,
				Config: deps.Config,
			}), nil
		}, CapConfig, CapLogger, CapStore, CapChatSender, CapChatSource),

		di.Provide(CapScheduler, func(r di.Resolver) (any, error) {
			cfg, err := di.Resolve[*config.Config](r, CapConfig)
			if err != nil {
				return nil, err
			}
			log, err := di.Resolve[*zap.Logger](r, CapLogger)
			if err != nil {
				return nil, err
			}
			taskMap, err := di.Resolve[map[string]tasks.ScheduledTaskFunc](r, CapTasks)
			if err != nil {
				return nil, err
			}
			m, err := di.Resolve[*metrics.Metrics](r, CapMetrics)
			if err != nil {
				return nil, err
			}
			return bot.NewScheduler(log, cfg.Scheduler, taskMap, m), nil
		}, CapConfig, CapLogger, CapTasks, CapMetrics),

		di.Provide(CapController, func(r di.Resolver) (any, error) {
			cfg, err := di.Resolve[*config.Config](r, CapConfig)
			if err != nil {
				return nil, err
			}
			log, err := di.Resolve[*zap.Logger](r, CapLogger)
			if err != nil {
				return nil, err
			}
			source, err := di.Resolve[chat.Source](r, CapChatSource)
			if err != nil {
				return nil, err
			}
			router, err := di.Resolve[*handlers.Router](r, CapRouter)
			if err != nil {
				return nil, err
			}
			m, err := di.Resolve[*metrics.Metrics](r, CapMetrics)
			if err != nil {
				return nil, err
			}
			return bot.NewController(cfg.Bot, source, router, m, log), nil
		}, CapConfig, CapLogger, CapChatSource, CapRouter, CapMetrics),
	)
}

// MetricsModule provides the HTTP exposition server.
func MetricsModule() di.Module {
	return di.NewModule("metrics",
		di.Provide(CapMetricsServer, func(r di.Resolver) (any, error) {
			cfg, err := di.Resolve[*config.Config](r, CapConfig)
			if err != nil {
				return nil, err
			}
			log, err := di.Resolve[*zap.Logger](r, CapLogger)
			if err != nil {
				return nil, err
			}
			m, err := di.Resolve[*metrics.Metrics](r, CapMetrics)
			if err != nil {
				return nil, err
			}
			store, err := di.Resolve[database.Store](r, CapStore)
			if err != nil {
				return nil, err
			}
			return metrics.NewServer(cfg.Metrics.ListenAddr, m, store.Ping, log), nil
		}, CapConfig, CapLogger, CapMetrics, CapStore),
	)
}

func resolveHandlerDeps(r di.Resolver) (handlers.HandlerDeps, error) {
	cfg, err := di.Resolve[*config.Config](r, CapConfig)
	if err != nil {
		return handlers.HandlerDeps{}, err
	}
	log, err := di.Resolve[*zap.Logger](r, CapLogger)
	if err != nil {
		return handlers.HandlerDeps{}, err
	}
	store, err := di.Resolve[database.Store](r, CapStore)
	if err != nil {
		return handlers.HandlerDeps{}, err
	}
	sender, err := di.Resolve[chat.Sender](r, CapChatSender)
	if err != nil {
		return handlers.HandlerDeps{}, err
	}
	deps := handlers.HandlerDeps{Logger: log, Config: cfg, Store: store, Sender: sender}

	source, err := di.Resolve[chat.Source](r, CapChatSource)
	if err != nil {
		return handlers.HandlerDeps{}, err
	}
	if named, ok := source.(namedSource); ok {
		deps.BotUsername = named.Username()
	}
	return deps, nil
}

// namedSource is a chat.Source that knows its own bot username.
type namedSource interface {
	Username() string
}

var _ namedSource = (*telegram.Client)(nil)
