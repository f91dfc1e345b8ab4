package app

import "github.com/edgard/attendancebot/internal/di"

// Capabilities seeded from already initialized startup values.
const (
	CapConfig         di.Capability = "config"
	CapRuntimeContext di.Capability = "runtime.context"
	CapLogger         di.Capability = "logger"
	CapDB             di.Capability = "storage.db"
	CapMetrics        di.Capability = "metrics"
)

// Capabilities of the remote chat client.
const (
	CapChatSource di.Capability = "chat.source"
	CapChatSender di.Capability = "chat.sender"
)

// Domain capabilities.
const (
	CapStore         di.Capability = "domain.store"
	CapRouter        di.Capability = "bot.router"
	CapTasks         di.Capability = "bot.tasks"
	CapScheduler     di.Capability = "bot.scheduler"
	CapController    di.Capability = "bot.controller"
	CapMetricsServer di.Capability = "metrics.server"
)
