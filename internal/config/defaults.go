package config

import "time"

// Default values for configuration
const (
	DefaultContext    = "local"
	DefaultVolumePath = "/data"

	// Log defaults mirror the rotation policy the bot has always shipped with:
	// six megabytes per file, five files kept, appending across restarts.
	DefaultLogLevel            = "info"
	DefaultLogFileName         = "BotLoggerFiles.log"
	DefaultLogMaxFileSizeBytes = 6 * 1024 * 1024
	DefaultLogMaxFileCount     = 5
	DefaultLogAppend           = true
	DefaultLogConsole          = true
	DefaultLogConsoleJSON      = false

	// Bot defaults
	DefaultBotMaxConcurrency  = 16
	DefaultBotHandlerTimeout  = 30 * time.Second
	DefaultBotShutdownTimeout = 10 * time.Second
	DefaultBotVisitsLimit     = 10
	DefaultBotPollTimeout     = 5 * time.Second

	DefaultSQLMaintenanceSchedule = "0 0 3 * * *"
	DefaultDailySummarySchedule   = "0 0 20 * * *"
)

// Default bot messages
var DefaultMessages = MessagesConfig{
	Welcome:          "👋 Hi! Use /register <full name> once, then /visit every time you attend.",
	Help:             "/register <full name> - register as a student\n/visit - mark today's visit\n/visits - show your recent visits",
	Registered:       "✅ Registered as %s.",
	NotRegistered:    "ℹ️ You are not registered yet. Use /register <full name>.",
	ProvideName:      "ℹ️ Please provide your full name: /register <full name>.",
	VisitRecorded:    "✅ Visit for %s recorded.",
	VisitAlready:     "ℹ️ Your visit for %s is already recorded.",
	NoVisits:         "ℹ️ No visits recorded yet.",
	NoStudents:       "ℹ️ No students registered yet.",
	NotAuthorized:    "🚫 Access denied.",
	GeneralError:     "❌ An error occurred. Please try again later.",
	DailySummary:     "📊 %d of %d students visited on %s.",
	StudentsHeader:   "Students (%d), visited today: %d\n\n",
	VisitsHeader:     "Your recent visits:\n",
	RegistrationName: "full name must be between 2 and 128 characters",
}

var defaults = map[string]any{
	"context":     DefaultContext,
	"volume_path": DefaultVolumePath,

	"telegram.token":        "",
	"telegram.admin_id":     0,
	"telegram.poll_timeout": DefaultBotPollTimeout,

	"log.level":               DefaultLogLevel,
	"log.file_name":           DefaultLogFileName,
	"log.max_file_size_bytes": DefaultLogMaxFileSizeBytes,
	"log.max_file_count":      DefaultLogMaxFileCount,
	"log.append":              DefaultLogAppend,
	"log.console":             DefaultLogConsole,
	"log.console_json":        DefaultLogConsoleJSON,

	"bot.max_concurrency":  DefaultBotMaxConcurrency,
	"bot.handler_timeout":  DefaultBotHandlerTimeout,
	"bot.shutdown_timeout": DefaultBotShutdownTimeout,
	"bot.visits_limit":     DefaultBotVisitsLimit,

	"messages.welcome":           DefaultMessages.Welcome,
	"messages.help":              DefaultMessages.Help,
	"messages.registered":        DefaultMessages.Registered,
	"messages.not_registered":    DefaultMessages.NotRegistered,
	"messages.provide_name":      DefaultMessages.ProvideName,
	"messages.visit_recorded":    DefaultMessages.VisitRecorded,
	"messages.visit_already":     DefaultMessages.VisitAlready,
	"messages.no_visits":         DefaultMessages.NoVisits,
	"messages.no_students":       DefaultMessages.NoStudents,
	"messages.not_authorized":    DefaultMessages.NotAuthorized,
	"messages.general_error":     DefaultMessages.GeneralError,
	"messages.daily_summary":     DefaultMessages.DailySummary,
	"messages.students_header":   DefaultMessages.StudentsHeader,
	"messages.visits_header":     DefaultMessages.VisitsHeader,
	"messages.registration_name": DefaultMessages.RegistrationName,

	"scheduler.tasks.sql_maintenance.enabled":  true,
	"scheduler.tasks.sql_maintenance.schedule": DefaultSQLMaintenanceSchedule,
	"scheduler.tasks.daily_summary.enabled":    false,
	"scheduler.tasks.daily_summary.schedule":   DefaultDailySummarySchedule,

	"metrics.listen_addr": "",
}
