package app_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/edgard/attendancebot/internal/app"
	"github.com/edgard/attendancebot/internal/bot/handlers"
	"github.com/edgard/attendancebot/internal/config"
	"github.com/edgard/attendancebot/internal/database"
	"github.com/edgard/attendancebot/internal/di"
	"github.com/edgard/attendancebot/internal/errs"
	"github.com/edgard/attendancebot/internal/lifecycle"
	"github.com/edgard/attendancebot/internal/port/chat"
)

// fakeChat stands in for the Telegram client.
type fakeChat struct {
	messages chan chat.Message

	mu      sync.Mutex
	replies map[int64][]string
}

func newFakeChat() *fakeChat {
	return &fakeChat{messages: make(chan chat.Message, 8), replies: make(map[int64][]string)}
}

func (f *fakeChat) Listen(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (f *fakeChat) Messages() <-chan chat.Message { return f.messages }

func (f *fakeChat) SendText(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[chatID] = append(f.replies[chatID], text)
	return nil
}

func (f *fakeChat) replyCount(chatID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.replies[chatID])
}

// namedChat also reports a bot username, like the Telegram client.
type namedChat struct {
	*fakeChat
	username string
}

func (n namedChat) Username() string { return n.username }

func fakeRemote(f *fakeChat) di.Module {
	return di.NewModule("fake-remote",
		di.Supply(app.CapChatSource, chat.Source(f)),
		di.Supply(app.CapChatSender, chat.Sender(f)),
	)
}

func testBase(t *testing.T) app.Base {
	t.Helper()

	log := zaptest.NewLogger(t)
	dir := t.TempDir()
	rc := config.RuntimeContext{Variant: config.VariantLocal, VolumePath: dir, DBPath: filepath.Join(dir, "bot.db")}
	db, err := database.Open(context.Background(), rc, log)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db, log) })

	return app.Base{
		Config: &config.Config{
			Context:  config.DefaultContext,
			Bot:      config.BotConfig{MaxConcurrency: 2, HandlerTimeout: 5 * time.Second, ShutdownTimeout: 5 * time.Second, VisitsLimit: 5},
			Messages: config.DefaultMessages,
			Scheduler: config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
				"sql_maintenance": {Enabled: true, Schedule: config.DefaultSQLMaintenanceSchedule},
			}},
		},
		Runtime: rc,
		Logger:  log,
		DB:      db,
	}
}

func TestBuildAssemblesComponents(t *testing.T) {
	t.Parallel()

	c, err := app.Build(testBase(t), fakeRemote(newFakeChat()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Scheduler.Stop() })

	assert.NotNil(t, c.Store)
	assert.NotNil(t, c.Controller)
	assert.NotNil(t, c.Scheduler)
	assert.Nil(t, c.MetricsServer)

	order := c.Graph.Order()
	index := func(capability di.Capability) int {
		for i, o := range order {
			if o == capability {
				return i
			}
		}
		t.Fatalf("capability %s not assembled", capability)
		return -1
	}
	assert.Less(t, index(app.CapDB), index(app.CapStore))
	assert.Less(t, index(app.CapStore), index(app.CapRouter))
	assert.Less(t, index(app.CapRouter), index(app.CapController))
	assert.Less(t, index(app.CapTasks), index(app.CapScheduler))
}

func TestBuildWithMetricsServer(t *testing.T) {
	t.Parallel()

	base := testBase(t)
	base.Config.Metrics.ListenAddr = "127.0.0.1:0"

	c, err := app.Build(base, fakeRemote(newFakeChat()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Scheduler.Stop() })
	assert.NotNil(t, c.MetricsServer)
}

func TestBuildWithoutRemoteModule(t *testing.T) {
	t.Parallel()

	_, err := app.Build(testBase(t))

	var depErr *errs.DependencyResolutionError
	require.ErrorAs(t, err, &depErr)
	assert.Contains(t, []string{string(app.CapChatSource), string(app.CapChatSender)}, depErr.Capability)
}

func TestBuildRejectsDuplicateProviders(t *testing.T) {
	t.Parallel()

	f := newFakeChat()
	_, err := app.Build(testBase(t), fakeRemote(f), di.NewModule("again", di.Supply(app.CapChatSource, chat.Source(f))))

	var depErr *errs.DependencyResolutionError
	require.ErrorAs(t, err, &depErr)
	assert.Equal(t, string(app.CapChatSource), depErr.Capability)
}

func TestLifecycleEndToEnd(t *testing.T) {
	t.Parallel()

	f := newFakeChat()
	c, err := app.Build(testBase(t), fakeRemote(f))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Scheduler.Stop() })

	lc := c.Lifecycle()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- lc.Run(ctx) }()

	f.messages <- chat.Message{ChatID: 10, UserID: 10, Text: "/register Ada Lovelace"}
	require.Eventually(t, func() bool { return f.replyCount(10) == 1 }, 3*time.Second, 10*time.Millisecond)
	f.messages <- chat.Message{ChatID: 10, UserID: 10, Text: "/visit"}
	require.Eventually(t, func() bool { return f.replyCount(10) == 2 }, 3*time.Second, 10*time.Millisecond)

	assert.Equal(t, lifecycle.StateRunning, lc.State())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("lifecycle did not stop")
	}
	assert.Equal(t, lifecycle.StateStopped, lc.State())

	student, err := c.Store.GetStudentByTelegramID(context.Background(), 10)
	require.NoError(t, err)
	count, err := c.Store.CountVisitsOn(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", student.FullName)
	assert.Equal(t, 1, count)
}

func TestRouterUsesSourceUsername(t *testing.T) {
	t.Parallel()

	f := newFakeChat()
	named := namedChat{fakeChat: f, username: "attendance_bot"}
	remote := di.NewModule("fake-remote",
		di.Supply(app.CapChatSource, chat.Source(named)),
		di.Supply(app.CapChatSender, chat.Sender(f)),
	)

	c, err := app.Build(testBase(t), remote)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Scheduler.Stop() })

	router, err := di.Resolve[*handlers.Router](c.Graph, app.CapRouter)
	require.NoError(t, err)

	_, _, _, ok := router.Route("/visit@attendance_bot")
	assert.True(t, ok)
	_, _, _, ok = router.Route("/visit@otherbot")
	assert.False(t, ok)
}
