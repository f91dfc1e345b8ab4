package telegram

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/edgard/attendancebot/internal/config"
	"github.com/edgard/attendancebot/internal/errs"
	"github.com/edgard/attendancebot/internal/port/chat"
)

// streamBuffer bounds how many updates may wait for the consumer.
const streamBuffer = 64

// Client implements chat.Source and chat.Sender on top of the Telegram Bot API.
type Client struct {
	bot      *bot.Bot
	log      *zap.Logger
	messages chan chat.Message
	started  atomic.Bool
	username string
}

var (
	_ chat.Source = (*Client)(nil)
	_ chat.Sender = (*Client)(nil)
)

// NewClient connects to the Bot API; an invalid token fails here rather than
// after startup.
func NewClient(cfg config.TelegramConfig, log *zap.Logger, opts ...bot.Option) (*Client, error) {
	log = log.Named("telegram")
	c := &Client{
		log:      log,
		messages: make(chan chat.Message, streamBuffer),
	}

	b, err := newTelegramBot(cfg, log, append([]bot.Option{bot.WithDefaultHandler(c.forward)}, opts...)...)
	if err != nil {
		return nil, err
	}
	c.bot = b

	ctx, cancel := context.WithTimeout(context.Background(), requestSlack)
	defer cancel()
	if me, err := b.GetMe(ctx); err != nil {
		log.Warn("failed to get bot info, accepting commands addressed to any bot", zap.Error(err))
	} else {
		c.username = me.Username
		log.Info("connected as bot", zap.String("username", me.Username))
	}
	return c, nil
}

// Listen polls for updates until ctx is cancelled.
func (c *Client) Listen(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return errs.ErrAlreadyStarted
	}

	c.log.Info("starting telegram polling")
	c.bot.Start(ctx)
	c.log.Info("telegram polling stopped")
	return nil
}

// Messages returns the inbound stream.
func (c *Client) Messages() <-chan chat.Message {
	return c.messages
}

// SendText sends a plain text message.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text})
	return err
}

// Username returns the bot's own username as reported when the client was
// created, or "" if it could not be fetched.
func (c *Client) Username() string {
	return c.username
}

func (c *Client) forward(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg, ok := toMessage(update)
	if !ok {
		c.log.Debug("ignoring non-text update", zap.Int64("update_id", update.ID))
		return
	}
	select {
	case c.messages <- msg:
	case <-ctx.Done():
	}
}

// toMessage extracts a text message from an update.
func toMessage(update *models.Update) (chat.Message, bool) {
	if update == nil || update.Message == nil || update.Message.From == nil || update.Message.Text == "" {
		return chat.Message{}, false
	}
	m := update.Message
	return chat.Message{
		UpdateID:  update.ID,
		MessageID: m.ID,
		ChatID:    m.Chat.ID,
		UserID:    m.From.ID,
		Username:  m.From.Username,
		FirstName: m.From.FirstName,
		LastName:  m.From.LastName,
		Text:      m.Text,
		Date:      time.Unix(int64(m.Date), 0).UTC(),
	}, true
}
