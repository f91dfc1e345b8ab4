// Package chat defines the boundary between the bot's message handling and
// the chat platform client.
package chat

import (
	"context"
	"time"
)

// Message is an inbound text message.
type Message struct {
	UpdateID  int64
	MessageID int
	ChatID    int64
	UserID    int64
	Username  string
	FirstName string
	LastName  string
	Text      string
	Date      time.Time
}

// DisplayName returns the best human readable name of the sender.
func (m Message) DisplayName() string {
	switch {
	case m.FirstName != "" && m.LastName != "":
		return m.FirstName + " " + m.LastName
	case m.FirstName != "":
		return m.FirstName
	case m.Username != "":
		return "@" + m.Username
	default:
		return "unknown"
	}
}

// Source produces the inbound message stream.
type Source interface {
	// Listen receives updates from the platform until ctx is cancelled. A
	// source can only be listened to once.
	Listen(ctx context.Context) error

	// Messages is the stream Listen feeds. It is never closed; consumers stop
	// on their own context.
	Messages() <-chan Message
}

// Sender delivers replies.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}
