package resilience

import (
	"context"

	"go.uber.org/zap"

	"github.com/edgard/attendancebot/internal/port/chat"
)

// Sender retries failed sends and stops calling the platform while it keeps
// failing.
type Sender struct {
	next    chat.Sender
	breaker *CircuitBreaker
	cfg     Config
	log     *zap.Logger
}

var _ chat.Sender = (*Sender)(nil)

// NewSender wraps next.
func NewSender(next chat.Sender, cfg Config, log *zap.Logger) *Sender {
	log = log.Named("resilience")
	return &Sender{
		next:    next,
		breaker: NewCircuitBreaker(cfg, log),
		cfg:     cfg,
		log:     log,
	}
}

// SendText implements chat.Sender.
func (s *Sender) SendText(ctx context.Context, chatID int64, text string) error {
	return WithRetry(ctx, s.log, s.cfg, func(ctx context.Context) error {
		return s.breaker.Execute(ctx, func(ctx context.Context) error {
			return s.next.SendText(ctx, chatID, text)
		})
	})
}
