package handlers

import (
	"context"
	"fmt"
)

func reply(ctx context.Context, deps HandlerDeps, chatID int64, text string) error {
	if err := deps.Sender.SendText(ctx, chatID, text); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}

// replyError tells the user something went wrong and returns cause so the
// dispatcher records the failure.
func replyError(ctx context.Context, deps HandlerDeps, chatID int64, cause error) error {
	if err := deps.Sender.SendText(ctx, chatID, deps.Config.Messages.GeneralError); err != nil {
		return fmt.Errorf("%w (error reply also failed: %v)", cause, err)
	}
	return cause
}
