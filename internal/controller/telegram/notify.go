package telegram

import (
	"context"

	"github.com/Freeeeeet/consult_sessions/internal/realtime"
	"github.com/go-telegram/bot"
	"go.uber.org/zap"
)

func (c *BotController) notifyLoop(ctx context.Context, sub *realtime.Subscriber) {
	for {
		ev, err := sub.Next(ctx)
		if err != nil {
			return
		}
		c.handleEvent(ctx, ev)
	}
}

// handleEvent отправляет участникам сообщение о событии.
// События других экземпляров отправляют они сами.
func (c *BotController) handleEvent(ctx context.Context, ev realtime.Event) {
	if ev.Origin != "" || ev.Type != realtime.EventSessionUpdated {
		return
	}
	if c.dedupe.SeenEvent(ev) {
		return
	}
	if ev.Status.IsTerminal() {
		defer c.dedupe.Forget(ev.SessionID)
	}

	sess, err := c.sessions.GetByID(ctx, ev.SessionID)
	if err != nil || sess == nil {
		c.logger.Warn("Failed to load session for notification",
			zap.String("session_id", ev.SessionID),
			zap.Error(err),
		)
		return
	}

	text := c.format.SessionUpdate(*sess)

	chats, err := c.users.TelegramIDs(ctx, *sess)
	if err != nil {
		c.logger.Warn("Failed to resolve telegram accounts", zap.String("session_id", sess.ID), zap.Error(err))
		return
	}

	for _, chatID := range chats {
		if _, err := c.sender.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
			c.logger.Warn("Failed to send session notification",
				zap.String("session_id", sess.ID),
				zap.Int64("chat_id", chatID),
				zap.Error(err),
			)
		}
	}
}
