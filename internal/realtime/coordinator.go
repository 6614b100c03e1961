package realtime

import (
	"context"

	"github.com/Freeeeeet/consult_sessions/internal/model"
	"go.uber.org/zap"
)

// Relay пересылает события за пределы процесса
type Relay interface {
	Publish(ev Event) error
}

// Coordinator превращает изменения сессий в события комнат.
// Ошибки доставки только логируются: истина всегда в хранилище.
type Coordinator struct {
	hub    *Hub
	relay  Relay
	logger *zap.Logger
}

// NewCoordinator создаёт координатор. relay может быть nil для одного экземпляра.
func NewCoordinator(hub *Hub, relay Relay, logger *zap.Logger) *Coordinator {
	return &Coordinator{hub: hub, relay: relay, logger: logger}
}

func (c *Coordinator) SessionChanged(ctx context.Context, s model.Session, actor *int64) {
	c.emit(ctx, Event{
		Type:      EventSessionUpdated,
		SessionID: s.ID,
		Status:    s.Status,
		Actor:     actor,
		At:        s.UpdatedAt,
	})
}

func (c *Coordinator) CallEnded(ctx context.Context, s model.Session, actor int64) {
	c.emit(ctx, Event{
		Type:      EventCallEnded,
		SessionID: s.ID,
		Status:    s.Status,
		Actor:     &actor,
		At:        s.UpdatedAt,
	})
}

func (c *Coordinator) emit(_ context.Context, ev Event) {
	ev = c.hub.Publish(ev)

	if c.relay == nil {
		return
	}
	if err := c.relay.Publish(ev); err != nil {
		c.logger.Warn("Failed to relay session event",
			zap.String("session_id", ev.SessionID),
			zap.String("type", string(ev.Type)),
			zap.Error(err),
		)
	}
}
