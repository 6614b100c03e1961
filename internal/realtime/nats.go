package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSRelay связывает хабы нескольких экземпляров сервиса через NATS.
// Исходящие события публикуются в consult.sessions.<id>.<type>,
// входящие от других экземпляров попадают в локальный хаб.
type NATSRelay struct {
	conn   *nats.Conn
	sub    *nats.Subscription
	hub    *Hub
	origin string
	logger *zap.Logger
}

// NewNATSRelay подключается к NATS с автоматическим переподключением
func NewNATSRelay(url string, hub *Hub, logger *zap.Logger, opts ...nats.Option) (*NATSRelay, error) {
	defaults := []nats.Option{
		nats.Name("consultd"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}

	return &NATSRelay{
		conn:   nc,
		hub:    hub,
		origin: uuid.NewString(),
		logger: logger,
	}, nil
}

// Publish отправляет событие другим экземплярам
func (r *NATSRelay) Publish(ev Event) error {
	ev.Origin = r.origin
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := r.conn.Publish(Subject(ev), data); err != nil {
		return fmt.Errorf("publish %s: %w", Subject(ev), err)
	}
	return nil
}

// Start подписывается на события всех сессий. Свои события пропускаются.
func (r *NATSRelay) Start() error {
	sub, err := r.conn.Subscribe(subjectPrefix+".>", func(msg *nats.Msg) {
		var ev Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			r.logger.Warn("Dropping malformed relay event", zap.String("subject", msg.Subject), zap.Error(err))
			return
		}
		if ev.Origin == r.origin {
			return
		}
		r.hub.Publish(ev)
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s.>: %w", subjectPrefix, err)
	}
	// Подписка должна дойти до сервера раньше чужих публикаций
	if err := r.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("flush subscription: %w", err)
	}

	r.sub = sub
	return nil
}

func (r *NATSRelay) Close() error {
	if r.sub != nil {
		_ = r.sub.Unsubscribe()
	}
	r.conn.Close()
	return nil
}
