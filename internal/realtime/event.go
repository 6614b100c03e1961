// Package realtime рассылает изменения сессий участникам.
// Канал только подсказка: получатель перечитывает сессию из хранилища.
package realtime

import (
	"fmt"
	"time"

	"github.com/Freeeeeet/consult_sessions/internal/model"
)

type EventType string

const (
	EventSessionUpdated EventType = "session-updated"
	EventCallEnded      EventType = "call-ended"
	// EventEndSession синоним call-ended, который присылают клиенты
	EventEndSession EventType = "end-session"
)

// Event одно уведомление в комнате сессии
type Event struct {
	Seq       uint64              `json:"seq"`
	Type      EventType           `json:"type"`
	SessionID string              `json:"session_id"`
	Status    model.SessionStatus `json:"status,omitempty"`
	Actor     *int64              `json:"actor,omitempty"`
	At        time.Time           `json:"at"`
	// Origin экземпляр сервиса, опубликовавший событие (для NATS)
	Origin string `json:"origin,omitempty"`
}

// IsCallTermination true для сигнала "участник положил трубку"
func (e Event) IsCallTermination() bool {
	return e.Type == EventCallEnded || e.Type == EventEndSession
}

// Urgent срочные события доставляются раньше обычных
func (e Event) Urgent() bool {
	return e.IsCallTermination()
}

// Subject NATS subject события: consult.sessions.<id>.<type>
func Subject(e Event) string {
	return fmt.Sprintf("%s.%s.%s", subjectPrefix, e.SessionID, e.Type)
}

const subjectPrefix = "consult.sessions"
