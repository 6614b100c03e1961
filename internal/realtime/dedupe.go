package realtime

import (
	"sync"

	"github.com/Freeeeeet/consult_sessions/internal/model"
)

// Deduper отбрасывает повторную доставку одного и того же статуса сессии
type Deduper struct {
	mu    sync.Mutex
	last  map[string]model.SessionStatus
	ended map[string]bool
}

func NewDeduper() *Deduper {
	return &Deduper{
		last:  make(map[string]model.SessionStatus),
		ended: make(map[string]bool),
	}
}

// Seen запоминает статус и возвращает true если он уже был последним для сессии
func (d *Deduper) Seen(sessionID string, status model.SessionStatus) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.last[sessionID] == status {
		return true
	}
	d.last[sessionID] = status
	return false
}

// SeenEvent как Seen, но для событий: сигнал завершения звонка принимается один раз
func (d *Deduper) SeenEvent(ev Event) bool {
	if ev.IsCallTermination() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.ended[ev.SessionID] {
			return true
		}
		d.ended[ev.SessionID] = true
		return false
	}
	return d.Seen(ev.SessionID, ev.Status)
}

// Forget очищает состояние сессии
func (d *Deduper) Forget(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.last, sessionID)
	delete(d.ended, sessionID)
}
