package realtime

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// ringSize сколько последних событий хранится для переподключения по Last-Event-ID
	ringSize = 1024

	subscriberBuffer = 64
)

// Hub раздаёт события подписчикам комнат. Комната это ID сессии.
// Медленный подписчик теряет события, публикация никогда не блокируется.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Subscriber]struct{}

	seq atomic.Uint64

	ringMu  sync.RWMutex
	ring    [ringSize]Event
	ringPos int
	ringLen int
}

// Subscriber получатель событий одной комнаты или всех комнат (пустой room)
type Subscriber struct {
	room   string
	urgent chan Event
	normal chan Event
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Subscriber]struct{})}
}

// Publish присваивает событию порядковый номер и раздаёт его
func (h *Hub) Publish(ev Event) Event {
	ev.Seq = h.seq.Add(1)
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	h.ringMu.Lock()
	h.ring[h.ringPos] = ev
	h.ringPos = (h.ringPos + 1) % ringSize
	if h.ringLen < ringSize {
		h.ringLen++
	}
	h.ringMu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, room := range []string{ev.SessionID, ""} {
		for sub := range h.rooms[room] {
			sub.deliver(ev)
		}
	}
	return ev
}

// Subscribe регистрирует подписчика. room "" получает события всех сессий.
func (h *Hub) Subscribe(room string) *Subscriber {
	sub := &Subscriber{
		room:   room,
		urgent: make(chan Event, subscriberBuffer),
		normal: make(chan Event, subscriberBuffer),
	}

	h.mu.Lock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Subscriber]struct{})
	}
	h.rooms[room][sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.rooms[sub.room], sub)
	if len(h.rooms[sub.room]) == 0 {
		delete(h.rooms, sub.room)
	}
}

// Since возвращает события комнаты с Seq больше lastSeq в порядке публикации
func (h *Hub) Since(room string, lastSeq uint64) []Event {
	h.ringMu.RLock()
	defer h.ringMu.RUnlock()

	var result []Event
	start := (h.ringPos - h.ringLen + ringSize) % ringSize
	for i := 0; i < h.ringLen; i++ {
		ev := h.ring[(start+i)%ringSize]
		if ev.Seq > lastSeq && (room == "" || ev.SessionID == room) {
			result = append(result, ev)
		}
	}
	return result
}

func (s *Subscriber) deliver(ev Event) {
	ch := s.normal
	if ev.Urgent() {
		ch = s.urgent
	}
	select {
	case ch <- ev:
	default:
	}
}

// Next ждёт следующее событие. Уже пришедшие срочные события выдаются раньше обычных.
func (s *Subscriber) Next(ctx context.Context) (Event, error) {
	select {
	case ev := <-s.urgent:
		return ev, nil
	default:
	}

	select {
	case ev := <-s.urgent:
		return ev, nil
	case ev := <-s.normal:
		return ev, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}
