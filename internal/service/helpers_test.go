package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/consult_sessions/internal/model"
	"github.com/Freeeeeet/consult_sessions/internal/repository/memory"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	expertID int64 = 100
	traderID int64 = 200
)

var (
	expert = model.Identity{UserID: expertID, Role: model.RoleExpert}
	trader = model.Identity{UserID: traderID, Role: model.RoleTrader}
	day    = model.Date{Year: 2025, Month: time.March, Day: 1}
)

// recorder запоминает рассылки в порядке вызова
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) SessionChanged(_ context.Context, s model.Session, _ *int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "updated:"+string(s.Status))
}

func (r *recorder) CallEnded(_ context.Context, _ model.Session, _ int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "call-ended")
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// clock управляемое время для тестов
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	store    *memory.Store
	clock    *clock
	notifier *recorder
	slots    *SlotService
	booking  *BookingService
	sessions *SessionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:    memory.New(),
		clock:    &clock{now: time.Date(2025, 2, 28, 12, 0, 0, 0, time.UTC)},
		notifier: &recorder{},
	}
	logger := zap.NewNop()

	f.slots = NewSlotService(f.store.Slots(), time.UTC, logger).WithClock(f.clock.Now)
	f.booking = NewBookingService(f.store.Sessions(), f.notifier, time.UTC, logger).WithClock(f.clock.Now)
	f.sessions = NewSessionService(f.store.Sessions(), f.notifier, logger).WithClock(f.clock.Now)
	return f
}

func at(hour, minute, second int) time.Time {
	return time.Date(2025, 3, 1, hour, minute, second, 0, time.UTC)
}

func clk(t *testing.T, s string) model.Clock {
	t.Helper()
	c, err := model.ParseClock(s)
	require.NoError(t, err)
	return c
}

func (f *fixture) createSlot(t *testing.T, start, end string) model.Slot {
	t.Helper()
	slot, err := f.slots.Create(context.Background(), expert, model.Slot{
		Date:      day,
		StartTime: clk(t, start),
		EndTime:   clk(t, end),
	})
	require.NoError(t, err)
	return *slot
}

// bookSession создаёт слот 09:00-09:30 и бронирует его трейдером
func (f *fixture) bookSession(t *testing.T) *model.Session {
	t.Helper()
	slot := f.createSlot(t, "09:00", "09:30")
	sess, err := f.booking.Book(context.Background(), trader, slot.ID)
	require.NoError(t, err)
	return sess
}
