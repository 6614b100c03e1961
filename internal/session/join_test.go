package session

import (
	"testing"
	"time"

	"github.com/Freeeeeet/consult_sessions/internal/model"
	"github.com/stretchr/testify/assert"
)

const (
	traderID int64 = 11
	expertID int64 = 22
)

var (
	trader = model.Identity{UserID: traderID, Role: model.RoleTrader}
	expert = model.Identity{UserID: expertID, Role: model.RoleExpert}
	start  = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
)

func newSession(status model.SessionStatus) *model.Session {
	return &model.Session{
		ID:        "s-1",
		UserID:    traderID,
		ExpertID:  expertID,
		Status:    status,
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
	}
}

func TestCanJoin_WindowBoundaries(t *testing.T) {
	s := newSession(model.SessionStatusUpcoming)

	for _, tc := range []struct {
		name    string
		who     model.Identity
		offset  time.Duration
		allowed bool
	}{
		{"expert T-9m59s", expert, -(9*time.Minute + 59*time.Second), true},
		{"expert T-10m01s", expert, -(10*time.Minute + time.Second), false},
		{"expert T-10m exactly", expert, -10 * time.Minute, true},
		{"trader T-9m59s", trader, -(9*time.Minute + 59*time.Second), false},
		{"trader T-10m01s", trader, -(10*time.Minute + time.Second), false},
		{"trader T-5m exactly", trader, -5 * time.Minute, true},
		{"trader T-5m01s", trader, -(5*time.Minute + time.Second), false},
		{"trader T-4m", trader, -4 * time.Minute, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			d := CanJoin(start.Add(tc.offset), s, tc.who)
			assert.Equal(t, tc.allowed, d.Allowed)
			if !tc.allowed {
				assert.Equal(t, model.ReasonTooEarly, d.Reason)
				assert.ErrorAs(t, d.Err(), new(*model.WindowClosedError))
			}
		})
	}
}

// Сценарий: слот 09:00-09:30, в 08:55 оба могут войти, в 08:54:59 трейдер нет.
func TestCanJoin_BookedSlotScenario(t *testing.T) {
	s := newSession(model.SessionStatusUpcoming)
	at0855 := time.Date(2025, 3, 1, 8, 55, 0, 0, time.UTC)

	assert.True(t, CanJoin(at0855, s, expert).Allowed)
	assert.True(t, CanJoin(at0855, s, trader).Allowed)

	d := CanJoin(at0855.Add(-time.Second), s, trader)
	assert.False(t, d.Allowed)
	assert.Equal(t, model.ReasonTooEarly, d.Reason)
	assert.True(t, d.Err().(*model.WindowClosedError).Retryable())
}

func TestCanJoin_TraderCorrectsToActive(t *testing.T) {
	s := newSession(model.SessionStatusUpcoming)

	assert.Empty(t, CanJoin(start.Add(-time.Minute), s, trader).Correction)

	d := CanJoin(start, s, trader)
	assert.True(t, d.Allowed)
	assert.Equal(t, model.SessionStatusActive, d.Correction)

	d = CanJoin(start.Add(time.Minute), s, expert)
	assert.True(t, d.Allowed)
	assert.Empty(t, d.Correction)

	s.Status = model.SessionStatusActive
	assert.Empty(t, CanJoin(start.Add(time.Minute), s, trader).Correction)
}

func TestCanJoin_AfterEnd(t *testing.T) {
	s := newSession(model.SessionStatusUpcoming)
	end := s.EndTime

	d := CanJoin(end, s, expert)
	assert.False(t, d.Allowed)
	assert.Equal(t, model.ReasonAlreadyEnded, d.Reason)
	assert.Equal(t, model.SessionStatusMissed, d.Correction)

	d = CanJoin(end.Add(time.Hour), s, trader)
	assert.False(t, d.Allowed)
	assert.Equal(t, model.ReasonAlreadyEnded, d.Reason)
	assert.Empty(t, d.Correction)

	s.Status = model.SessionStatusActive
	d = CanJoin(end, s, expert)
	assert.Equal(t, model.ReasonAlreadyEnded, d.Reason)
	assert.Empty(t, d.Correction)
}

func TestCanJoin_Terminal(t *testing.T) {
	for _, status := range []model.SessionStatus{
		model.SessionStatusCompleted, model.SessionStatusMissed, model.SessionStatusCancelled,
	} {
		d := CanJoin(start, newSession(status), trader)
		assert.False(t, d.Allowed)
		assert.Equal(t, model.ReasonAlreadyTerminal, d.Reason)
	}
}

func TestCanJoin_NotAuthorized(t *testing.T) {
	s := newSession(model.SessionStatusUpcoming)

	for _, who := range []model.Identity{
		{UserID: 99, Role: model.RoleTrader},
		{UserID: traderID, Role: model.RoleExpert},
		{UserID: expertID, Role: model.RoleTrader},
		{UserID: traderID, Role: "admin"},
	} {
		d := CanJoin(start, s, who)
		assert.False(t, d.Allowed)
		assert.Equal(t, model.ReasonNotAuthorized, d.Reason)
	}
}

func TestCheckTiming(t *testing.T) {
	s := newSession(model.SessionStatusUpcoming)

	for _, tc := range []struct {
		name   string
		who    model.Identity
		target model.SessionStatus
		offset time.Duration
		reason model.JoinReason
	}{
		{"active day before", trader, model.SessionStatusActive, -24 * time.Hour, model.ReasonTooEarly},
		{"active trader before own window", trader, model.SessionStatusActive, -6 * time.Minute, model.ReasonTooEarly},
		{"active trader window open", trader, model.SessionStatusActive, -5 * time.Minute, ""},
		{"active expert window open", expert, model.SessionStatusActive, -10 * time.Minute, ""},
		{"active after end", trader, model.SessionStatusActive, 30 * time.Minute, model.ReasonAlreadyEnded},
		{"missed before start", expert, model.SessionStatusMissed, -time.Hour, model.ReasonTooEarly},
		{"missed during session", expert, model.SessionStatusMissed, 29 * time.Minute, model.ReasonTooEarly},
		{"missed at end", expert, model.SessionStatusMissed, 30 * time.Minute, ""},
		{"cancel anytime", trader, model.SessionStatusCancelled, -24 * time.Hour, ""},
		{"same status", trader, model.SessionStatusUpcoming, -24 * time.Hour, ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckTiming(start.Add(tc.offset), s, tc.who, tc.target)
			if tc.reason == "" {
				assert.NoError(t, err)
				return
			}
			var closed *model.WindowClosedError
			if assert.ErrorAs(t, err, &closed) {
				assert.Equal(t, tc.reason, closed.Reason)
			}
		})
	}
}
