package memory

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/consult_sessions/internal/model"
	"github.com/Freeeeeet/consult_sessions/internal/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	day    = model.Date{Year: 2025, Month: time.March, Day: 1}
	before = time.Date(2025, 2, 28, 12, 0, 0, 0, time.UTC)
)

func newSlot(t *testing.T, r *SlotRepository, start, end string) model.Slot {
	t.Helper()
	s, err := model.ParseClock(start)
	require.NoError(t, err)
	e, err := model.ParseClock(end)
	require.NoError(t, err)

	slot := model.Slot{ExpertID: 7, Date: day, StartTime: s, EndTime: e}
	require.NoError(t, r.Create(context.Background(), &slot))
	require.NotEmpty(t, slot.ID)
	return slot
}

func TestSlots_CreateRejectsOverlap(t *testing.T) {
	slots := New().Slots()
	newSlot(t, slots, "09:00", "10:00")

	overlapping := model.Slot{ExpertID: 7, Date: day, StartTime: model.NewClock(9, 30), EndTime: model.NewClock(10, 30)}
	err := slots.Create(context.Background(), &overlapping)
	assert.ErrorAs(t, err, new(*model.ValidationError))

	otherExpert := overlapping
	otherExpert.ExpertID = 8
	assert.NoError(t, slots.Create(context.Background(), &otherExpert))
}

func TestSlots_BookedSlotIsImmutable(t *testing.T) {
	store := New()
	ctx := context.Background()
	slot := newSlot(t, store.Slots(), "09:00", "09:30")

	_, err := store.Sessions().Book(ctx, slot.ID, 1, time.UTC, before)
	require.NoError(t, err)

	_, err = store.Slots().UpdateTimes(ctx, slot.ID, model.SlotTimes{StartTime: model.NewClock(10, 0), EndTime: model.NewClock(11, 0)})
	assert.ErrorIs(t, err, model.ErrBookedSlotModified)
	assert.ErrorIs(t, store.Slots().Delete(ctx, slot.ID), model.ErrBookedSlotModified)
	assert.ErrorIs(t, store.Slots().Delete(ctx, "missing"), model.ErrNotFound)
}

func TestSessions_Book(t *testing.T) {
	store := New()
	ctx := context.Background()
	slot := newSlot(t, store.Slots(), "09:00", "09:30")

	sess, err := store.Sessions().Book(ctx, slot.ID, 1, time.UTC, before)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusUpcoming, sess.Status)
	assert.Equal(t, time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), sess.StartTime)
	assert.Equal(t, time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC), sess.EndTime)
	assert.Equal(t, int64(7), sess.ExpertID)

	_, err = store.Sessions().Book(ctx, slot.ID, 2, time.UTC, before)
	var conflict *model.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, slot.ID, conflict.SlotID)

	_, err = store.Sessions().Book(ctx, "missing", 2, time.UTC, before)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSessions_BookPastSlot(t *testing.T) {
	store := New()
	slot := newSlot(t, store.Slots(), "09:00", "09:30")

	_, err := store.Sessions().Book(context.Background(), slot.ID, 1, time.UTC, time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, model.ErrSlotInPast)

	got, err := store.Slots().GetByID(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.False(t, got.IsBooked)
}

func TestSessions_SetStatusCompareAndSet(t *testing.T) {
	store := New()
	ctx := context.Background()
	slot := newSlot(t, store.Slots(), "09:00", "09:30")
	sess, err := store.Sessions().Book(ctx, slot.ID, 1, time.UTC, before)
	require.NoError(t, err)

	at := time.Date(2025, 3, 1, 9, 1, 0, 0, time.UTC)
	activate := model.StatusChange{
		To:   model.SessionStatusActive,
		From: []model.SessionStatus{model.SessionStatusUpcoming, model.SessionStatusActive},
		At:   at,
	}

	got, changed, err := store.Sessions().SetStatus(ctx, sess.ID, activate)
	require.NoError(t, err)
	assert.True(t, changed)
	require.NotNil(t, got.StartedAt)
	assert.Equal(t, at, *got.StartedAt)

	_, changed, err = store.Sessions().SetStatus(ctx, sess.ID, activate)
	require.NoError(t, err)
	assert.False(t, changed)

	actor := int64(1)
	cancel := model.StatusChange{
		To:    model.SessionStatusCancelled,
		From:  []model.SessionStatus{model.SessionStatusUpcoming, model.SessionStatusActive, model.SessionStatusCancelled},
		Actor: &actor,
		At:    at,
	}
	got, changed, err = store.Sessions().SetStatus(ctx, sess.ID, cancel)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, &actor, got.EndedBy)

	freed, err := store.Slots().GetByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.False(t, freed.IsBooked)

	_, _, err = store.Sessions().SetStatus(ctx, sess.ID, activate)
	var terr *model.InvalidTransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, model.SessionStatusCancelled, terr.From)
}

func TestSessions_ListStaleUpcoming(t *testing.T) {
	store := New()
	ctx := context.Background()
	early := newSlot(t, store.Slots(), "09:00", "09:30")
	late := newSlot(t, store.Slots(), "12:00", "12:30")

	for _, slot := range []model.Slot{early, late} {
		_, err := store.Sessions().Book(ctx, slot.ID, 1, time.UTC, before)
		require.NoError(t, err)
	}

	stale, err := store.Sessions().ListStaleUpcoming(ctx, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, early.ID, stale[0].AvailabilityID)
}

func TestSlots_ApplyPlan(t *testing.T) {
	store := New()
	ctx := context.Background()
	a := newSlot(t, store.Slots(), "09:00", "10:00")
	b := newSlot(t, store.Slots(), "10:00", "11:00")
	previous, err := store.Slots().List(ctx, model.ForDate(7, day))
	require.NoError(t, err)

	// Сдвиг b на место a и новый слот на месте b валидны только вместе
	shifted := b
	shifted.StartTime, shifted.EndTime = model.NewClock(9, 0), model.NewClock(10, 0)
	working := []model.Slot{shifted, {Date: day, StartTime: model.NewClock(10, 0), EndTime: model.NewClock(11, 0)}}

	plan, err := schedule.Reconcile(previous, working)
	require.NoError(t, err)

	result, err := store.Slots().ApplyPlan(ctx, 7, day, previous, plan)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, b.ID, result[0].ID)
	assert.NotEqual(t, a.ID, result[1].ID)

	_, err = store.Slots().ApplyPlan(ctx, 7, day, previous, plan)
	assert.ErrorAs(t, err, new(*model.StaleWorkingSetError))
}

func TestSlots_ApplyPlanIsAtomic(t *testing.T) {
	store := New()
	ctx := context.Background()
	newSlot(t, store.Slots(), "09:00", "10:00")
	previous, err := store.Slots().List(ctx, model.ForDate(7, day))
	require.NoError(t, err)

	plan := schedule.Plan{ToCreate: []model.Slot{
		{StartTime: model.NewClock(11, 0), EndTime: model.NewClock(12, 0)},
		{StartTime: model.NewClock(9, 30), EndTime: model.NewClock(10, 30)},
	}}
	_, err = store.Slots().ApplyPlan(ctx, 7, day, previous, plan)
	assert.ErrorAs(t, err, new(*model.ValidationError))

	after, err := store.Slots().List(ctx, model.ForDate(7, day))
	require.NoError(t, err)
	assert.True(t, schedule.SameSnapshot(previous, after))
}

func TestUsers_LinkTelegramMovesAccount(t *testing.T) {
	users := New().Users()
	ctx := context.Background()

	_, err := users.LinkTelegram(ctx, 1, 555, "Anna")
	require.NoError(t, err)
	_, err = users.LinkTelegram(ctx, 2, 555, "")
	require.NoError(t, err)

	first, err := users.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, first.TelegramID)
	assert.Equal(t, "Anna", first.DisplayName)

	second, err := users.GetByID(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, second.TelegramID)
	assert.Equal(t, int64(555), *second.TelegramID)

	missing, err := users.GetByID(ctx, 3)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSlots_DeleteAfterCancelDetachesSession(t *testing.T) {
	store := New()
	ctx := context.Background()
	slot := newSlot(t, store.Slots(), "09:00", "09:30")
	sess, err := store.Sessions().Book(ctx, slot.ID, 1, time.UTC, before)
	require.NoError(t, err)

	cancel := model.StatusChange{
		To:   model.SessionStatusCancelled,
		From: []model.SessionStatus{model.SessionStatusUpcoming, model.SessionStatusCancelled},
		At:   before,
	}
	_, _, err = store.Sessions().SetStatus(ctx, sess.ID, cancel)
	require.NoError(t, err)

	require.NoError(t, store.Slots().Delete(ctx, slot.ID))

	got, err := store.Sessions().GetByID(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got.AvailabilityID)
	assert.Equal(t, model.SessionStatusCancelled, got.Status)
	assert.Equal(t, time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), got.StartTime)
}

func TestSlots_ApplyPlanDeletesFreedSlot(t *testing.T) {
	store := New()
	ctx := context.Background()
	slot := newSlot(t, store.Slots(), "09:00", "09:30")
	sess, err := store.Sessions().Book(ctx, slot.ID, 1, time.UTC, before)
	require.NoError(t, err)
	_, _, err = store.Sessions().SetStatus(ctx, sess.ID, model.StatusChange{
		To:   model.SessionStatusCancelled,
		From: []model.SessionStatus{model.SessionStatusUpcoming},
		At:   before,
	})
	require.NoError(t, err)

	previous, err := store.Slots().List(ctx, model.ForDate(7, day))
	require.NoError(t, err)
	plan, err := schedule.Reconcile(previous, nil)
	require.NoError(t, err)
	require.Len(t, plan.ToDelete, 1)

	result, err := store.Slots().ApplyPlan(ctx, 7, day, previous, plan)
	require.NoError(t, err)
	assert.Empty(t, result)

	got, err := store.Sessions().GetByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, got.AvailabilityID)
}

func TestUsers_LinkCodeReplacedAndConsumedOnce(t *testing.T) {
	users := New().Users()
	ctx := context.Background()

	first := &model.LinkCode{Code: "AAAAAAAA", UserID: 1, ExpiresAt: before.Add(time.Hour)}
	require.NoError(t, users.CreateLinkCode(ctx, first))
	second := &model.LinkCode{Code: "BBBBBBBB", UserID: 1, ExpiresAt: before.Add(time.Hour)}
	require.NoError(t, users.CreateLinkCode(ctx, second))
	assert.Error(t, users.CreateLinkCode(ctx, &model.LinkCode{Code: "BBBBBBBB", UserID: 2}))

	exists, err := users.LinkCodeExists(ctx, "AAAAAAAA")
	require.NoError(t, err)
	assert.False(t, exists)

	got, err := users.ConsumeLinkCode(ctx, "BBBBBBBB")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.UserID)

	got, err = users.ConsumeLinkCode(ctx, "BBBBBBBB")
	require.NoError(t, err)
	assert.Nil(t, got)
}
