package schedule

import (
	"sort"
	"testing"

	"github.com/Freeeeeet/consult_sessions/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = model.Date{Year: 2025, Month: 3, Day: 1}

func slot(id string, start, end string, booked bool) model.Slot {
	s, err := model.ParseClock(start)
	if err != nil {
		panic(err)
	}
	e, err := model.ParseClock(end)
	if err != nil {
		panic(err)
	}
	return model.Slot{ID: id, ExpertID: 7, Date: day, StartTime: s, EndTime: e, IsBooked: booked}
}

func ids(slots []model.Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.ID)
	}
	sort.Strings(out)
	return out
}

func TestReconcile_BookedSlotRetainedWhenOmitted(t *testing.T) {
	previous := []model.Slot{
		slot("a", "09:00", "09:30", true),
		slot("b", "10:00", "10:30", false),
	}
	working := []model.Slot{
		slot("b", "10:00", "10:30", false),
		slot("", "11:00", "11:30", false),
	}

	plan, err := Reconcile(previous, working)
	require.NoError(t, err)

	require.Len(t, plan.ToCreate, 1)
	assert.Equal(t, model.NewClock(11, 0), plan.ToCreate[0].StartTime)
	assert.Equal(t, model.NewClock(11, 30), plan.ToCreate[0].EndTime)
	assert.Empty(t, plan.ToUpdate)
	assert.Empty(t, plan.ToDelete)
}

func TestReconcile_Operations(t *testing.T) {
	for _, tc := range []struct {
		name       string
		previous   []model.Slot
		working    []model.Slot
		wantCreate int
		wantUpdate []string
		wantDelete []string
	}{
		{
			name:     "no changes",
			previous: []model.Slot{slot("a", "09:00", "09:30", false)},
			working:  []model.Slot{slot("a", "09:00", "09:30", false)},
		},
		{
			name:       "edit times",
			previous:   []model.Slot{slot("a", "09:00", "09:30", false)},
			working:    []model.Slot{slot("a", "09:15", "09:45", false)},
			wantUpdate: []string{"a"},
		},
		{
			name:       "delete free slot",
			previous:   []model.Slot{slot("a", "09:00", "09:30", false), slot("b", "10:00", "10:30", false)},
			working:    []model.Slot{slot("b", "10:00", "10:30", false)},
			wantDelete: []string{"a"},
		},
		{
			name:       "placeholder id is created",
			previous:   []model.Slot{slot("a", "09:00", "09:30", false)},
			working:    []model.Slot{slot("a", "09:00", "09:30", false), slot("temp-1", "12:00", "12:30", false)},
			wantCreate: 1,
		},
		{
			name:       "replace everything",
			previous:   []model.Slot{slot("a", "09:00", "09:30", false), slot("b", "10:00", "10:30", false)},
			working:    []model.Slot{slot("", "13:00", "14:00", false), slot("", "14:00", "15:00", false)},
			wantCreate: 2,
			wantDelete: []string{"a", "b"},
		},
		{
			name:       "overlap is not the reconciler's concern",
			previous:   []model.Slot{slot("a", "09:00", "10:00", false)},
			working:    []model.Slot{slot("a", "09:00", "10:00", false), slot("", "09:30", "10:30", false)},
			wantCreate: 1,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := Reconcile(tc.previous, tc.working)
			require.NoError(t, err)

			assert.Len(t, plan.ToCreate, tc.wantCreate)
			for _, c := range plan.ToCreate {
				assert.Empty(t, c.ID, "created slots must not carry placeholder ids")
			}
			assert.Equal(t, sortedOrEmpty(tc.wantUpdate), ids(plan.ToUpdate))
			assert.Equal(t, sortedOrEmpty(tc.wantDelete), ids(plan.ToDelete))
		})
	}
}

func sortedOrEmpty(in []string) []string {
	out := append([]string{}, in...)
	sort.Strings(out)
	return out
}

func TestReconcile_BookedSlotEditIsRejected(t *testing.T) {
	previous := []model.Slot{slot("a", "09:00", "09:30", true)}
	working := []model.Slot{slot("a", "09:30", "10:00", false)}

	_, err := Reconcile(previous, working)
	assert.ErrorIs(t, err, model.ErrBookedSlotModified)
}

func TestReconcile_BookedDraftIsRejected(t *testing.T) {
	_, err := Reconcile(nil, []model.Slot{slot("", "09:00", "09:30", true)})
	assert.ErrorIs(t, err, model.ErrBookedSlotModified)
}

func TestReconcile_DuplicateIDIsRejected(t *testing.T) {
	previous := []model.Slot{slot("a", "09:00", "09:30", false)}
	working := []model.Slot{slot("a", "09:00", "09:30", false), slot("a", "10:00", "10:30", false)}

	_, err := Reconcile(previous, working)
	assert.ErrorIs(t, err, model.ErrDuplicateSlotID)
}

// Применение плана к снимку даёт рабочий набор, и один id не попадает в два списка.
func TestReconcile_ApplyYieldsWorkingSet(t *testing.T) {
	previous := []model.Slot{
		slot("a", "08:00", "08:30", false),
		slot("b", "09:00", "09:30", true),
		slot("c", "10:00", "10:30", false),
		slot("d", "11:00", "11:30", false),
	}
	working := []model.Slot{
		slot("b", "09:00", "09:30", true),
		slot("c", "10:15", "10:45", false),
		slot("d", "11:00", "11:30", false),
		slot("", "15:00", "16:00", false),
		slot("tmp", "16:00", "17:00", false),
	}

	plan, err := Reconcile(previous, working)
	require.NoError(t, err)

	seen := map[string]int{}
	for _, batch := range [][]model.Slot{plan.ToUpdate, plan.ToDelete} {
		for _, s := range batch {
			seen[s.ID]++
		}
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "slot %s in more than one batch", id)
	}

	result := plan.Apply(previous)
	require.Len(t, result, len(working))

	var persisted []model.Slot
	drafts := 0
	for _, s := range result {
		if s.ID == "" {
			drafts++
			continue
		}
		persisted = append(persisted, s)
	}
	assert.Equal(t, 2, drafts)
	assert.True(t, SameSnapshot(persisted, working[:3]))
}

func TestReconcile_BookedNeverUpdatedOrDeleted(t *testing.T) {
	previous := []model.Slot{
		slot("a", "09:00", "09:30", true),
		slot("b", "10:00", "10:30", true),
	}
	for _, working := range [][]model.Slot{
		nil,
		{slot("a", "09:00", "09:30", false)},
		{slot("b", "10:00", "10:30", true), slot("", "12:00", "13:00", false)},
	} {
		plan, err := Reconcile(previous, working)
		require.NoError(t, err)
		assert.Empty(t, plan.ToUpdate)
		assert.Empty(t, plan.ToDelete)
	}
}

func TestSameSnapshot(t *testing.T) {
	a := []model.Slot{slot("a", "09:00", "09:30", false), slot("b", "10:00", "10:30", false)}
	b := []model.Slot{slot("b", "10:00", "10:30", false), slot("a", "09:00", "09:30", false)}
	assert.True(t, SameSnapshot(a, b))

	b[0].IsBooked = true
	assert.False(t, SameSnapshot(a, b))
	assert.False(t, SameSnapshot(a, a[:1]))
}
