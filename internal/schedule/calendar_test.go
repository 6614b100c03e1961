package schedule

import (
	"bytes"
	"testing"
	"time"

	"github.com/Freeeeeet/consult_sessions/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slotOn(d int, start, end string, booked bool) model.Slot {
	s := slot("", start, end, booked)
	s.Date = model.Date{Year: 2025, Month: time.March, Day: d}
	return s
}

func TestDensityFor(t *testing.T) {
	for _, tc := range []struct {
		count int
		want  Density
	}{
		{0, DensityNone},
		{1, DensityLow},
		{3, DensityLow},
		{4, DensityMedium},
		{6, DensityMedium},
		{7, DensityHigh},
		{20, DensityHigh},
	} {
		assert.Equal(t, tc.want, DensityFor(tc.count), "count=%d", tc.count)
	}
}

func TestProject_CountsAndSorts(t *testing.T) {
	slots := []model.Slot{
		slotOn(3, "11:00", "11:30", false),
		slotOn(3, "09:00", "09:30", true),
		slotOn(3, "10:00", "10:30", false),
		slotOn(20, "10:00", "10:30", false),
	}
	input := append([]model.Slot{}, slots...)

	view := Project(ProjectRequest{Year: 2025, Month: time.March, Half: FirstHalf, Slots: slots})

	require.Len(t, view.Days, 15)
	assert.False(t, view.Advanced)

	third := view.Days[2]
	assert.Equal(t, 3, third.DayNumber)
	assert.Equal(t, "Monday", third.DayName)
	assert.Equal(t, 2, third.AvailableSlotCount)
	assert.Equal(t, DensityLow, third.Density)
	require.Len(t, third.Slots, 3)
	assert.Equal(t, model.NewClock(9, 0), third.Slots[0].StartTime)
	assert.Equal(t, model.NewClock(11, 0), third.Slots[2].StartTime)

	assert.Equal(t, DensityNone, view.Days[0].Density)
	assert.Equal(t, input, slots, "projection must not mutate input")
}

func TestProject_SecondHalfCoversMonthEnd(t *testing.T) {
	view := Project(ProjectRequest{Year: 2024, Month: time.February, Half: SecondHalf})
	require.Len(t, view.Days, 14)
	assert.Equal(t, 16, view.Days[0].DayNumber)
	assert.Equal(t, 29, view.Days[13].DayNumber)
}

func TestProject_SkipsPastDays(t *testing.T) {
	today := model.Date{Year: 2025, Month: time.March, Day: 10}
	view := Project(ProjectRequest{Year: 2025, Month: time.March, Half: FirstHalf, Today: today})

	require.Len(t, view.Days, 6)
	assert.Equal(t, 10, view.Days[0].DayNumber)
	assert.False(t, view.Advanced)
}

func TestProject_AdvancesWhenHalfIsInThePast(t *testing.T) {
	today := model.Date{Year: 2025, Month: time.March, Day: 20}
	view := Project(ProjectRequest{Year: 2025, Month: time.March, Half: FirstHalf, Today: today})

	assert.True(t, view.Advanced)
	assert.Equal(t, SecondHalf, view.Half)
	assert.Equal(t, 20, view.Days[0].DayNumber)
	assert.Equal(t, 31, view.Days[len(view.Days)-1].DayNumber)
}

func TestProject_AdvancesAcrossMonths(t *testing.T) {
	today := model.Date{Year: 2025, Month: time.January, Day: 5}
	view := Project(ProjectRequest{Year: 2024, Month: time.December, Half: SecondHalf, Today: today})

	assert.True(t, view.Advanced)
	assert.Equal(t, 2025, view.Year)
	assert.Equal(t, time.January, view.Month)
	assert.Equal(t, FirstHalf, view.Half)
	assert.Equal(t, 5, view.Days[0].DayNumber)
}

func TestRenderCalendarPNG(t *testing.T) {
	view := Project(ProjectRequest{
		Year:  2025,
		Month: time.March,
		Half:  FirstHalf,
		Slots: []model.Slot{
			slotOn(3, "09:00", "09:30", true),
			slotOn(3, "10:00", "10:30", false),
			slotOn(3, "11:00", "11:30", false),
			slotOn(3, "12:00", "12:30", false),
			slotOn(3, "13:00", "13:30", false),
		},
	})

	data, err := RenderCalendarPNG(view)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestProject_PastRangeJumpsToToday(t *testing.T) {
	today := model.Date{Year: 2025, Month: time.March, Day: 20}

	done := make(chan View, 1)
	go func() {
		done <- Project(ProjectRequest{Year: -100000, Month: time.January, Half: FirstHalf, Today: today})
	}()

	select {
	case view := <-done:
		assert.True(t, view.Advanced)
		assert.Equal(t, 2025, view.Year)
		assert.Equal(t, time.March, view.Month)
		assert.Equal(t, SecondHalf, view.Half)
		assert.Equal(t, 20, view.Days[0].DayNumber)
	case <-time.After(time.Second):
		t.Fatal("projection of a distant past range did not finish")
	}
}

func TestHalfOf(t *testing.T) {
	assert.Equal(t, FirstHalf, HalfOf(model.Date{Year: 2025, Month: time.March, Day: 15}))
	assert.Equal(t, SecondHalf, HalfOf(model.Date{Year: 2025, Month: time.March, Day: 16}))
}
