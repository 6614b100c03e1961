package model

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateAt_WallClockOnDSTChange(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	tests := []struct {
		name string
		date Date
		at   Clock
		want string
	}{
		{"spring forward", Date{Year: 2025, Month: time.March, Day: 30}, NewClock(9, 0), "2025-03-30T09:00:00+02:00"},
		{"fall back", Date{Year: 2025, Month: time.October, Day: 26}, NewClock(9, 0), "2025-10-26T09:00:00+01:00"},
		{"ordinary day", Date{Year: 2025, Month: time.March, Day: 1}, NewClock(23, 30), "2025-03-01T23:30:00+01:00"},
		{"end of day", Date{Year: 2025, Month: time.March, Day: 30}, NewClock(24, 0), "2025-03-31T00:00:00+02:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.date.At(tt.at, berlin).Format(time.RFC3339))
		})
	}
}

func TestSlotStartsAt_UsesLocation(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	slot := Slot{Date: Date{Year: 2025, Month: time.March, Day: 30}, StartTime: NewClock(9, 0), EndTime: NewClock(9, 30)}
	assert.Equal(t, 9, slot.StartsAt(berlin).Hour())
	assert.Equal(t, 30*time.Minute, slot.EndsAt(berlin).Sub(slot.StartsAt(berlin)))
}
