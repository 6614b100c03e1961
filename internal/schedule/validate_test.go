package schedule

import (
	"testing"

	"github.com/Freeeeeet/consult_sessions/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateWorkingSet(t *testing.T) {
	booked := slot("a", "09:00", "09:30", true)

	for _, tc := range []struct {
		name     string
		previous []model.Slot
		working  []model.Slot
		wantErr  bool
	}{
		{
			name:    "adjacent slots are fine",
			working: []model.Slot{slot("", "09:00", "09:30", false), slot("", "09:30", "10:00", false)},
		},
		{
			name:    "overlap",
			working: []model.Slot{slot("", "09:00", "10:00", false), slot("", "09:30", "10:30", false)},
			wantErr: true,
		},
		{
			name:    "contained slot",
			working: []model.Slot{slot("", "09:00", "12:00", false), slot("", "10:00", "10:30", false), slot("", "11:00", "11:30", false)},
			wantErr: true,
		},
		{
			name:    "end before start",
			working: []model.Slot{slot("", "10:00", "09:00", false)},
			wantErr: true,
		},
		{
			name:     "draft over an omitted booked slot",
			previous: []model.Slot{booked},
			working:  []model.Slot{slot("", "09:15", "09:45", false)},
			wantErr:  true,
		},
		{
			name:     "booked slot listed once is not counted twice",
			previous: []model.Slot{booked},
			working:  []model.Slot{booked, slot("", "10:00", "10:30", false)},
		},
		{
			name:    "slot ending at midnight",
			working: []model.Slot{slot("", "23:30", "24:00", false)},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateWorkingSet(tc.previous, tc.working)
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			var verr *model.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.NotEmpty(t, verr.Violations)
		})
	}
}

func TestValidateSlot_MissingDate(t *testing.T) {
	s := slot("", "09:00", "10:00", false)
	s.Date = model.Date{}
	assert.Error(t, ValidateSlot(s))
}
