package schedule

import (
	"fmt"
	"sort"

	"github.com/Freeeeeet/consult_sessions/internal/model"
)

// ValidateWorkingSet проверяет рабочий набор до любых обращений к хранилищу:
// корректные границы и отсутствие пересечений. Забронированные слоты из снимка
// остаются в расписании даже если их нет в рабочем наборе, поэтому участвуют в проверке.
func ValidateWorkingSet(previous, working []model.Slot) error {
	var violations []model.Violation

	effective := make([]model.Slot, 0, len(working)+len(previous))
	inWorking := make(map[string]bool, len(working))
	for _, slot := range working {
		if slot.ID != "" {
			inWorking[slot.ID] = true
		}
		if v, ok := checkBounds(slot); !ok {
			violations = append(violations, v)
			continue
		}
		effective = append(effective, slot)
	}
	for _, slot := range previous {
		if slot.IsBooked && !inWorking[slot.ID] {
			effective = append(effective, slot)
		}
	}

	violations = append(violations, findOverlaps(effective)...)
	if len(violations) > 0 {
		return &model.ValidationError{Violations: violations}
	}
	return nil
}

// ValidateSlot проверяет один слот
func ValidateSlot(slot model.Slot) error {
	if v, ok := checkBounds(slot); !ok {
		return &model.ValidationError{Violations: []model.Violation{v}}
	}
	return nil
}

func checkBounds(slot model.Slot) (model.Violation, bool) {
	switch {
	case slot.Date.IsZero():
		return model.Violation{SlotID: slot.ID, Message: "date is required"}, false
	case !slot.StartTime.Valid() || !slot.EndTime.Valid():
		return model.Violation{SlotID: slot.ID, Message: fmt.Sprintf("time out of day range %s-%s", slot.StartTime, slot.EndTime)}, false
	case slot.EndTime <= slot.StartTime:
		return model.Violation{SlotID: slot.ID, Message: fmt.Sprintf("end time must be after start time %s-%s", slot.StartTime, slot.EndTime)}, false
	}
	return model.Violation{}, true
}

// findOverlaps сортирует по началу и сравнивает соседние интервалы с максимальным концом
func findOverlaps(slots []model.Slot) []model.Violation {
	sorted := make([]model.Slot, len(slots))
	copy(sorted, slots)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].StartTime == sorted[j].StartTime {
			return sorted[i].EndTime < sorted[j].EndTime
		}
		return sorted[i].StartTime < sorted[j].StartTime
	})

	var violations []model.Violation
	for i := 1; i < len(sorted); i++ {
		for j := i - 1; j >= 0; j-- {
			if sorted[j].EndTime <= sorted[i].StartTime {
				continue
			}
			violations = append(violations, model.Violation{
				SlotID: sorted[i].ID,
				Message: fmt.Sprintf("%s-%s overlaps %s-%s",
					sorted[i].StartTime, sorted[i].EndTime, sorted[j].StartTime, sorted[j].EndTime),
			})
			break
		}
	}
	return violations
}
