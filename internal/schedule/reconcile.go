// Package schedule содержит чистые алгоритмы над слотами эксперта:
// сверку рабочего набора с сервером, валидацию и проекцию календаря.
package schedule

import (
	"fmt"

	"github.com/Freeeeeet/consult_sessions/internal/model"
)

// Plan минимальный набор операций, переводящий сохранённые слоты в рабочий набор
type Plan struct {
	ToCreate []model.Slot `json:"to_create"`
	ToUpdate []model.Slot `json:"to_update"`
	ToDelete []model.Slot `json:"to_delete"`
}

// Empty true если сохранять нечего
func (p Plan) Empty() bool {
	return len(p.ToCreate) == 0 && len(p.ToUpdate) == 0 && len(p.ToDelete) == 0
}

// Reconcile сравнивает рабочий набор с последним снимком сервера по идентификаторам.
// Пересечения не проверяются, это делает ValidateWorkingSet и хранилище.
func Reconcile(previous, working []model.Slot) (Plan, error) {
	prevByID := make(map[string]model.Slot, len(previous))
	for _, slot := range previous {
		prevByID[slot.ID] = slot
	}

	var plan Plan
	seen := make(map[string]bool, len(working))

	for _, slot := range working {
		prev, persisted := prevByID[slot.ID]
		if slot.ID == "" || !persisted {
			// Черновик или временный id клиента
			if slot.IsBooked {
				return Plan{}, fmt.Errorf("draft slot %s-%s: %w", slot.StartTime, slot.EndTime, model.ErrBookedSlotModified)
			}
			draft := slot
			draft.ID = ""
			plan.ToCreate = append(plan.ToCreate, draft)
			continue
		}

		if seen[slot.ID] {
			return Plan{}, fmt.Errorf("slot %s: %w", slot.ID, model.ErrDuplicateSlotID)
		}
		seen[slot.ID] = true

		if prev.SameTimes(&slot) {
			continue
		}
		if prev.IsBooked {
			return Plan{}, fmt.Errorf("slot %s: %w", slot.ID, model.ErrBookedSlotModified)
		}

		updated := prev
		updated.StartTime = slot.StartTime
		updated.EndTime = slot.EndTime
		plan.ToUpdate = append(plan.ToUpdate, updated)
	}

	for _, prev := range previous {
		if seen[prev.ID] || prev.IsBooked {
			continue
		}
		plan.ToDelete = append(plan.ToDelete, prev)
	}

	return plan, nil
}

// Apply применяет план к снимку и возвращает ожидаемый набор после сохранения.
// Созданные слоты остаются без ID.
func (p Plan) Apply(previous []model.Slot) []model.Slot {
	deleted := make(map[string]bool, len(p.ToDelete))
	for _, slot := range p.ToDelete {
		deleted[slot.ID] = true
	}
	updated := make(map[string]model.Slot, len(p.ToUpdate))
	for _, slot := range p.ToUpdate {
		updated[slot.ID] = slot
	}

	result := make([]model.Slot, 0, len(previous)+len(p.ToCreate))
	for _, slot := range previous {
		if deleted[slot.ID] {
			continue
		}
		if u, ok := updated[slot.ID]; ok {
			slot = u
		}
		result = append(result, slot)
	}
	return append(result, p.ToCreate...)
}

// SameSnapshot сравнивает два снимка слотов одной даты без учёта порядка
func SameSnapshot(a, b []model.Slot) bool {
	if len(a) != len(b) {
		return false
	}
	byID := make(map[string]model.Slot, len(a))
	for _, slot := range a {
		byID[slot.ID] = slot
	}
	for _, slot := range b {
		other, ok := byID[slot.ID]
		if !ok || !other.SameTimes(&slot) || other.IsBooked != slot.IsBooked {
			return false
		}
		delete(byID, slot.ID)
	}
	return len(byID) == 0
}
