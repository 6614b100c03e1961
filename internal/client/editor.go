package client

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/consult_sessions/internal/model"
	"github.com/Freeeeeet/consult_sessions/internal/schedule"
	"golang.org/x/sync/errgroup"
)

// SlotEditor сохраняет рабочий набор эксперта отдельными вызовами create/update/delete
type SlotEditor struct {
	client *Client
}

func NewSlotEditor(c *Client) *SlotEditor {
	return &SlotEditor{client: c}
}

// Save проверяет и сверяет набор локально, затем отправляет три пачки операций параллельно.
// После завершения всех вызовов возвращает свежий список слотов даты.
// Ошибка любой операции возвращается после того, как остальные завершились.
func (e *SlotEditor) Save(ctx context.Context, date model.Date, previous, working []model.Slot) ([]model.Slot, error) {
	working = append([]model.Slot(nil), working...)
	for i := range working {
		working[i].ExpertID = e.client.who.UserID
		working[i].Date = date
	}

	if err := schedule.ValidateWorkingSet(previous, working); err != nil {
		return nil, err
	}
	plan, err := schedule.Reconcile(previous, working)
	if err != nil {
		return nil, fmt.Errorf("reconcile slots: %w", err)
	}

	if !plan.Empty() {
		// Без общего ctx: отказ одной операции не отменяет остальные
		var g errgroup.Group
		g.Go(func() error {
			for _, slot := range plan.ToCreate {
				if _, err := e.client.CreateSlot(ctx, date, slot.StartTime, slot.EndTime); err != nil {
					return err
				}
			}
			return nil
		})
		g.Go(func() error {
			for _, slot := range plan.ToUpdate {
				times := model.SlotTimes{StartTime: slot.StartTime, EndTime: slot.EndTime}
				if _, err := e.client.UpdateSlot(ctx, slot.ID, times); err != nil {
					return err
				}
			}
			return nil
		})
		g.Go(func() error {
			for _, slot := range plan.ToDelete {
				if err := e.client.DeleteSlot(ctx, slot.ID); err != nil {
					return err
				}
			}
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("save working set: %w", err)
		}
	}

	return e.client.ListSlots(ctx, e.client.who.UserID, date)
}
