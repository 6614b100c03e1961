package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/consult_sessions/internal/model"
	"github.com/Freeeeeet/consult_sessions/internal/schedule"
	"go.uber.org/zap"
)

type SlotService struct {
	slots  SlotStore
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

func NewSlotService(slots SlotStore, loc *time.Location, logger *zap.Logger) *SlotService {
	return &SlotService{
		slots:  slots,
		loc:    loc,
		now:    time.Now,
		logger: logger,
	}
}

// WithClock подменяет источник времени
func (s *SlotService) WithClock(now func() time.Time) *SlotService {
	s.now = now
	return s
}

// List возвращает слоты эксперта. Читать расписание может любой участник.
func (s *SlotService) List(ctx context.Context, filter model.SlotFilter) ([]model.Slot, error) {
	slots, err := s.slots.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return slots, nil
}

// Create создаёт слот от имени эксперта
func (s *SlotService) Create(ctx context.Context, who model.Identity, slot model.Slot) (*model.Slot, error) {
	if who.Role != model.RoleExpert {
		return nil, &model.NotAuthorizedError{UserID: who.UserID, Resource: "slots"}
	}

	slot.ID = ""
	slot.ExpertID = who.UserID
	slot.IsBooked = false
	if err := schedule.ValidateSlot(slot); err != nil {
		return nil, err
	}

	if err := s.slots.Create(ctx, &slot); err != nil {
		return nil, fmt.Errorf("create slot: %w", err)
	}

	s.logger.Info("Slot created",
		zap.String("slot_id", slot.ID),
		zap.Int64("expert_id", slot.ExpertID),
		zap.Stringer("date", slot.Date),
		zap.Stringer("start", slot.StartTime),
		zap.Stringer("end", slot.EndTime),
	)

	return &slot, nil
}

// Update меняет границы свободного слота владельца
func (s *SlotService) Update(ctx context.Context, who model.Identity, id string, times model.SlotTimes) (*model.Slot, error) {
	slot, err := s.owned(ctx, who, id)
	if err != nil {
		return nil, err
	}

	if slot.IsBooked {
		return nil, fmt.Errorf("update slot %s: %w", id, model.ErrBookedSlotModified)
	}

	candidate := *slot
	candidate.StartTime, candidate.EndTime = times.StartTime, times.EndTime
	if err := schedule.ValidateSlot(candidate); err != nil {
		return nil, err
	}

	updated, err := s.slots.UpdateTimes(ctx, id, times)
	if err != nil {
		return nil, fmt.Errorf("update slot: %w", err)
	}

	s.logger.Info("Slot updated",
		zap.String("slot_id", id),
		zap.Stringer("start", times.StartTime),
		zap.Stringer("end", times.EndTime),
	)

	return updated, nil
}

// Delete удаляет свободный слот владельца
func (s *SlotService) Delete(ctx context.Context, who model.Identity, id string) error {
	slot, err := s.owned(ctx, who, id)
	if err != nil {
		return err
	}

	if slot.IsBooked {
		return fmt.Errorf("delete slot %s: %w", id, model.ErrBookedSlotModified)
	}

	if err := s.slots.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}

	s.logger.Info("Slot deleted", zap.String("slot_id", id), zap.Int64("expert_id", who.UserID))
	return nil
}

// ApplyWorkingSet сохраняет рабочий набор слотов одной даты целиком.
// previous последний снимок, на основе которого эксперт редактировал набор.
func (s *SlotService) ApplyWorkingSet(ctx context.Context, who model.Identity, date model.Date, previous, working []model.Slot) ([]model.Slot, error) {
	if who.Role != model.RoleExpert {
		return nil, &model.NotAuthorizedError{UserID: who.UserID, Resource: "slots"}
	}

	working = append([]model.Slot(nil), working...)
	for i := range working {
		working[i].ExpertID = who.UserID
		working[i].Date = date
	}
	for _, slot := range previous {
		if slot.ExpertID != who.UserID || slot.Date != date {
			return nil, &model.StaleWorkingSetError{ExpertID: who.UserID, Date: date}
		}
	}

	if err := schedule.ValidateWorkingSet(previous, working); err != nil {
		return nil, err
	}

	plan, err := schedule.Reconcile(previous, working)
	if err != nil {
		return nil, fmt.Errorf("reconcile slots: %w", err)
	}

	result, err := s.slots.ApplyPlan(ctx, who.UserID, date, previous, plan)
	if err != nil {
		return nil, fmt.Errorf("apply working set: %w", err)
	}

	s.logger.Info("Working set applied",
		zap.Int64("expert_id", who.UserID),
		zap.Stringer("date", date),
		zap.Int("created", len(plan.ToCreate)),
		zap.Int("updated", len(plan.ToUpdate)),
		zap.Int("deleted", len(plan.ToDelete)),
	)

	return result, nil
}

// Calendar строит половину месяца с плотностью свободных слотов.
// Прошедшие дни не показываются, пустая половина сдвигается вперёд.
// Нулевые year, month, half означают текущий период в часовом поясе сервиса.
func (s *SlotService) Calendar(ctx context.Context, expertID int64, year int, month time.Month, half schedule.Half) (schedule.View, error) {
	today := model.DateOf(s.now().In(s.loc))
	if year == 0 {
		year = today.Year
	}
	if month == 0 {
		month = today.Month
	}
	if half == 0 {
		half = schedule.HalfOf(today)
	}
	if err := checkCalendarRange(today, year, month, half); err != nil {
		return schedule.View{}, err
	}
	req := schedule.ProjectRequest{Year: year, Month: month, Half: half, Today: today}

	// Сначала определяем итоговую половину, потом читаем только её слоты
	shape := schedule.Project(req)
	first := shape.Days[0].Date
	last := shape.Days[len(shape.Days)-1].Date

	slots, err := s.slots.List(ctx, model.SlotFilter{ExpertID: expertID, From: first, To: last.AddDays(1)})
	if err != nil {
		return schedule.View{}, fmt.Errorf("list calendar slots: %w", err)
	}

	view := schedule.Project(schedule.ProjectRequest{
		Year:  shape.Year,
		Month: shape.Month,
		Half:  shape.Half,
		Slots: slots,
		Today: today,
	})
	view.Advanced = shape.Advanced

	return view, nil
}

// Календарь доступен на год назад и на пять лет вперёд от сегодняшнего дня
const (
	calendarYearsBack    = 1
	calendarYearsForward = 5
)

func checkCalendarRange(today model.Date, year int, month time.Month, half schedule.Half) error {
	var violations []model.Violation
	if year < today.Year-calendarYearsBack || year > today.Year+calendarYearsForward {
		violations = append(violations, model.Violation{
			Message: fmt.Sprintf("year must be between %d and %d", today.Year-calendarYearsBack, today.Year+calendarYearsForward),
		})
	}
	if month < time.January || month > time.December {
		violations = append(violations, model.Violation{Message: "month must be 1-12"})
	}
	if half != schedule.FirstHalf && half != schedule.SecondHalf {
		violations = append(violations, model.Violation{Message: "half must be 1 or 2"})
	}
	if len(violations) > 0 {
		return &model.ValidationError{Violations: violations}
	}
	return nil
}

func (s *SlotService) owned(ctx context.Context, who model.Identity, id string) (*model.Slot, error) {
	slot, err := s.slots.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if slot == nil {
		return nil, fmt.Errorf("slot %s: %w", id, model.ErrNotFound)
	}
	if who.Role != model.RoleExpert || slot.ExpertID != who.UserID {
		return nil, &model.NotAuthorizedError{UserID: who.UserID, Resource: "slot " + id}
	}
	return slot, nil
}
