package model

import "time"

// Slot окно доступности эксперта на одну календарную дату.
// Пустой ID означает черновик, ещё не сохранённый в хранилище.
type Slot struct {
	ID        string    `json:"id,omitempty"`
	ExpertID  int64     `json:"expert_id"`
	Date      Date      `json:"date"`
	StartTime Clock     `json:"start_time"`
	EndTime   Clock     `json:"end_time"`
	IsBooked  bool      `json:"is_booked"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// IsDraft проверяет что слот ещё не сохранён
func (s *Slot) IsDraft() bool {
	return s.ID == ""
}

// Overlaps проверяет пересечение полуинтервалов [start, end)
func (s *Slot) Overlaps(o *Slot) bool {
	return s.StartTime < o.EndTime && o.StartTime < s.EndTime
}

// SameTimes сравнивает время начала и конца
func (s *Slot) SameTimes(o *Slot) bool {
	return s.StartTime == o.StartTime && s.EndTime == o.EndTime
}

// StartsAt возвращает момент начала слота в локации loc
func (s *Slot) StartsAt(loc *time.Location) time.Time {
	return s.Date.At(s.StartTime, loc)
}

// EndsAt возвращает момент конца слота в локации loc
func (s *Slot) EndsAt(loc *time.Location) time.Time {
	return s.Date.At(s.EndTime, loc)
}

// SlotTimes новые границы слота при редактировании
type SlotTimes struct {
	StartTime Clock `json:"start_time"`
	EndTime   Clock `json:"end_time"`
}

// SlotFilter выборка слотов эксперта. Нулевые From/To означают отсутствие границы,
// From включительно, To исключительно.
type SlotFilter struct {
	ExpertID int64
	From     Date
	To       Date
}

// ForDate фильтр слотов одной даты
func ForDate(expertID int64, date Date) SlotFilter {
	return SlotFilter{ExpertID: expertID, From: date, To: date.AddDays(1)}
}

// Match проверяет что слот попадает в выборку
func (f SlotFilter) Match(s *Slot) bool {
	if s.ExpertID != f.ExpertID {
		return false
	}
	if !f.From.IsZero() && s.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !s.Date.Before(f.To) {
		return false
	}
	return true
}
