package model

import "time"

type SessionStatus string

const (
	SessionStatusUpcoming  SessionStatus = "upcoming"  // Забронирована, ещё не началась
	SessionStatusActive    SessionStatus = "active"    // Идёт звонок
	SessionStatusCompleted SessionStatus = "completed" // Участник завершил звонок
	SessionStatusMissed    SessionStatus = "missed"    // Время вышло, никто не вошёл
	SessionStatusCancelled SessionStatus = "cancelled" // Отменена, слот освобождён
)

// Valid проверяет что статус входит в известный набор
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusUpcoming, SessionStatusActive, SessionStatusCompleted,
		SessionStatusMissed, SessionStatusCancelled:
		return true
	}
	return false
}

// IsTerminal проверяет что из статуса нет переходов
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusMissed || s == SessionStatusCancelled
}

// Session консультация, забронированная трейдером на слот эксперта.
// StartTime и EndTime копируются из слота при бронировании и дальше не меняются.
type Session struct {
	ID             string        `json:"id"`
	UserID         int64         `json:"user_id"`
	ExpertID       int64         `json:"expert_id"`
	AvailabilityID string        `json:"availability_id"`
	Status         SessionStatus `json:"status"`
	StartTime      time.Time     `json:"start_time"`
	EndTime        time.Time     `json:"end_time"`
	BookedAt       time.Time     `json:"booked_at"`
	StartedAt      *time.Time    `json:"started_at,omitempty"`
	EndedAt        *time.Time    `json:"ended_at,omitempty"`
	EndedBy        *int64        `json:"ended_by,omitempty"` // кто положил трубку
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Role роль участника консультации
type Role string

const (
	RoleTrader Role = "trader"
	RoleExpert Role = "expert"
)

func (r Role) Valid() bool {
	return r == RoleTrader || r == RoleExpert
}

// Identity кто выполняет запрос. Аутентификация снаружи, сюда приходит готовый результат.
type Identity struct {
	UserID int64 `json:"user_id"`
	Role   Role  `json:"role"`
}

// Participates проверяет что identity является участником сессии в своей роли
func (s *Session) Participates(who Identity) bool {
	switch who.Role {
	case RoleTrader:
		return s.UserID == who.UserID
	case RoleExpert:
		return s.ExpertID == who.UserID
	}
	return false
}

// StatusChange запрос на compare-and-set статуса сессии.
// From содержит допустимые исходные статусы, включая сам To.
type StatusChange struct {
	To    SessionStatus
	From  []SessionStatus
	Actor *int64
	At    time.Time
}
