// Package session содержит правила жизненного цикла консультации:
// окно входа для каждой роли и допустимые переходы статусов.
package session

import (
	"time"

	"github.com/Freeeeeet/consult_sessions/internal/model"
)

// Окно входа до начала сессии. Эксперт может зайти раньше трейдера.
const (
	TraderLead = 5 * time.Minute
	ExpertLead = 10 * time.Minute
)

// Decision результат проверки входа
type Decision struct {
	Allowed bool             `json:"allowed"`
	Reason  model.JoinReason `json:"reason,omitempty"`
	// Correction статус, который вызывающий должен записать до ответа (пусто если не нужно)
	Correction model.SessionStatus `json:"correction,omitempty"`
	OpensAt    time.Time           `json:"opens_at"`
}

// Err возвращает типизированную ошибку для отказа
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &model.WindowClosedError{Reason: d.Reason}
}

// LeadFor сколько до начала можно войти в роли role
func LeadFor(role model.Role) time.Duration {
	if role == model.RoleExpert {
		return ExpertLead
	}
	return TraderLead
}

// CanJoin решает, может ли участник войти в сессию в момент now.
// Окно роли: [start-lead, end). Граница start-lead включительно, end исключительно.
func CanJoin(now time.Time, s *model.Session, who model.Identity) Decision {
	opensAt := s.StartTime.Add(-LeadFor(who.Role))

	if !s.Participates(who) {
		return Decision{Reason: model.ReasonNotAuthorized, OpensAt: opensAt}
	}

	if s.Status.IsTerminal() {
		return Decision{Reason: model.ReasonAlreadyTerminal, OpensAt: opensAt}
	}

	if !now.Before(s.EndTime) {
		d := Decision{Reason: model.ReasonAlreadyEnded, OpensAt: opensAt}
		// Эксперт исправляет протухший upcoming, трейдер только получает отказ
		if who.Role == model.RoleExpert && s.Status == model.SessionStatusUpcoming {
			d.Correction = model.SessionStatusMissed
		}
		return d
	}

	if now.Before(opensAt) {
		return Decision{Reason: model.ReasonTooEarly, OpensAt: opensAt}
	}

	d := Decision{Allowed: true, OpensAt: opensAt}
	if who.Role == model.RoleTrader && s.Status == model.SessionStatusUpcoming && !now.Before(s.StartTime) {
		d.Correction = model.SessionStatusActive
	}
	return d
}

// CheckTiming проверяет время для переходов, привязанных к окну сессии:
// active только при открытом окне входа роли, missed только после окончания.
// Повторная установка текущего статуса не проверяется.
func CheckTiming(now time.Time, s *model.Session, who model.Identity, target model.SessionStatus) error {
	if s.Status == target {
		return nil
	}

	switch target {
	case model.SessionStatusActive:
		return CanJoin(now, s, who).Err()
	case model.SessionStatusMissed:
		if now.Before(s.EndTime) {
			return &model.WindowClosedError{Reason: model.ReasonTooEarly}
		}
	}
	return nil
}
