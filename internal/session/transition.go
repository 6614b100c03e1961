package session

import "github.com/Freeeeeet/consult_sessions/internal/model"

// allowedFrom из каких статусов можно попасть в целевой.
// Целевой статус всегда входит в свой список: повторная установка это no-op.
var allowedFrom = map[model.SessionStatus][]model.SessionStatus{
	model.SessionStatusUpcoming:  {model.SessionStatusUpcoming},
	model.SessionStatusActive:    {model.SessionStatusUpcoming, model.SessionStatusActive},
	model.SessionStatusMissed:    {model.SessionStatusUpcoming, model.SessionStatusMissed},
	model.SessionStatusCompleted: {model.SessionStatusActive, model.SessionStatusCompleted},
	model.SessionStatusCancelled: {model.SessionStatusUpcoming, model.SessionStatusActive, model.SessionStatusCancelled},
}

// AllowedFrom список исходных статусов для перехода в to.
// Используется хранилищем как условие compare-and-set.
func AllowedFrom(to model.SessionStatus) []model.SessionStatus {
	return allowedFrom[to]
}

// CanTransition проверяет переход from -> to с учётом идемпотентности
func CanTransition(from, to model.SessionStatus) bool {
	for _, s := range allowedFrom[to] {
		if s == from {
			return true
		}
	}
	return false
}

// CheckTransition возвращает InvalidTransitionError для запрещённого перехода
func CheckTransition(from, to model.SessionStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return &model.InvalidTransitionError{From: from, To: to}
}
