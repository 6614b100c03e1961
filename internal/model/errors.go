package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrSlotInPast         = errors.New("slot is in the past")
	ErrBookedSlotModified = errors.New("booked slot cannot be edited or deleted")
	ErrDuplicateSlotID    = errors.New("slot id appears more than once in working set")
	ErrLinkCodeInvalid    = errors.New("link code is unknown or expired")
)

// ConflictError слот уже забронирован на момент коммита
type ConflictError struct {
	SlotID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot %s is no longer available", e.SlotID)
}

// NotAuthorizedError запрос от identity, которой не принадлежит сессия или слот
type NotAuthorizedError struct {
	UserID   int64
	Resource string
}

func (e *NotAuthorizedError) Error() string {
	return fmt.Sprintf("user %d is not authorized for %s", e.UserID, e.Resource)
}

// StaleWorkingSetError снимок previousSlots не совпадает с сервером, нужно перечитать
type StaleWorkingSetError struct {
	ExpertID int64
	Date     Date
}

func (e *StaleWorkingSetError) Error() string {
	return fmt.Sprintf("slots of expert %d on %s changed since last fetch", e.ExpertID, e.Date)
}

// JoinReason причина отказа во входе в сессию
type JoinReason string

const (
	ReasonTooEarly        JoinReason = "TOO_EARLY"
	ReasonAlreadyEnded    JoinReason = "ALREADY_ENDED"
	ReasonAlreadyTerminal JoinReason = "ALREADY_TERMINAL"
	ReasonNotAuthorized   JoinReason = "NOT_AUTHORIZED"
)

// WindowClosedError вход вне разрешённого окна
type WindowClosedError struct {
	Reason JoinReason
}

func (e *WindowClosedError) Error() string {
	return fmt.Sprintf("join window closed: %s", e.Reason)
}

// Retryable true когда окно ещё откроется
func (e *WindowClosedError) Retryable() bool {
	return e.Reason == ReasonTooEarly
}

// InvalidTransitionError переход запрещён машиной состояний
type InvalidTransitionError struct {
	From SessionStatus
	To   SessionStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move session from %s to %s", e.From, e.To)
}

// Violation одна проблема рабочего набора слотов
type Violation struct {
	SlotID  string `json:"slot_id,omitempty"`
	Message string `json:"message"`
}

// ValidationError рабочий набор отклонён до обращения к хранилищу
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return "invalid slots: " + strings.Join(msgs, "; ")
}
