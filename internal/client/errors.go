package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Freeeeeet/consult_sessions/internal/controller/api"
	"github.com/Freeeeeet/consult_sessions/internal/model"
	"github.com/Freeeeeet/consult_sessions/internal/service"
	"github.com/Freeeeeet/consult_sessions/internal/session"
)

var (
	// ErrJoinTimeout сервер не ответил на вход за отведённое время, вход запрещён
	ErrJoinTimeout = errors.New("join attempt timed out")

	ErrServer = errors.New("server error")
)

// deniedJoin несёт решение сервера вместе с ошибкой отказа
type deniedJoin struct {
	result service.JoinResult
	cause  error
}

func (e *deniedJoin) Error() string { return e.cause.Error() }
func (e *deniedJoin) Unwrap() error { return e.cause }

// decodeError восстанавливает типизированную ошибку по коду ответа
func (c *Client) decodeError(resp *http.Response) error {
	var body api.ErrorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: status %d", ErrServer, resp.StatusCode)
	}

	switch body.Code {
	case api.CodeValidation:
		return &model.ValidationError{Violations: body.Violations}
	case api.CodeConflict:
		return &model.ConflictError{SlotID: body.SlotID}
	case api.CodeNotAuthorized:
		return &model.NotAuthorizedError{UserID: c.who.UserID, Resource: resp.Request.URL.Path}
	case api.CodeStaleWorkingSet:
		return &model.StaleWorkingSetError{ExpertID: c.who.UserID}
	case api.CodeInvalidTransition:
		return &model.InvalidTransitionError{From: body.From, To: body.To}
	case api.CodeNotFound:
		return model.ErrNotFound
	case api.CodeBookedSlotModified:
		return model.ErrBookedSlotModified
	case api.CodeSlotInPast:
		return model.ErrSlotInPast
	case api.CodeWindowClosed:
		cause := &model.WindowClosedError{Reason: body.Reason}
		decision := session.Decision{Reason: body.Reason}
		if body.OpensAt != nil {
			decision.OpensAt = *body.OpensAt
		}
		return &deniedJoin{result: service.JoinResult{Decision: decision, Session: body.Session}, cause: cause}
	default:
		return fmt.Errorf("%w: %s (%s)", ErrServer, body.Error, body.Code)
	}
}
