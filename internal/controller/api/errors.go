package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/Freeeeeet/consult_sessions/internal/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Коды ошибок API. Клиент восстанавливает по ним типизированные ошибки.
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeValidation         = "VALIDATION"
	CodeNotFound           = "NOT_FOUND"
	CodeNotAuthorized      = "NOT_AUTHORIZED"
	CodeConflict           = "CONFLICT"
	CodeStaleWorkingSet    = "STALE_WORKING_SET"
	CodeWindowClosed       = "WINDOW_CLOSED"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeBookedSlotModified = "BOOKED_SLOT_MODIFIED"
	CodeSlotInPast         = "SLOT_IN_PAST"
	CodeInternal           = "INTERNAL"
)

// ErrorBody тело ответа с ошибкой
type ErrorBody struct {
	Error      string              `json:"error"`
	Code       string              `json:"code"`
	SlotID     string              `json:"slot_id,omitempty"`
	Reason     model.JoinReason    `json:"reason,omitempty"`
	OpensAt    *time.Time          `json:"opens_at,omitempty"`
	From       model.SessionStatus `json:"from,omitempty"`
	To         model.SessionStatus `json:"to,omitempty"`
	Violations []model.Violation   `json:"violations,omitempty"`
	// Session текущее состояние при отказе во входе
	Session *model.Session `json:"session,omitempty"`
}

// errorResponse сопоставляет ошибку сервиса со статусом и телом ответа
func errorResponse(err error) (int, ErrorBody) {
	body := ErrorBody{Error: err.Error()}

	var (
		verr     *model.ValidationError
		conflict *model.ConflictError
		denied   *model.NotAuthorizedError
		stale    *model.StaleWorkingSetError
		closed   *model.WindowClosedError
		invalid  *model.InvalidTransitionError
	)

	switch {
	case errors.As(err, &verr):
		body.Code, body.Violations = CodeValidation, verr.Violations
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &conflict):
		body.Code, body.SlotID = CodeConflict, conflict.SlotID
		return http.StatusConflict, body
	case errors.As(err, &denied):
		body.Code = CodeNotAuthorized
		return http.StatusForbidden, body
	case errors.As(err, &stale):
		body.Code = CodeStaleWorkingSet
		return http.StatusConflict, body
	case errors.As(err, &closed):
		body.Code, body.Reason = CodeWindowClosed, closed.Reason
		return http.StatusForbidden, body
	case errors.As(err, &invalid):
		body.Code, body.From, body.To = CodeInvalidTransition, invalid.From, invalid.To
		return http.StatusConflict, body
	case errors.Is(err, model.ErrNotFound):
		body.Code = CodeNotFound
		return http.StatusNotFound, body
	case errors.Is(err, model.ErrBookedSlotModified):
		body.Code = CodeBookedSlotModified
		return http.StatusConflict, body
	case errors.Is(err, model.ErrDuplicateSlotID):
		body.Code = CodeValidation
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, model.ErrSlotInPast):
		body.Code = CodeSlotInPast
		return http.StatusUnprocessableEntity, body
	default:
		body.Code, body.Error = CodeInternal, "internal error"
		return http.StatusInternalServerError, body
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, body := errorResponse(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorBody{Error: msg, Code: CodeBadRequest})
}
