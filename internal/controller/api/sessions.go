package api

import (
	"errors"
	"net/http"

	"github.com/Freeeeeet/consult_sessions/internal/model"
	"github.com/gin-gonic/gin"
)

type setStatusRequest struct {
	Status model.SessionStatus `json:"status" binding:"required"`
}

func (h *Handler) book(c *gin.Context) {
	sess, err := h.booking.Book(c.Request.Context(), identityFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (h *Handler) getSession(c *gin.Context) {
	sess, err := h.sessions.Get(c.Request.Context(), c.Param("id"), identityFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *Handler) setStatus(c *gin.Context) {
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	sess, err := h.sessions.SetStatus(c.Request.Context(), c.Param("id"), req.Status, identityFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// join отвечает 200 с решением или 403 WINDOW_CLOSED с причиной и временем открытия окна
func (h *Handler) join(c *gin.Context) {
	res, err := h.sessions.Join(c.Request.Context(), c.Param("id"), identityFrom(c))

	var closed *model.WindowClosedError
	if errors.As(err, &closed) && res != nil {
		status, body := errorResponse(err)
		body.Session = res.Session
		if closed.Reason == model.ReasonTooEarly {
			opensAt := res.Decision.OpensAt
			body.OpensAt = &opensAt
		}
		c.AbortWithStatusJSON(status, body)
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) endCall(c *gin.Context) {
	sess, err := h.sessions.EndCall(c.Request.Context(), c.Param("id"), identityFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *Handler) cancel(c *gin.Context) {
	sess, err := h.sessions.Cancel(c.Request.Context(), c.Param("id"), identityFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}
