package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// issueLinkCode выдаёт код для /start в Telegram боте
func (h *Handler) issueLinkCode(c *gin.Context) {
	code, err := h.users.IssueLinkCode(c.Request.Context(), identityFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, code)
}
