// Package api HTTP+JSON интерфейс сервиса на gin
package api

import (
	"net/http"
	"time"

	"github.com/Freeeeeet/consult_sessions/internal/realtime"
	"github.com/Freeeeeet/consult_sessions/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultKeepalive = 15 * time.Second

type Handler struct {
	slots     *service.SlotService
	booking   *service.BookingService
	sessions  *service.SessionService
	users     *service.UserService
	hub       *realtime.Hub
	keepalive time.Duration
	logger    *zap.Logger
}

func NewHandler(
	slots *service.SlotService,
	booking *service.BookingService,
	sessions *service.SessionService,
	users *service.UserService,
	hub *realtime.Hub,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		slots:     slots,
		booking:   booking,
		sessions:  sessions,
		users:     users,
		hub:       hub,
		keepalive: defaultKeepalive,
		logger:    logger,
	}
}

// NewRouter собирает gin engine со всеми маршрутами
func NewRouter(h *Handler, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(accessLog(logger), gin.Recovery())

	v1 := r.Group("/v1")
	v1.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Расписание эксперта доступно без личности
	v1.GET("/experts/:expertID/slots", h.listSlots)
	v1.GET("/experts/:expertID/calendar", h.calendar)
	v1.GET("/experts/:expertID/calendar.png", h.calendarImage)

	authed := v1.Group("")
	authed.Use(requireIdentity())

	authed.POST("/slots", h.createSlot)
	authed.PATCH("/slots/:id", h.updateSlot)
	authed.DELETE("/slots/:id", h.deleteSlot)
	authed.PUT("/experts/:expertID/days/:date/slots", h.applyWorkingSet)
	authed.POST("/slots/:id/book", h.book)

	authed.GET("/sessions/:id", h.getSession)
	authed.PUT("/sessions/:id/status", h.setStatus)
	authed.POST("/sessions/:id/join", h.join)
	authed.POST("/sessions/:id/end", h.endCall)
	authed.POST("/sessions/:id/cancel", h.cancel)
	authed.GET("/sessions/:id/events", h.streamEvents)

	authed.POST("/me/telegram-code", h.issueLinkCode)

	return r
}
