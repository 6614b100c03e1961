package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Freeeeeet/consult_sessions/internal/model"
	"github.com/Freeeeeet/consult_sessions/internal/schedule"
	"github.com/gin-gonic/gin"
)

type createSlotRequest struct {
	Date      model.Date  `json:"date"`
	StartTime model.Clock `json:"start_time"`
	EndTime   model.Clock `json:"end_time"`
}

// WorkingSetRequest рабочий набор слотов даты и снимок, от которого он получен
type WorkingSetRequest struct {
	Previous []model.Slot `json:"previous"`
	Working  []model.Slot `json:"working"`
}

func (h *Handler) listSlots(c *gin.Context) {
	expertID, ok := expertParam(c)
	if !ok {
		return
	}

	filter := model.SlotFilter{ExpertID: expertID}
	if date, ok := dateQuery(c, "date"); !ok {
		return
	} else if !date.IsZero() {
		filter = model.ForDate(expertID, date)
	}
	if from, ok := dateQuery(c, "from"); !ok {
		return
	} else if !from.IsZero() {
		filter.From = from
	}
	if to, ok := dateQuery(c, "to"); !ok {
		return
	} else if !to.IsZero() {
		filter.To = to
	}

	slots, err := h.slots.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}

func (h *Handler) createSlot(c *gin.Context) {
	var req createSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	slot, err := h.slots.Create(c.Request.Context(), identityFrom(c), model.Slot{
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, slot)
}

func (h *Handler) updateSlot(c *gin.Context) {
	var times model.SlotTimes
	if err := c.ShouldBindJSON(&times); err != nil {
		badRequest(c, err.Error())
		return
	}

	slot, err := h.slots.Update(c.Request.Context(), identityFrom(c), c.Param("id"), times)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, slot)
}

func (h *Handler) deleteSlot(c *gin.Context) {
	if err := h.slots.Delete(c.Request.Context(), identityFrom(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) applyWorkingSet(c *gin.Context) {
	expertID, ok := expertParam(c)
	if !ok {
		return
	}
	who := identityFrom(c)
	if who.Role != model.RoleExpert || who.UserID != expertID {
		h.fail(c, &model.NotAuthorizedError{UserID: who.UserID, Resource: "slots of expert " + c.Param("expertID")})
		return
	}

	date, err := model.ParseDate(c.Param("date"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	var req WorkingSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	slots, err := h.slots.ApplyWorkingSet(c.Request.Context(), who, date, req.Previous, req.Working)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}

func (h *Handler) calendar(c *gin.Context) {
	view, ok := h.projectCalendar(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) calendarImage(c *gin.Context) {
	view, ok := h.projectCalendar(c)
	if !ok {
		return
	}

	png, err := schedule.RenderCalendarPNG(view)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// projectCalendar разбирает year, month, half. Отсутствующие параметры
// заполняет сервис по своему часовому поясу.
func (h *Handler) projectCalendar(c *gin.Context) (schedule.View, bool) {
	expertID, ok := expertParam(c)
	if !ok {
		return schedule.View{}, false
	}

	year, ok := intQuery(c, "year", 0)
	if !ok {
		return schedule.View{}, false
	}
	month, ok := intQuery(c, "month", 0)
	if !ok {
		return schedule.View{}, false
	}
	half, ok := intQuery(c, "half", 0)
	if !ok {
		return schedule.View{}, false
	}

	view, err := h.slots.Calendar(c.Request.Context(), expertID, year, time.Month(month), schedule.Half(half))
	if err != nil {
		h.fail(c, err)
		return schedule.View{}, false
	}
	return view, true
}

func expertParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("expertID"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "expert id must be a positive integer")
		return 0, false
	}
	return id, true
}

func dateQuery(c *gin.Context, key string) (model.Date, bool) {
	raw := c.Query(key)
	if raw == "" {
		return model.Date{}, true
	}
	date, err := model.ParseDate(raw)
	if err != nil {
		badRequest(c, err.Error())
		return model.Date{}, false
	}
	return date, true
}

func intQuery(c *gin.Context, key string, fallback int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, key+" must be an integer")
		return 0, false
	}
	return v, true
}
