package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/Freeeeeet/consult_sessions/internal/realtime"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// streamEvents отдаёт события комнаты сессии как text/event-stream.
// Last-Event-ID воспроизводит пропущенные события из буфера хаба.
func (h *Handler) streamEvents(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.sessions.Get(c.Request.Context(), id, identityFrom(c)); err != nil {
		h.fail(c, err)
		return
	}

	sub := h.hub.Subscribe(id)
	defer h.hub.Unsubscribe(sub)

	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	lastSeq := uint64(0)
	if raw := c.GetHeader("Last-Event-ID"); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			for _, ev := range h.hub.Since(id, parsed) {
				h.writeEvent(w, ev)
				lastSeq = ev.Seq
			}
			w.Flush()
		}
	}

	ctx := c.Request.Context()
	for {
		next, cancel := context.WithTimeout(ctx, h.keepalive)
		ev, err := sub.Next(next)
		cancel()

		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			fmt.Fprint(w, ":keepalive\n\n")
		case ev.Seq <= lastSeq:
			// Уже отдано при воспроизведении
			continue
		default:
			h.writeEvent(w, ev)
		}
		w.Flush()
	}
}

func (h *Handler) writeEvent(w io.Writer, ev realtime.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Warn("Failed to marshal event", zap.String("session_id", ev.SessionID), zap.Error(err))
		return
	}
	fmt.Fprintf(w, "id:%d\nevent:%s\ndata:%s\n\n", ev.Seq, ev.Type, data)
}
