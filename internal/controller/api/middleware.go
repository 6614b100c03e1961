package api

import (
	"strconv"
	"time"

	"github.com/Freeeeeet/consult_sessions/internal/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Заголовки личности от шлюза. Аутентификация выполняется до сервиса.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"

	identityKey = "identity"
)

// requireIdentity читает личность из заголовков и кладёт её в контекст
func requireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseInt(c.GetHeader(HeaderUserID), 10, 64)
		if err != nil || userID <= 0 {
			badRequest(c, HeaderUserID+" header must be a positive integer")
			return
		}
		role := model.Role(c.GetHeader(HeaderUserRole))
		if !role.Valid() {
			badRequest(c, HeaderUserRole+" header must be trader or expert")
			return
		}

		c.Set(identityKey, model.Identity{UserID: userID, Role: role})
		c.Next()
	}
}

func identityFrom(c *gin.Context) model.Identity {
	return c.MustGet(identityKey).(model.Identity)
}

// accessLog пишет каждый запрос в zap
func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if v, ok := c.Get(identityKey); ok {
			fields = append(fields, zap.Int64("user_id", v.(model.Identity).UserID))
		}

		switch {
		case c.Writer.Status() >= 500:
			logger.Error("HTTP request", fields...)
		case c.Writer.Status() >= 400:
			logger.Warn("HTTP request", fields...)
		default:
			logger.Debug("HTTP request", fields...)
		}
	}
}
