package client

import (
	"context"
	"errors"
	"time"

	"github.com/Freeeeeet/consult_sessions/internal/service"
)

const DefaultJoinTimeout = 5 * time.Second

// Joiner ограничивает попытку входа по времени. Тайм-аут всегда означает отказ.
type Joiner struct {
	client  *Client
	timeout time.Duration
}

func NewJoiner(c *Client, timeout time.Duration) *Joiner {
	if timeout <= 0 {
		timeout = DefaultJoinTimeout
	}
	return &Joiner{client: c, timeout: timeout}
}

// Join возвращает решение сервера или отказ с ErrJoinTimeout
func (j *Joiner) Join(ctx context.Context, sessionID string) (*service.JoinResult, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	res, err := j.client.Join(ctx, sessionID)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &service.JoinResult{}, ErrJoinTimeout
	}
	return res, err
}
