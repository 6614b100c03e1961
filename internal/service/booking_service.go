package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/consult_sessions/internal/model"
	"go.uber.org/zap"
)

type BookingService struct {
	sessions SessionStore
	notifier Notifier
	loc      *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

func NewBookingService(sessions SessionStore, notifier Notifier, loc *time.Location, logger *zap.Logger) *BookingService {
	return &BookingService{
		sessions: sessions,
		notifier: notifier,
		loc:      loc,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock подменяет источник времени
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

// Book бронирует слот для трейдера.
// Проигравший гонку получает ConflictError, повтор не нужен.
func (s *BookingService) Book(ctx context.Context, who model.Identity, slotID string) (*model.Session, error) {
	if who.Role != model.RoleTrader {
		return nil, &model.NotAuthorizedError{UserID: who.UserID, Resource: "booking"}
	}

	booked, err := s.sessions.Book(ctx, slotID, who.UserID, s.loc, s.now())
	if err != nil {
		return nil, fmt.Errorf("book slot: %w", err)
	}

	s.logger.Info("Slot booked",
		zap.String("session_id", booked.ID),
		zap.String("slot_id", slotID),
		zap.Int64("user_id", who.UserID),
		zap.Int64("expert_id", booked.ExpertID),
		zap.Time("start", booked.StartTime),
	)

	s.notifier.SessionChanged(ctx, *booked, &who.UserID)

	return booked, nil
}
