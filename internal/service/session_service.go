package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/consult_sessions/internal/model"
	"github.com/Freeeeeet/consult_sessions/internal/session"
	"go.uber.org/zap"
)

// sweepBatch сколько просроченных сессий исправляется за один проход
const sweepBatch = 100

type SessionService struct {
	sessions SessionStore
	notifier Notifier
	now      func() time.Time
	logger   *zap.Logger
}

func NewSessionService(sessions SessionStore, notifier Notifier, logger *zap.Logger) *SessionService {
	return &SessionService{
		sessions: sessions,
		notifier: notifier,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock подменяет источник времени
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	s.now = now
	return s
}

// JoinResult ответ на попытку входа: решение и состояние сессии после коррекции
type JoinResult struct {
	Decision session.Decision `json:"decision"`
	Session  *model.Session   `json:"session"`
}

// Get возвращает сессию участнику
func (s *SessionService) Get(ctx context.Context, id string, who model.Identity) (*model.Session, error) {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return nil, fmt.Errorf("session %s: %w", id, model.ErrNotFound)
	}
	if !sess.Participates(who) {
		return nil, &model.NotAuthorizedError{UserID: who.UserID, Resource: "session " + id}
	}
	return sess, nil
}

// SetStatus идемпотентно переводит сессию в target.
// Повторная установка того же статуса успешна и ничего не рассылает.
// active требует открытого окна входа, missed только после окончания сессии.
func (s *SessionService) SetStatus(ctx context.Context, id string, target model.SessionStatus, who model.Identity) (*model.Session, error) {
	if !target.Valid() {
		return nil, &model.ValidationError{Violations: []model.Violation{{Message: fmt.Sprintf("unknown status %q", target)}}}
	}

	sess, err := s.Get(ctx, id, who)
	if err != nil {
		return nil, err
	}
	if err := session.CheckTransition(sess.Status, target); err != nil {
		return nil, err
	}
	if err := session.CheckTiming(s.now(), sess, who, target); err != nil {
		return nil, err
	}

	updated, _, err := s.transition(ctx, id, target, &who.UserID, nil)
	return updated, err
}

// Join авторитетная проверка входа. Коррекция статуса записывается до ответа.
// Отказ возвращается вместе с результатом как WindowClosedError.
func (s *SessionService) Join(ctx context.Context, id string, who model.Identity) (*JoinResult, error) {
	sess, err := s.Get(ctx, id, who)
	if err != nil {
		return nil, err
	}

	now := s.now()
	decision := session.CanJoin(now, sess, who)

	if decision.Correction != "" {
		corrected, _, err := s.transition(ctx, id, decision.Correction, &who.UserID, nil)
		var terr *model.InvalidTransitionError
		switch {
		case errors.As(err, &terr):
			// Сессию успели перевести в другой статус, решаем заново по свежему состоянию
			fresh, gerr := s.Get(ctx, id, who)
			if gerr != nil {
				return nil, gerr
			}
			sess = fresh
			decision = session.CanJoin(now, sess, who)
			decision.Correction = ""
		case err != nil:
			return nil, err
		default:
			sess = corrected
		}
	}

	result := &JoinResult{Decision: decision, Session: sess}

	s.logger.Info("Join checked",
		zap.String("session_id", id),
		zap.Int64("user_id", who.UserID),
		zap.String("role", string(who.Role)),
		zap.Bool("allowed", decision.Allowed),
		zap.String("reason", string(decision.Reason)),
	)

	return result, decision.Err()
}

// EndCall завершает идущий звонок. Участники получают срочное call-ended, затем session-updated.
func (s *SessionService) EndCall(ctx context.Context, id string, who model.Identity) (*model.Session, error) {
	sess, err := s.Get(ctx, id, who)
	if err != nil {
		return nil, err
	}
	if err := session.CheckTransition(sess.Status, model.SessionStatusCompleted); err != nil {
		return nil, err
	}

	updated, _, err := s.transition(ctx, id, model.SessionStatusCompleted, &who.UserID, func(updated model.Session) {
		s.notifier.CallEnded(ctx, updated, who.UserID)
	})
	return updated, err
}

// Cancel отменяет сессию и освобождает слот
func (s *SessionService) Cancel(ctx context.Context, id string, who model.Identity) (*model.Session, error) {
	return s.SetStatus(ctx, id, model.SessionStatusCancelled, who)
}

// SweepMissed переводит в missed upcoming сессии, время которых вышло.
// Возвращает количество исправленных сессий.
func (s *SessionService) SweepMissed(ctx context.Context) (int, error) {
	stale, err := s.sessions.ListStaleUpcoming(ctx, s.now(), sweepBatch)
	if err != nil {
		return 0, fmt.Errorf("list stale sessions: %w", err)
	}

	swept := 0
	for _, sess := range stale {
		_, changed, err := s.transition(ctx, sess.ID, model.SessionStatusMissed, nil, nil)
		if err != nil {
			var terr *model.InvalidTransitionError
			if errors.As(err, &terr) {
				continue
			}
			return swept, fmt.Errorf("mark session %s missed: %w", sess.ID, err)
		}
		if changed {
			swept++
		}
	}

	return swept, nil
}

// transition записывает статус и рассылает изменение только если строка действительно поменялась.
// before вызывается перед общей рассылкой, если не nil.
func (s *SessionService) transition(ctx context.Context, id string, target model.SessionStatus, actor *int64, before func(model.Session)) (*model.Session, bool, error) {
	change := model.StatusChange{
		To:    target,
		From:  session.AllowedFrom(target),
		Actor: actor,
		At:    s.now(),
	}

	updated, changed, err := s.sessions.SetStatus(ctx, id, change)
	if err != nil {
		return nil, false, fmt.Errorf("set session status: %w", err)
	}
	if !changed {
		return updated, false, nil
	}

	fields := []zap.Field{
		zap.String("session_id", id),
		zap.String("status", string(target)),
	}
	if actor != nil {
		fields = append(fields, zap.Int64("actor", *actor))
	}
	s.logger.Info("Session status changed", fields...)

	if before != nil {
		before(*updated)
	}
	s.notifier.SessionChanged(ctx, *updated, actor)
	return updated, true, nil
}
