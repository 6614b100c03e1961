package service

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/consult_sessions/internal/model"
	"go.uber.org/zap"
)

const (
	linkCodeLength = 8
	// LinkCodeTTL сколько действует код привязки Telegram
	LinkCodeTTL = 15 * time.Minute
)

type UserService struct {
	users  UserStore
	now    func() time.Time
	logger *zap.Logger
}

func NewUserService(users UserStore, logger *zap.Logger) *UserService {
	return &UserService{
		users:  users,
		now:    time.Now,
		logger: logger,
	}
}

// WithClock подменяет источник времени
func (s *UserService) WithClock(now func() time.Time) *UserService {
	s.now = now
	return s
}

// IssueLinkCode выдаёт одноразовый код для команды /start в боте.
// Новый код отменяет ранее выданный тому же пользователю.
func (s *UserService) IssueLinkCode(ctx context.Context, who model.Identity) (*model.LinkCode, error) {
	if who.UserID <= 0 {
		return nil, &model.ValidationError{Violations: []model.Violation{{Message: "user id must be positive"}}}
	}

	code, err := s.generateLinkCode(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	lc := &model.LinkCode{
		Code:      code,
		UserID:    who.UserID,
		ExpiresAt: now.Add(LinkCodeTTL),
		CreatedAt: now,
	}
	if err := s.users.CreateLinkCode(ctx, lc); err != nil {
		return nil, fmt.Errorf("create link code: %w", err)
	}

	s.logger.Info("Link code issued",
		zap.Int64("user_id", who.UserID),
		zap.Time("expires_at", lc.ExpiresAt),
	)

	return lc, nil
}

// LinkTelegramByCode погашает код и привязывает Telegram аккаунт к его владельцу
func (s *UserService) LinkTelegramByCode(ctx context.Context, code string, telegramID int64, displayName string) (*model.User, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != linkCodeLength {
		return nil, model.ErrLinkCodeInvalid
	}

	lc, err := s.users.ConsumeLinkCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("consume link code: %w", err)
	}
	if lc == nil || lc.Expired(s.now()) {
		return nil, model.ErrLinkCodeInvalid
	}

	user, err := s.users.LinkTelegram(ctx, lc.UserID, telegramID, displayName)
	if err != nil {
		return nil, fmt.Errorf("link telegram: %w", err)
	}

	s.logger.Info("Telegram linked",
		zap.Int64("user_id", lc.UserID),
		zap.Int64("telegram_id", telegramID),
	)

	return user, nil
}

// generateLinkCode генерирует код, которого ещё нет в хранилище
func (s *UserService) generateLinkCode(ctx context.Context) (string, error) {
	const maxAttempts = 10

	for i := 0; i < maxAttempts; i++ {
		// 5 байт дают ровно 8 символов base32 без padding
		bytes := make([]byte, 5)
		if _, err := rand.Read(bytes); err != nil {
			return "", fmt.Errorf("generate random bytes: %w", err)
		}
		code := base32.StdEncoding.EncodeToString(bytes)[:linkCodeLength]

		exists, err := s.users.LinkCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check link code exists: %w", err)
		}
		if !exists {
			return code, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique link code after %d attempts", maxAttempts)
}

// GetByID получает пользователя по ID, nil если его нет
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

// TelegramIDs возвращает Telegram ID участников сессии, у которых он привязан
func (s *UserService) TelegramIDs(ctx context.Context, sess model.Session) ([]int64, error) {
	var ids []int64
	for _, userID := range []int64{sess.UserID, sess.ExpertID} {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("get user %d: %w", userID, err)
		}
		if user != nil && user.TelegramID != nil {
			ids = append(ids, *user.TelegramID)
		}
	}
	return ids, nil
}
