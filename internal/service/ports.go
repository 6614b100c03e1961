package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/consult_sessions/internal/model"
	"github.com/Freeeeeet/consult_sessions/internal/schedule"
)

// SlotStore хранилище слотов. Реализации: repository.SlotRepository и memory.SlotRepository.
// GetByID возвращает nil, nil если слота нет.
type SlotStore interface {
	List(ctx context.Context, filter model.SlotFilter) ([]model.Slot, error)
	GetByID(ctx context.Context, id string) (*model.Slot, error)
	Create(ctx context.Context, slot *model.Slot) error
	UpdateTimes(ctx context.Context, id string, times model.SlotTimes) (*model.Slot, error)
	Delete(ctx context.Context, id string) error
	ApplyPlan(ctx context.Context, expertID int64, date model.Date, expected []model.Slot, plan schedule.Plan) ([]model.Slot, error)
}

// SessionStore хранилище сессий. SetStatus это compare-and-set по change.From.
type SessionStore interface {
	GetByID(ctx context.Context, id string) (*model.Session, error)
	Book(ctx context.Context, slotID string, userID int64, loc *time.Location, now time.Time) (*model.Session, error)
	SetStatus(ctx context.Context, id string, change model.StatusChange) (*model.Session, bool, error)
	ListStaleUpcoming(ctx context.Context, now time.Time, limit int) ([]model.Session, error)
}

// UserStore справочник пользователей для уведомлений
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	LinkTelegram(ctx context.Context, userID, telegramID int64, displayName string) (*model.User, error)

	LinkCodeExists(ctx context.Context, code string) (bool, error)
	// CreateLinkCode сохраняет код, заменяя прежний код того же пользователя
	CreateLinkCode(ctx context.Context, code *model.LinkCode) error
	// ConsumeLinkCode удаляет код и возвращает его, nil если кода нет
	ConsumeLinkCode(ctx context.Context, code string) (*model.LinkCode, error)
}

// Notifier получает изменения сессий после записи в хранилище.
// Ошибки доставки реализация обрабатывает сама.
type Notifier interface {
	SessionChanged(ctx context.Context, s model.Session, actor *int64)
	CallEnded(ctx context.Context, s model.Session, actor int64)
}

// NoopNotifier ничего не делает
type NoopNotifier struct{}

func (NoopNotifier) SessionChanged(context.Context, model.Session, *int64) {}
func (NoopNotifier) CallEnded(context.Context, model.Session, int64)       {}
