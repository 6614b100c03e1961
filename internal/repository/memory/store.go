// Package memory хранилище в памяти процесса. Используется когда DB_DSN не задан и в тестах.
// Поведение повторяет репозитории на pgx: те же ошибки, тот же compare-and-set.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/consult_sessions/internal/model"
	"github.com/Freeeeeet/consult_sessions/internal/schedule"
	"github.com/google/uuid"
)

// Store общее состояние трёх репозиториев
type Store struct {
	mu       sync.Mutex
	slots    map[string]model.Slot
	sessions map[string]model.Session
	users    map[int64]model.User
	codes    map[string]model.LinkCode
	now      func() time.Time
}

func New() *Store {
	return &Store{
		slots:    make(map[string]model.Slot),
		sessions: make(map[string]model.Session),
		users:    make(map[int64]model.User),
		codes:    make(map[string]model.LinkCode),
		now:      time.Now,
	}
}

func (s *Store) Slots() *SlotRepository       { return &SlotRepository{s} }
func (s *Store) Sessions() *SessionRepository { return &SessionRepository{s} }
func (s *Store) Users() *UserRepository       { return &UserRepository{s} }

type SlotRepository struct{ s *Store }

func (r *SlotRepository) List(_ context.Context, filter model.SlotFilter) ([]model.Slot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.listLocked(filter), nil
}

func (r *SlotRepository) GetByID(_ context.Context, id string) (*model.Slot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	slot, ok := r.s.slots[id]
	if !ok {
		return nil, nil
	}
	return &slot, nil
}

func (r *SlotRepository) Create(_ context.Context, slot *model.Slot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.checkOverlapLocked(*slot); err != nil {
		return err
	}
	r.s.insertLocked(slot)
	return nil
}

func (r *SlotRepository) UpdateTimes(_ context.Context, id string, times model.SlotTimes) (*model.Slot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	slot, err := r.s.mutableLocked(id)
	if err != nil {
		return nil, fmt.Errorf("update slot: %w", err)
	}
	slot.StartTime, slot.EndTime = times.StartTime, times.EndTime
	if err := r.s.checkOverlapLocked(slot); err != nil {
		return nil, err
	}
	slot.UpdatedAt = r.s.now()
	r.s.slots[id] = slot
	return &slot, nil
}

func (r *SlotRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, err := r.s.mutableLocked(id); err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	delete(r.s.slots, id)
	r.s.detachLocked(id)
	return nil
}

// ApplyPlan применяет план к копии и подменяет состояние только если результат без пересечений
func (r *SlotRepository) ApplyPlan(_ context.Context, expertID int64, date model.Date, expected []model.Slot, plan schedule.Plan) ([]model.Slot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	filter := model.ForDate(expertID, date)
	if !schedule.SameSnapshot(r.s.listLocked(filter), expected) {
		return nil, &model.StaleWorkingSetError{ExpertID: expertID, Date: date}
	}

	staged := make(map[string]model.Slot, len(r.s.slots))
	for id, slot := range r.s.slots {
		staged[id] = slot
	}

	now := r.s.now()
	for _, slot := range plan.ToDelete {
		if cur, ok := staged[slot.ID]; !ok || cur.IsBooked {
			return nil, fmt.Errorf("apply slot plan: slot %s: %w", slot.ID, model.ErrBookedSlotModified)
		}
		delete(staged, slot.ID)
	}
	for _, slot := range plan.ToUpdate {
		cur, ok := staged[slot.ID]
		if !ok || cur.IsBooked {
			return nil, fmt.Errorf("apply slot plan: slot %s: %w", slot.ID, model.ErrBookedSlotModified)
		}
		cur.StartTime, cur.EndTime, cur.UpdatedAt = slot.StartTime, slot.EndTime, now
		staged[slot.ID] = cur
	}
	for _, slot := range plan.ToCreate {
		slot.ID = uuid.NewString()
		slot.ExpertID, slot.Date, slot.IsBooked = expertID, date, false
		slot.CreatedAt, slot.UpdatedAt = now, now
		staged[slot.ID] = slot
	}

	var day []model.Slot
	for _, slot := range staged {
		if filter.Match(&slot) {
			day = append(day, slot)
		}
	}
	if err := schedule.ValidateWorkingSet(nil, day); err != nil {
		return nil, err
	}

	r.s.slots = staged
	for _, slot := range plan.ToDelete {
		r.s.detachLocked(slot.ID)
	}
	return r.s.listLocked(filter), nil
}

// detachLocked убирает ссылку на удалённый слот из сессий
func (s *Store) detachLocked(slotID string) {
	for id, sess := range s.sessions {
		if sess.AvailabilityID == slotID {
			sess.AvailabilityID = ""
			s.sessions[id] = sess
		}
	}
}

type SessionRepository struct{ s *Store }

func (r *SessionRepository) GetByID(_ context.Context, id string) (*model.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sess, ok := r.s.sessions[id]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

func (r *SessionRepository) Book(_ context.Context, slotID string, userID int64, loc *time.Location, now time.Time) (*model.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	slot, ok := r.s.slots[slotID]
	if !ok {
		return nil, fmt.Errorf("slot %s: %w", slotID, model.ErrNotFound)
	}
	if slot.IsBooked {
		return nil, &model.ConflictError{SlotID: slotID}
	}
	start := slot.StartsAt(loc)
	if !start.After(now) {
		return nil, model.ErrSlotInPast
	}

	slot.IsBooked = true
	slot.UpdatedAt = now
	r.s.slots[slotID] = slot

	sess := model.Session{
		ID:             uuid.NewString(),
		UserID:         userID,
		ExpertID:       slot.ExpertID,
		AvailabilityID: slot.ID,
		Status:         model.SessionStatusUpcoming,
		StartTime:      start,
		EndTime:        slot.EndsAt(loc),
		BookedAt:       now,
		UpdatedAt:      now,
	}
	r.s.sessions[sess.ID] = sess
	return &sess, nil
}

func (r *SessionRepository) SetStatus(_ context.Context, id string, change model.StatusChange) (*model.Session, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sess, ok := r.s.sessions[id]
	if !ok {
		return nil, false, fmt.Errorf("session %s: %w", id, model.ErrNotFound)
	}
	if sess.Status == change.To {
		return &sess, false, nil
	}
	if !allowed(sess.Status, change.From) {
		return nil, false, &model.InvalidTransitionError{From: sess.Status, To: change.To}
	}

	at := change.At
	sess.Status = change.To
	sess.UpdatedAt = at
	if change.To == model.SessionStatusActive && sess.StartedAt == nil {
		sess.StartedAt = &at
	}
	if change.To.IsTerminal() {
		sess.EndedAt = &at
		sess.EndedBy = change.Actor
	}
	r.s.sessions[id] = sess

	if change.To == model.SessionStatusCancelled {
		if slot, ok := r.s.slots[sess.AvailabilityID]; ok {
			slot.IsBooked = false
			slot.UpdatedAt = at
			r.s.slots[slot.ID] = slot
		}
	}

	return &sess, true, nil
}

func (r *SessionRepository) ListStaleUpcoming(_ context.Context, now time.Time, limit int) ([]model.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var stale []model.Session
	for _, sess := range r.s.sessions {
		if sess.Status == model.SessionStatusUpcoming && !sess.EndTime.After(now) {
			stale = append(stale, sess)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].EndTime.Before(stale[j].EndTime) })
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

type UserRepository struct{ s *Store }

func (r *UserRepository) GetByID(_ context.Context, id int64) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (r *UserRepository) LinkTelegram(_ context.Context, userID, telegramID int64, displayName string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, other := range r.s.users {
		if id != userID && other.TelegramID != nil && *other.TelegramID == telegramID {
			other.TelegramID = nil
			r.s.users[id] = other
		}
	}

	user, ok := r.s.users[userID]
	if !ok {
		user = model.User{ID: userID, CreatedAt: r.s.now()}
	}
	user.TelegramID = &telegramID
	if displayName != "" {
		user.DisplayName = displayName
	}
	r.s.users[userID] = user
	return &user, nil
}

func (r *UserRepository) LinkCodeExists(_ context.Context, code string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	_, ok := r.s.codes[code]
	return ok, nil
}

func (r *UserRepository) CreateLinkCode(_ context.Context, code *model.LinkCode) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.codes[code.Code]; ok {
		return fmt.Errorf("create link code: code %s already issued", code.Code)
	}
	for key, other := range r.s.codes {
		if other.UserID == code.UserID {
			delete(r.s.codes, key)
		}
	}
	if code.CreatedAt.IsZero() {
		code.CreatedAt = r.s.now()
	}
	r.s.codes[code.Code] = *code
	return nil
}

func (r *UserRepository) ConsumeLinkCode(_ context.Context, code string) (*model.LinkCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	lc, ok := r.s.codes[code]
	if !ok {
		return nil, nil
	}
	delete(r.s.codes, code)
	return &lc, nil
}

func (s *Store) listLocked(filter model.SlotFilter) []model.Slot {
	slots := []model.Slot{}
	for _, slot := range s.slots {
		if filter.Match(&slot) {
			slots = append(slots, slot)
		}
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Date != slots[j].Date {
			return slots[i].Date.Before(slots[j].Date)
		}
		return slots[i].StartTime < slots[j].StartTime
	})
	return slots
}

func (s *Store) insertLocked(slot *model.Slot) {
	now := s.now()
	slot.ID = uuid.NewString()
	slot.IsBooked = false
	slot.CreatedAt, slot.UpdatedAt = now, now
	s.slots[slot.ID] = *slot
}

func (s *Store) mutableLocked(id string) (model.Slot, error) {
	slot, ok := s.slots[id]
	if !ok {
		return model.Slot{}, fmt.Errorf("slot %s: %w", id, model.ErrNotFound)
	}
	if slot.IsBooked {
		return model.Slot{}, fmt.Errorf("slot %s: %w", id, model.ErrBookedSlotModified)
	}
	return slot, nil
}

func (s *Store) checkOverlapLocked(slot model.Slot) error {
	for _, other := range s.slots {
		if other.ID == slot.ID || other.ExpertID != slot.ExpertID || other.Date != slot.Date {
			continue
		}
		if slot.Overlaps(&other) {
			return &model.ValidationError{Violations: []model.Violation{{
				SlotID:  slot.ID,
				Message: fmt.Sprintf("%s-%s overlaps %s-%s", slot.StartTime, slot.EndTime, other.StartTime, other.EndTime),
			}}}
		}
	}
	return nil
}

func allowed(status model.SessionStatus, from []model.SessionStatus) bool {
	for _, st := range from {
		if st == status {
			return true
		}
	}
	return false
}
