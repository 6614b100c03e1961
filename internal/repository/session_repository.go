package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/consult_sessions/internal/model"
	"github.com/Freeeeeet/consult_sessions/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sessionColumns = `id::text, user_id, expert_id, COALESCE(availability_id::text, ''), status,
	start_time, end_time, booked_at, started_at, ended_at, ended_by, updated_at`

type SessionRepository struct {
	*base.Repository
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{Repository: base.NewRepository(pool)}
}

// GetByID получает сессию по ID
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*model.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	s, err := getSession(ctx, r.Pool(), id)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session by id: %w", err)
	}

	return s, nil
}

// Book атомарно занимает слот и создаёт сессию.
// Единственная защита от двойной брони это условие is_booked = FALSE в UPDATE.
func (r *SessionRepository) Book(ctx context.Context, slotID string, userID int64, loc *time.Location, now time.Time) (*model.Session, error) {
	if _, err := uuid.Parse(slotID); err != nil {
		return nil, fmt.Errorf("slot %s: %w", slotID, model.ErrNotFound)
	}

	var booked *model.Session

	err := r.InTx(ctx, func(tx pgx.Tx) error {
		query := `
			UPDATE slots
			SET is_booked = TRUE, updated_at = now()
			WHERE id = $1 AND is_booked = FALSE
			RETURNING ` + slotColumns

		slot, err := scanSlot(tx.QueryRow(ctx, query, slotID))
		if base.IsNotFound(err) {
			return explainUnbookable(ctx, tx, slotID)
		}
		if err != nil {
			return fmt.Errorf("mark slot booked: %w", err)
		}

		// Откат транзакции вернёт слоту is_booked = FALSE
		start := slot.StartsAt(loc)
		if !start.After(now) {
			return model.ErrSlotInPast
		}

		s := &model.Session{
			ID:             uuid.NewString(),
			UserID:         userID,
			ExpertID:       slot.ExpertID,
			AvailabilityID: slot.ID,
			Status:         model.SessionStatusUpcoming,
			StartTime:      start,
			EndTime:        slot.EndsAt(loc),
		}

		insert := `
			INSERT INTO sessions (id, user_id, expert_id, availability_id, status, start_time, end_time, booked_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
			RETURNING booked_at, updated_at
		`
		err = tx.QueryRow(
			ctx, insert,
			s.ID,
			s.UserID,
			s.ExpertID,
			s.AvailabilityID,
			string(s.Status),
			s.StartTime,
			s.EndTime,
			now,
		).Scan(&s.BookedAt, &s.UpdatedAt)
		if err != nil {
			if base.IsUniqueViolation(err) {
				return &model.ConflictError{SlotID: slotID}
			}
			return fmt.Errorf("insert session: %w", err)
		}

		booked = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	return booked, nil
}

// SetStatus выполняет compare-and-set статуса.
// changed false означает что сессия уже была в целевом статусе.
// Отмена освобождает слот в той же транзакции.
func (r *SessionRepository) SetStatus(ctx context.Context, id string, change model.StatusChange) (s *model.Session, changed bool, err error) {
	if _, perr := uuid.Parse(id); perr != nil {
		return nil, false, fmt.Errorf("session %s: %w", id, model.ErrNotFound)
	}

	from := make([]string, 0, len(change.From))
	for _, st := range change.From {
		from = append(from, string(st))
	}
	terminal := change.To.IsTerminal()
	active := change.To == model.SessionStatusActive

	err = r.InTx(ctx, func(tx pgx.Tx) error {
		query := `
			UPDATE sessions
			SET status     = $2,
			    started_at = CASE WHEN $4 THEN COALESCE(started_at, $6) ELSE started_at END,
			    ended_at   = CASE WHEN $5 THEN $6 ELSE ended_at END,
			    ended_by   = CASE WHEN $5 THEN $7 ELSE ended_by END,
			    updated_at = $6
			WHERE id = $1 AND status = ANY($3) AND status <> $2
			RETURNING ` + sessionColumns

		updated, err := scanSession(tx.QueryRow(ctx, query, id, string(change.To), from, active, terminal, change.At, change.Actor))
		if base.IsNotFound(err) {
			current, err := getSession(ctx, tx, id)
			if base.IsNotFound(err) {
				return fmt.Errorf("session %s: %w", id, model.ErrNotFound)
			}
			if err != nil {
				return fmt.Errorf("reread session: %w", err)
			}
			if current.Status == change.To {
				s = current
				return nil
			}
			return &model.InvalidTransitionError{From: current.Status, To: change.To}
		}
		if err != nil {
			return fmt.Errorf("update session status: %w", err)
		}

		if change.To == model.SessionStatusCancelled && updated.AvailabilityID != "" {
			_, err := tx.Exec(ctx, `UPDATE slots SET is_booked = FALSE, updated_at = now() WHERE id = $1`, updated.AvailabilityID)
			if err != nil {
				return fmt.Errorf("release slot: %w", err)
			}
		}

		s = updated
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return s, changed, nil
}

// ListStaleUpcoming возвращает upcoming сессии, время которых уже вышло
func (r *SessionRepository) ListStaleUpcoming(ctx context.Context, now time.Time, limit int) ([]model.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE status = 'upcoming' AND end_time <= $1
		ORDER BY end_time
		LIMIT $2
	`

	rows, err := r.Pool().Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}

	return sessions, rows.Err()
}

func getSession(ctx context.Context, db base.DBTX, id string) (*model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return scanSession(db.QueryRow(ctx, query, id))
}

func explainUnbookable(ctx context.Context, db base.DBTX, slotID string) error {
	var exists bool
	if err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM slots WHERE id = $1)`, slotID).Scan(&exists); err != nil {
		return fmt.Errorf("check slot: %w", err)
	}
	if !exists {
		return fmt.Errorf("slot %s: %w", slotID, model.ErrNotFound)
	}
	return &model.ConflictError{SlotID: slotID}
}

func scanSession(row pgx.Row) (*model.Session, error) {
	var (
		s      model.Session
		status string
	)
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.ExpertID,
		&s.AvailabilityID,
		&status,
		&s.StartTime,
		&s.EndTime,
		&s.BookedAt,
		&s.StartedAt,
		&s.EndedAt,
		&s.EndedBy,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Status = model.SessionStatus(status)
	return &s, nil
}
