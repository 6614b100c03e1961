package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/consult_sessions/internal/model"
	"github.com/Freeeeeet/consult_sessions/internal/repository/base"
	"github.com/Freeeeeet/consult_sessions/internal/schedule"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const slotColumns = `id::text, expert_id, date, start_minute, end_minute, is_booked, created_at, updated_at`

type SlotRepository struct {
	*base.Repository
}

func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{Repository: base.NewRepository(pool)}
}

// List возвращает слоты эксперта по фильтру, отсортированные по дате и времени
func (r *SlotRepository) List(ctx context.Context, filter model.SlotFilter) ([]model.Slot, error) {
	return listSlots(ctx, r.Pool(), filter, false)
}

// GetByID получает слот по ID
func (r *SlotRepository) GetByID(ctx context.Context, id string) (*model.Slot, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1`

	slot, err := scanSlot(r.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return slot, nil
}

// Create создаёт новый слот и проставляет ему ID
func (r *SlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	err := r.InTx(ctx, func(tx pgx.Tx) error {
		return insertSlot(ctx, tx, slot)
	})
	if err != nil {
		if base.IsOverlap(err) {
			return overlapError(slot)
		}
		return fmt.Errorf("create slot: %w", err)
	}
	return nil
}

// UpdateTimes меняет границы свободного слота
func (r *SlotRepository) UpdateTimes(ctx context.Context, id string, times model.SlotTimes) (*model.Slot, error) {
	var updated *model.Slot

	err := r.InTx(ctx, func(tx pgx.Tx) error {
		var err error
		updated, err = updateSlotTimes(ctx, tx, id, times)
		return err
	})
	if err != nil {
		if base.IsOverlap(err) {
			return nil, overlapError(&model.Slot{ID: id, StartTime: times.StartTime, EndTime: times.EndTime})
		}
		return nil, fmt.Errorf("update slot: %w", err)
	}

	return updated, nil
}

// Delete удаляет свободный слот
func (r *SlotRepository) Delete(ctx context.Context, id string) error {
	if err := deleteSlot(ctx, r.Pool(), id); err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	return nil
}

// ApplyPlan применяет план одной транзакцией.
// Слоты даты блокируются и сверяются с expected, расхождение даёт StaleWorkingSetError.
// Пересечения проверяет отложенный constraint на коммите, поэтому порядок операций не важен.
func (r *SlotRepository) ApplyPlan(ctx context.Context, expertID int64, date model.Date, expected []model.Slot, plan schedule.Plan) ([]model.Slot, error) {
	filter := model.ForDate(expertID, date)
	var result []model.Slot

	err := r.InTx(ctx, func(tx pgx.Tx) error {
		current, err := listSlots(ctx, tx, filter, true)
		if err != nil {
			return err
		}
		if !schedule.SameSnapshot(current, expected) {
			return &model.StaleWorkingSetError{ExpertID: expertID, Date: date}
		}

		for _, slot := range plan.ToDelete {
			if err := deleteSlot(ctx, tx, slot.ID); err != nil {
				return err
			}
		}
		for _, slot := range plan.ToUpdate {
			times := model.SlotTimes{StartTime: slot.StartTime, EndTime: slot.EndTime}
			if _, err := updateSlotTimes(ctx, tx, slot.ID, times); err != nil {
				return err
			}
		}
		for _, slot := range plan.ToCreate {
			slot.ExpertID = expertID
			slot.Date = date
			if err := insertSlot(ctx, tx, &slot); err != nil {
				return err
			}
		}

		result, err = listSlots(ctx, tx, filter, false)
		return err
	})
	if err != nil {
		if base.IsOverlap(err) {
			return nil, &model.ValidationError{Violations: []model.Violation{{Message: "slots overlap"}}}
		}
		return nil, fmt.Errorf("apply slot plan: %w", err)
	}

	return result, nil
}

func listSlots(ctx context.Context, db base.DBTX, filter model.SlotFilter, forUpdate bool) ([]model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE expert_id = $1
		  AND ($2::date IS NULL OR date >= $2)
		  AND ($3::date IS NULL OR date < $3)
		ORDER BY date, start_minute
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	rows, err := db.Query(ctx, query, filter.ExpertID, nullableDate(filter.From), nullableDate(filter.To))
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	slots := []model.Slot{}
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, *slot)
	}

	return slots, rows.Err()
}

func insertSlot(ctx context.Context, db base.DBTX, slot *model.Slot) error {
	query := `
		INSERT INTO slots (id, expert_id, date, start_minute, end_minute, is_booked)
		VALUES ($1, $2, $3, $4, $5, FALSE)
		RETURNING created_at, updated_at
	`

	id := uuid.NewString()
	err := db.QueryRow(
		ctx, query,
		id,
		slot.ExpertID,
		slot.Date.In(time.UTC),
		int(slot.StartTime),
		int(slot.EndTime),
	).Scan(&slot.CreatedAt, &slot.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert slot: %w", err)
	}

	slot.ID = id
	slot.IsBooked = false
	return nil
}

func updateSlotTimes(ctx context.Context, db base.DBTX, id string, times model.SlotTimes) (*model.Slot, error) {
	query := `
		UPDATE slots
		SET start_minute = $2, end_minute = $3, updated_at = now()
		WHERE id = $1 AND is_booked = FALSE
		RETURNING ` + slotColumns

	slot, err := scanSlot(db.QueryRow(ctx, query, id, int(times.StartTime), int(times.EndTime)))
	if err == nil {
		return slot, nil
	}
	if !base.IsNotFound(err) {
		return nil, err
	}
	return nil, explainUnchanged(ctx, db, id)
}

func deleteSlot(ctx context.Context, db base.DBTX, id string) error {
	affected, err := base.ExecAffected(ctx, db, `DELETE FROM slots WHERE id = $1 AND is_booked = FALSE`, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return explainUnchanged(ctx, db, id)
	}
	return nil
}

// explainUnchanged выясняет почему UPDATE/DELETE не затронул строку
func explainUnchanged(ctx context.Context, db base.DBTX, id string) error {
	var booked bool
	err := db.QueryRow(ctx, `SELECT is_booked FROM slots WHERE id = $1`, id).Scan(&booked)
	if base.IsNotFound(err) {
		return fmt.Errorf("slot %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("slot %s: %w", id, model.ErrBookedSlotModified)
}

func scanSlot(row pgx.Row) (*model.Slot, error) {
	var (
		slot       model.Slot
		date       time.Time
		start, end int
	)
	err := row.Scan(
		&slot.ID,
		&slot.ExpertID,
		&date,
		&start,
		&end,
		&slot.IsBooked,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	slot.Date = model.DateOf(date)
	slot.StartTime = model.Clock(start)
	slot.EndTime = model.Clock(end)
	return &slot, nil
}

func nullableDate(d model.Date) *time.Time {
	if d.IsZero() {
		return nil
	}
	t := d.In(time.UTC)
	return &t
}

func overlapError(slot *model.Slot) error {
	return &model.ValidationError{Violations: []model.Violation{{
		SlotID:  slot.ID,
		Message: fmt.Sprintf("%s-%s overlaps an existing slot", slot.StartTime, slot.EndTime),
	}}}
}
