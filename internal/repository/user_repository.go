package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/consult_sessions/internal/model"
	"github.com/Freeeeeet/consult_sessions/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, telegram_id, display_name, is_expert, created_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID получает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil // Пользователь не найден
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return user, nil
}

// LinkTelegram привязывает Telegram к пользователю, создавая запись при необходимости.
// Один Telegram аккаунт принадлежит одному пользователю: старая привязка снимается.
func (r *UserRepository) LinkTelegram(ctx context.Context, userID, telegramID int64, displayName string) (*model.User, error) {
	var user *model.User

	err := base.NewRepository(r.pool).InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE users SET telegram_id = NULL WHERE telegram_id = $1 AND id <> $2`, telegramID, userID); err != nil {
			return fmt.Errorf("unlink telegram: %w", err)
		}

		query := `
			INSERT INTO users (id, telegram_id, display_name)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE
			SET telegram_id = EXCLUDED.telegram_id,
			    display_name = CASE WHEN EXCLUDED.display_name = '' THEN users.display_name ELSE EXCLUDED.display_name END
			RETURNING ` + userColumns

		var err error
		user, err = scanUser(tx.QueryRow(ctx, query, userID, telegramID, displayName))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("link telegram: %w", err)
	}

	return user, nil
}

// LinkCodeExists проверяет, занят ли код
func (r *UserRepository) LinkCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM telegram_link_codes WHERE code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check link code exists: %w", err)
	}
	return exists, nil
}

// CreateLinkCode сохраняет код, прежний код пользователя удаляется
func (r *UserRepository) CreateLinkCode(ctx context.Context, code *model.LinkCode) error {
	err := base.NewRepository(r.pool).InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM telegram_link_codes WHERE user_id = $1`, code.UserID); err != nil {
			return fmt.Errorf("delete previous link code: %w", err)
		}

		query := `
			INSERT INTO telegram_link_codes (code, user_id, expires_at)
			VALUES ($1, $2, $3)
			RETURNING created_at`

		return tx.QueryRow(ctx, query, code.Code, code.UserID, code.ExpiresAt).Scan(&code.CreatedAt)
	})
	if err != nil {
		return fmt.Errorf("create link code: %w", err)
	}
	return nil
}

// ConsumeLinkCode удаляет код и возвращает его. Просроченный код тоже удаляется.
func (r *UserRepository) ConsumeLinkCode(ctx context.Context, code string) (*model.LinkCode, error) {
	query := `
		DELETE FROM telegram_link_codes
		WHERE code = $1
		RETURNING code, user_id, expires_at, created_at`

	var lc model.LinkCode
	err := r.pool.QueryRow(ctx, query, code).Scan(&lc.Code, &lc.UserID, &lc.ExpiresAt, &lc.CreatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("consume link code: %w", err)
	}
	return &lc, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.TelegramID,
		&user.DisplayName,
		&user.IsExpert,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
